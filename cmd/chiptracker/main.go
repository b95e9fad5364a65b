package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

// Globals are flags shared by every command
type Globals struct {
	LogLevel     string `kong:"help='Log level (debug, info, warn, error)',env='CHIPTRACKER_LOG_LEVEL'"`
	NoColor      bool   `kong:"help='Disable colored output',env='NO_COLOR'"`
	ServerURL    string `kong:"name='server-url',help='Server base URL',env='CHIPTRACKER_SERVER'"`
	ClientConfig string `kong:"name='client-config',default='~/.chiptracker.hcl',type='path',help='Client defaults file',env='CHIPTRACKER_CLIENT_CONFIG'"`
}

type CLI struct {
	Globals

	Version kong.VersionFlag `short:"v" help:"Show version"`
	Server  ServerCmd        `cmd:"" help:"Run the chip tracker server"`
	Create  CreateCmd        `cmd:"" help:"Create a room and print its code"`
	Join    JoinCmd          `cmd:"" help:"Join a room by code"`
	Play    PlayCmd          `cmd:"" help:"Take a seat and send table commands from stdin"`
	Watch   WatchCmd         `cmd:"" help:"Take a seat and print room updates"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("chiptracker"),
		kong.Description("Shared chip ledger for home poker games"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
