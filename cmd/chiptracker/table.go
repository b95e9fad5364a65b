package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/lox/chiptracker/internal/client"
	"github.com/lox/chiptracker/internal/room"
)

// errQuit ends an interactive session
var errQuit = errors.New("quit")

// tableActions is the part of client.Client a table session drives
type tableActions interface {
	StartGame(code string) error
	PlaceBet(code, playerID string, amount int) error
	DecideWinner(code, winnerID string) error
	AddChips(code, playerID string, amount int) error
	Latest() *room.Room
}

// table turns typed commands into room events for one seat
type table struct {
	actions tableActions
	code    string
	self    string
	out     io.Writer
	view    *view
}

// execute runs one command line. It returns errQuit when the user asks to
// leave.
func (t *table) execute(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch cmd, args := strings.ToLower(fields[0]), fields[1:]; cmd {
	case "bet", "b":
		if len(args) != 1 {
			return errors.New("usage: bet <amount>")
		}
		amount, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[0])
		}
		if amount < 0 {
			return errors.New("bet must not be negative")
		}
		return t.actions.PlaceBet(t.code, t.self, amount)

	case "start", "s":
		return t.actions.StartGame(t.code)

	case "winner", "w":
		if len(args) != 1 {
			return errors.New("usage: winner <player>")
		}
		id, err := t.resolve(args[0])
		if err != nil {
			return err
		}
		return t.actions.DecideWinner(t.code, id)

	case "add", "a":
		if len(args) != 2 {
			return errors.New("usage: add <player> <amount>")
		}
		id, err := t.resolve(args[0])
		if err != nil {
			return err
		}
		amount, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[1])
		}
		return t.actions.AddChips(t.code, id, amount)

	case "show", "ls":
		if r := t.actions.Latest(); r != nil {
			_, _ = fmt.Fprintln(t.out, t.view.Room(r, t.self))
		}
		return nil

	case "help", "?":
		_, _ = fmt.Fprintln(t.out, t.view.Help())
		return nil

	case "quit", "exit", "q":
		return errQuit

	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
}

// resolve maps a player id or a case-insensitive name to an id using the
// latest snapshot. Without a snapshot the argument is taken as an id.
func (t *table) resolve(who string) (string, error) {
	r := t.actions.Latest()
	if r == nil {
		return who, nil
	}
	if r.Player(who) != nil {
		return who, nil
	}

	var match string
	for _, p := range r.Players {
		if strings.EqualFold(p.Name, who) {
			if match != "" {
				return "", fmt.Errorf("more than one player is named %q, use the id", who)
			}
			match = p.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no player %q in room %s", who, r.Code)
	}
	return match, nil
}

// lockedWriter serialises output from the update printer and the prompt
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// runTable binds self to the room and prints every update. Commands are read
// from in until EOF, quit or ctx is done. A nil in only watches.
func runTable(ctx context.Context, logger *log.Logger, serverURL, code, self string, in io.Reader, out io.Writer, v *view) error {
	c := client.NewClient(serverURL, logger)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer func() { _ = c.Disconnect() }() // Ignore close errors on exit

	if err := c.JoinRoom(code, self); err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	out = &lockedWriter{w: out}
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for r := range c.Updates() {
			_, _ = fmt.Fprintln(out, v.Room(r, self))
		}
	}()

	var lines chan string
	if in != nil {
		lines = make(chan string)
		go func() {
			defer close(lines)
			scanner := bufio.NewScanner(in)
			for scanner.Scan() {
				select {
				case lines <- scanner.Text():
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	t := &table{actions: c, code: code, self: self, out: out, view: v}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-closed:
			return errors.New("connection closed by server")
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := t.execute(line)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				_, _ = fmt.Fprintln(out, v.Error(err))
			}
		}
	}
}
