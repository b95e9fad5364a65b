package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lox/chiptracker/internal/room"
	"github.com/muesli/termenv"
)

// view renders room snapshots for a terminal
type view struct {
	title lipgloss.Style
	label lipgloss.Style
	self  lipgloss.Style
	host  lipgloss.Style
	chips lipgloss.Style
	bet   lipgloss.Style
	muted lipgloss.Style
	err   lipgloss.Style
}

func newView(w io.Writer, noColor bool) *view {
	r := lipgloss.NewRenderer(w)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}
	return &view{
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("15")),
		label: r.NewStyle().Foreground(lipgloss.Color("14")),
		self:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		host:  r.NewStyle().Foreground(lipgloss.Color("13")),
		chips: r.NewStyle().Foreground(lipgloss.Color("10")),
		bet:   r.NewStyle().Foreground(lipgloss.Color("9")),
		muted: r.NewStyle().Foreground(lipgloss.Color("8")),
		err:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	}
}

// Seat prints the credentials a player needs for play and watch
func (v *view) Seat(code, playerID string) string {
	return fmt.Sprintf("%s %s\n%s %s",
		v.label.Render("Room code:"), v.title.Render(code),
		v.label.Render("Player id:"), playerID)
}

// Room renders one snapshot, marking self
func (v *view) Room(r *room.Room, self string) string {
	var b strings.Builder

	state := "waiting"
	if r.GameStarted {
		state = "in play"
	}
	fmt.Fprintf(&b, "%s  %s %s  %s\n",
		v.title.Render("Room "+r.Code),
		v.label.Render("pot"), v.chips.Render(fmt.Sprint(r.Pot)),
		v.muted.Render(state))

	width := 0
	for _, p := range r.Players {
		width = max(width, len(p.Name))
	}
	for _, p := range r.Players {
		name := fmt.Sprintf("%-*s", width, p.Name)
		if p.ID == self {
			name = v.self.Render(name)
		}
		line := fmt.Sprintf("  %s  %s", name, v.chips.Render(fmt.Sprintf("%6d", p.Chips)))
		if bet := r.CurrentBets[p.ID]; bet > 0 {
			line += "  " + v.bet.Render(fmt.Sprintf("bet %d", bet))
		}
		var tags []string
		if p.IsHost {
			tags = append(tags, v.host.Render("host"))
		}
		if p.ID == self {
			tags = append(tags, v.self.Render("you"))
		}
		if len(tags) > 0 {
			line += "  " + strings.Join(tags, " ")
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// Error renders a command failure
func (v *view) Error(err error) string {
	return v.err.Render("error: ") + err.Error()
}

// Help lists the commands a table session accepts
func (v *view) Help() string {
	rows := [][2]string{
		{"bet <amount>", "move chips from your stack into the pot (0 checks)"},
		{"start", "mark the game as started (host)"},
		{"winner <player>", "award the pot by name or id (host)"},
		{"add <player> <amount>", "adjust a stack by name or id (host)"},
		{"show", "print the latest room state"},
		{"quit", "leave the table"},
	}
	var b strings.Builder
	b.WriteString(v.title.Render("Commands"))
	for _, row := range rows {
		fmt.Fprintf(&b, "\n  %s  %s", v.label.Render(fmt.Sprintf("%-22s", row[0])), v.muted.Render(row[1]))
	}
	return b.String()
}
