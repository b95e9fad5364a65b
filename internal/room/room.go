// Package room holds the chip tracker's room and player entities.
//
// A Room is a plain value: it carries no locks and no connection handles.
// Callers serialise access (see internal/engine) and hand out copies made with
// Clone when a snapshot leaves the owning goroutine.
package room

import (
	"fmt"
	"strings"
)

const (
	// DefaultStartingChips is the balance every admitted player starts with.
	DefaultStartingChips = 100

	// DefaultMaxPlayers is the room capacity enforced at admission.
	DefaultMaxPlayers = 10

	// DefaultMinBet is stored on every room but not enforced.
	DefaultMinBet = 10
)

// Player is one occupant of a room.
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Chips  int    `json:"chips"`
	IsHost bool   `json:"isHost"`
}

// Room is one active game session, addressed by its code.
type Room struct {
	Code             string         `json:"code"`
	Players          []*Player      `json:"players"`
	Pot              int            `json:"pot"`
	CurrentBets      map[string]int `json:"currentBets"`
	CurrentRoundBets map[string]int `json:"currentRoundBets"`
	MinBet           int            `json:"minBet"`
	CurrentTurn      *string        `json:"currentTurn"`
	GameStarted      bool           `json:"gameStarted"`
}

// New returns an empty room for code with host as its only player.
func New(code string, minBet int, host *Player) *Room {
	host.IsHost = true
	return &Room{
		Code:             code,
		Players:          []*Player{host},
		CurrentBets:      make(map[string]int),
		CurrentRoundBets: make(map[string]int),
		MinBet:           minBet,
	}
}

// NewPlayer builds a player with a trimmed name and the given balance.
func NewPlayer(id, name string, chips int) *Player {
	return &Player{
		ID:    id,
		Name:  strings.TrimSpace(name),
		Chips: chips,
	}
}

// Player returns the player with id, or nil.
func (r *Room) Player(id string) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Host returns the current host, or nil if the room has none.
func (r *Room) Host() *Player {
	for _, p := range r.Players {
		if p.IsHost {
			return p
		}
	}
	return nil
}

// IsHost reports whether id names the room's host.
func (r *Room) IsHost(id string) bool {
	p := r.Player(id)
	return p != nil && p.IsHost
}

// AddPlayer appends p at the end of the join order.
func (r *Room) AddPlayer(p *Player) error {
	if r.Player(p.ID) != nil {
		return fmt.Errorf("player %s already in room %s", p.ID, r.Code)
	}
	r.Players = append(r.Players, p)
	return nil
}

// RemovePlayer drops the player with id, keeping the order of the rest.
// It reports whether a player was removed.
func (r *Room) RemovePlayer(id string) bool {
	for i, p := range r.Players {
		if p.ID == id {
			r.Players = append(r.Players[:i:i], r.Players[i+1:]...)
			return true
		}
	}
	return false
}

// EnsureHost promotes the earliest-joined player when no host remains.
// It returns the promoted player, or nil if nothing changed.
func (r *Room) EnsureHost() *Player {
	if len(r.Players) == 0 || r.Host() != nil {
		return nil
	}
	r.Players[0].IsHost = true
	return r.Players[0]
}

// Bet moves amount from the player's balance into the pot.
func (r *Room) Bet(p *Player, amount int) {
	p.Chips -= amount
	r.Pot += amount
	r.CurrentBets[p.ID] += amount
	r.CurrentRoundBets[p.ID] += amount
}

// Award pays the whole pot to winner and clears the bet ledgers.
// It returns the amount paid.
func (r *Room) Award(winner *Player) int {
	paid := r.Pot
	winner.Chips += paid
	r.Pot = 0
	r.CurrentBets = make(map[string]int)
	r.CurrentRoundBets = make(map[string]int)
	return paid
}

// Empty reports whether the room has no players left.
func (r *Room) Empty() bool {
	return len(r.Players) == 0
}

// Clone returns a deep copy of r.
func (r *Room) Clone() *Room {
	c := *r
	c.Players = make([]*Player, len(r.Players))
	for i, p := range r.Players {
		cp := *p
		c.Players[i] = &cp
	}
	c.CurrentBets = cloneBets(r.CurrentBets)
	c.CurrentRoundBets = cloneBets(r.CurrentRoundBets)
	if r.CurrentTurn != nil {
		turn := *r.CurrentTurn
		c.CurrentTurn = &turn
	}
	return &c
}

// Normalize repairs fields a decoded room may be missing, such as nil bet
// maps, so the JSON shape stays stable.
func (r *Room) Normalize() {
	if r.CurrentBets == nil {
		r.CurrentBets = make(map[string]int)
	}
	if r.CurrentRoundBets == nil {
		r.CurrentRoundBets = make(map[string]int)
	}
	if r.Players == nil {
		r.Players = []*Player{}
	}
}

func cloneBets(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
