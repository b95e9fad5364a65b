package engine

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/lox/chiptracker/internal/broadcast"
	"github.com/lox/chiptracker/internal/room"
	"github.com/lox/chiptracker/internal/roomcode"
	"github.com/lox/chiptracker/internal/session"
	"github.com/lox/chiptracker/internal/store"
)

// Machine applies real-time room events. Every event runs under the room's
// lock from load to broadcast, so subscribers see snapshots in the order the
// mutations happened.
type Machine struct {
	rooms    store.Store
	locks    *Locks
	hub      *broadcast.Broadcaster
	sessions *session.Registry
	logger   *log.Logger
}

// NewMachine wires the state machine. locks must be shared with Admission.
func NewMachine(rooms store.Store, locks *Locks, hub *broadcast.Broadcaster, sessions *session.Registry, logger *log.Logger) *Machine {
	return &Machine{
		rooms:    rooms,
		locks:    locks,
		hub:      hub,
		sessions: sessions,
		logger:   logger.WithPrefix("engine"),
	}
}

// Join binds sub to playerID in the room, subscribes it to updates and sends
// the whole group the current snapshot. A connection that was bound elsewhere
// leaves its previous seat.
func (m *Machine) Join(ctx context.Context, code, playerID string, sub broadcast.Subscriber) Outcome {
	code = roomcode.Normalize(code)
	b := session.Binding{RoomCode: code, PlayerID: playerID}

	unlock := m.locks.Lock(code)
	r, err := m.rooms.Get(ctx, code)
	if err != nil {
		unlock()
		return m.loadFailed("joinRoom", code, err)
	}

	if isClosed(sub) {
		unlock()
		m.logger.Debug("Join from closed connection", "room", code, "player", playerID, "conn", sub.ID())
		return rejected(ReasonConnectionClosed)
	}

	prev, had := m.sessions.Bind(sub.ID(), b)
	if had && prev.RoomCode != code {
		m.hub.Unsubscribe(prev.RoomCode, sub.ID())
	}
	m.hub.Subscribe(code, sub)
	m.hub.Publish(code, r)
	unlock()

	m.logger.Info("Connection joined room", "room", code, "player", playerID, "conn", sub.ID())

	if had && prev != b {
		m.logger.Info("Connection switched seats", "conn", sub.ID(), "from", prev.RoomCode, "player", prev.PlayerID)
		m.leave(ctx, prev)
	}
	return applied()
}

// StartGame marks the game started. Only the host may do this; starting an
// already started game is accepted and re-broadcast.
func (m *Machine) StartGame(ctx context.Context, code, actingPlayerID string) Outcome {
	return m.mutate(ctx, "startGame", code, func(r *room.Room) Reason {
		if r.Player(actingPlayerID) == nil {
			return ReasonPlayerNotFound
		}
		if !r.IsHost(actingPlayerID) {
			return ReasonNotHost
		}
		r.GameStarted = true
		return ""
	})
}

// PlaceBet moves amount from the player's chips into the pot. A zero bet is a
// check: it changes no balance but is recorded and broadcast.
func (m *Machine) PlaceBet(ctx context.Context, code, playerID string, amount int) Outcome {
	return m.mutate(ctx, "placeBet", code, func(r *room.Room) Reason {
		p := r.Player(playerID)
		if p == nil {
			return ReasonPlayerNotFound
		}
		if amount < 0 {
			return ReasonInvalidAmount
		}
		if p.Chips < amount {
			return ReasonInsufficientChips
		}
		r.Bet(p, amount)
		return ""
	})
}

// DecideWinner pays the pot to winnerID and clears the bets.
func (m *Machine) DecideWinner(ctx context.Context, code, actingPlayerID, winnerID string) Outcome {
	return m.mutate(ctx, "decideWinner", code, func(r *room.Room) Reason {
		if !r.IsHost(actingPlayerID) {
			return ReasonNotHost
		}
		winner := r.Player(winnerID)
		if winner == nil {
			return ReasonWinnerNotFound
		}
		paid := r.Award(winner)
		m.logger.Info("Pot awarded", "room", r.Code, "winner", winner.Name, "amount", paid)
		return ""
	})
}

// AddChips credits the target player. The amount is applied as given.
func (m *Machine) AddChips(ctx context.Context, code, actingPlayerID, targetPlayerID string, amount int) Outcome {
	return m.mutate(ctx, "addChips", code, func(r *room.Room) Reason {
		if !r.IsHost(actingPlayerID) {
			return ReasonNotHost
		}
		target := r.Player(targetPlayerID)
		if target == nil {
			return ReasonPlayerNotFound
		}
		target.Chips += amount
		return ""
	})
}

// Disconnect cleans up after a closed connection. It runs at most once per
// binding; later calls report not_bound.
func (m *Machine) Disconnect(ctx context.Context, connID string) Outcome {
	b, ok := m.sessions.Unbind(connID)
	if !ok {
		return rejected(ReasonNotBound)
	}
	m.hub.Unsubscribe(b.RoomCode, connID)
	m.logger.Debug("Connection left", "room", b.RoomCode, "player", b.PlayerID, "conn", connID)
	return m.leave(ctx, b)
}

// leave removes the player named by b unless another connection still holds
// the seat. The last player out deletes the room.
func (m *Machine) leave(ctx context.Context, b session.Binding) Outcome {
	unlock := m.locks.Lock(b.RoomCode)
	defer unlock()

	if n := m.sessions.Connections(b.RoomCode, b.PlayerID); n > 0 {
		m.logger.Debug("Player still connected elsewhere", "room", b.RoomCode, "player", b.PlayerID, "connections", n)
		return rejected(ReasonStillConnected)
	}

	r, err := m.rooms.Get(ctx, b.RoomCode)
	if err != nil {
		return m.loadFailed("disconnect", b.RoomCode, err)
	}
	if !r.RemovePlayer(b.PlayerID) {
		m.logger.Debug("Departed player was not seated", "room", b.RoomCode, "player", b.PlayerID)
		return rejected(ReasonPlayerNotFound)
	}

	if r.Empty() {
		if err := m.rooms.Delete(ctx, r.Code); err != nil {
			m.logger.Error("Failed to delete empty room", "room", r.Code, "error", err)
			return failed(err)
		}
		m.logger.Info("Room closed", "room", r.Code)
		return applied()
	}

	if host := r.EnsureHost(); host != nil {
		m.logger.Info("Host promoted", "room", r.Code, "player", host.ID, "name", host.Name)
	}
	if err := m.rooms.Save(ctx, r); err != nil {
		m.logger.Error("Failed to save room", "op", "disconnect", "room", r.Code, "error", err)
		return failed(err)
	}
	m.hub.Publish(r.Code, r)
	return applied()
}

// mutate loads the room, lets apply change it or name a rejection reason, then
// saves and broadcasts the result while still holding the room lock.
func (m *Machine) mutate(ctx context.Context, op, code string, apply func(r *room.Room) Reason) Outcome {
	code = roomcode.Normalize(code)

	unlock := m.locks.Lock(code)
	defer unlock()

	r, err := m.rooms.Get(ctx, code)
	if err != nil {
		return m.loadFailed(op, code, err)
	}

	if reason := apply(r); reason != "" {
		m.logger.Debug("Event rejected", "op", op, "room", code, "reason", reason)
		return rejected(reason)
	}

	if err := r.CheckInvariants(); err != nil {
		m.logger.Error("Refusing to save inconsistent room", "op", op, "room", code, "error", err)
		return rejected(ReasonInvariant)
	}

	if err := m.rooms.Save(ctx, r); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return rejected(ReasonRoomNotFound)
		}
		m.logger.Error("Failed to save room", "op", op, "room", code, "error", err)
		return failed(err)
	}
	m.hub.Publish(code, r)
	return applied()
}

func (m *Machine) loadFailed(op, code string, err error) Outcome {
	if errors.Is(err, store.ErrNotFound) {
		m.logger.Debug("Event for unknown room", "op", op, "room", code)
		return rejected(ReasonRoomNotFound)
	}
	m.logger.Error("Failed to load room", "op", op, "room", code, "error", err)
	return failed(err)
}

// closer is implemented by subscribers that can report their own shutdown.
type closer interface {
	Done() <-chan struct{}
}

// isClosed reports whether sub has already shut down, in which case its
// disconnect cleanup may have run and binding it would leak the seat.
func isClosed(sub broadcast.Subscriber) bool {
	c, ok := sub.(closer)
	if !ok {
		return false
	}
	select {
	case <-c.Done():
		return true
	default:
		return false
	}
}
