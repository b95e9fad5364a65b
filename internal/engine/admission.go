// Package engine applies player actions to rooms: admission over HTTP and the
// real-time event state machine over websockets.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/lox/chiptracker/internal/room"
	"github.com/lox/chiptracker/internal/roomcode"
	"github.com/lox/chiptracker/internal/store"
)

// Rules are the per-server room settings.
type Rules struct {
	StartingChips int
	MaxPlayers    int
	MinBet        int
}

// DefaultRules returns the house rules rooms start with.
func DefaultRules() Rules {
	return Rules{
		StartingChips: room.DefaultStartingChips,
		MaxPlayers:    room.DefaultMaxPlayers,
		MinBet:        room.DefaultMinBet,
	}
}

// IDGenerator returns a new opaque player id.
type IDGenerator func() (string, error)

// NewPlayerID returns a time-ordered UUIDv7 string.
func NewPlayerID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// CodeSource yields candidate room codes.
type CodeSource interface {
	Generate() string
}

type CreateResult struct {
	RoomCode string
	PlayerID string
}

type JoinResult struct {
	PlayerID string
}

// Admission creates rooms and seats players in them.
type Admission struct {
	rooms  store.Store
	codes  CodeSource
	locks  *Locks
	rules  Rules
	newID  IDGenerator
	logger *log.Logger
}

// AdmissionOption configures an Admission.
type AdmissionOption func(*Admission)

// WithIDGenerator replaces the UUIDv7 player id source.
func WithIDGenerator(gen IDGenerator) AdmissionOption {
	return func(a *Admission) {
		a.newID = gen
	}
}

// NewAdmission wires admission to its store. locks must be the set the
// room Machine uses.
func NewAdmission(rooms store.Store, codes CodeSource, locks *Locks, rules Rules, logger *log.Logger, opts ...AdmissionOption) *Admission {
	a := &Admission{
		rooms:  rooms,
		codes:  codes,
		locks:  locks,
		rules:  rules,
		newID:  NewPlayerID,
		logger: logger.WithPrefix("admission"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CreateRoom opens a new room with playerName as its host.
func (a *Admission) CreateRoom(ctx context.Context, playerName string) (CreateResult, error) {
	name := strings.TrimSpace(playerName)
	if name == "" {
		return CreateResult{}, validationError("Player name is required")
	}

	id, err := a.newID()
	if err != nil {
		return CreateResult{}, internalError(fmt.Errorf("failed to generate player id: %w", err))
	}
	host := room.NewPlayer(id, name, a.rules.StartingChips)

	r, err := CreateUniqueRoom(ctx, a.rooms, a.codes, func(code string) *room.Room {
		return room.New(code, a.rules.MinBet, host)
	})
	if err != nil {
		return CreateResult{}, internalError(err)
	}

	a.logger.Info("Room created", "room", r.Code, "host", name, "player", id)
	return CreateResult{RoomCode: r.Code, PlayerID: id}, nil
}

// JoinRoom seats playerName in an existing room. Nothing is broadcast; the
// player appears to others once their connection sends joinRoom.
func (a *Admission) JoinRoom(ctx context.Context, roomCode, playerName string) (JoinResult, error) {
	code := roomcode.Normalize(roomCode)
	name := strings.TrimSpace(playerName)
	if code == "" || name == "" {
		return JoinResult{}, validationError("Room code and player name are required")
	}

	if roomcode.Validate(code) != nil {
		return JoinResult{}, notFoundError()
	}

	unlock := a.locks.Lock(code)
	defer unlock()

	r, err := a.rooms.Get(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return JoinResult{}, notFoundError()
	}
	if err != nil {
		return JoinResult{}, internalError(err)
	}

	if len(r.Players) >= a.rules.MaxPlayers {
		a.logger.Debug("Join refused, room full", "room", code, "players", len(r.Players))
		return JoinResult{}, roomFullError()
	}

	id, err := a.newID()
	if err != nil {
		return JoinResult{}, internalError(fmt.Errorf("failed to generate player id: %w", err))
	}
	if err := r.AddPlayer(room.NewPlayer(id, name, a.rules.StartingChips)); err != nil {
		return JoinResult{}, internalError(err)
	}

	err = a.rooms.Save(ctx, r)
	if errors.Is(err, store.ErrNotFound) {
		return JoinResult{}, notFoundError()
	}
	if err != nil {
		return JoinResult{}, internalError(err)
	}

	a.logger.Info("Player admitted", "room", code, "name", name, "player", id, "players", len(r.Players))
	return JoinResult{PlayerID: id}, nil
}

// CreateUniqueRoom draws codes until the store accepts one and returns the
// room build made for it. It only gives up when ctx ends or the store fails.
func CreateUniqueRoom(ctx context.Context, rooms store.Store, codes CodeSource, build func(code string) *room.Room) (*room.Room, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r := build(codes.Generate())
		err := rooms.Create(ctx, r)
		if errors.Is(err, store.ErrCodeTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create room: %w", err)
		}
		return r, nil
	}
}
