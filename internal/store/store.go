// Package store persists rooms keyed by their code.
//
// Every backend has value semantics: Get returns a copy the caller may
// mutate freely, and nothing changes in the store until Save is called.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lox/chiptracker/internal/room"
)

var (
	// ErrNotFound is returned when no room is stored under a code.
	ErrNotFound = errors.New("room not found")

	// ErrCodeTaken is returned by Create when the code is already in use.
	ErrCodeTaken = errors.New("room code already in use")
)

// Store is keyed storage of rooms.
type Store interface {
	// Create inserts r if its code is free, failing with ErrCodeTaken otherwise.
	Create(ctx context.Context, r *room.Room) error
	// Get returns a copy of the room stored under code, or ErrNotFound.
	Get(ctx context.Context, code string) (*room.Room, error)
	// Save overwrites an existing room, or fails with ErrNotFound.
	Save(ctx context.Context, r *room.Room) error
	// Delete removes the room under code. Deleting a missing room is not an error.
	Delete(ctx context.Context, code string) error
	// Exists reports whether a room is stored under code.
	Exists(ctx context.Context, code string) (bool, error)
	// Close releases backend resources.
	Close() error
}

func encodeRoom(r *room.Room) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode room %s: %w", r.Code, err)
	}
	return data, nil
}

func decodeRoom(code string, data []byte) (*room.Room, error) {
	var r room.Room
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode room %s: %w", code, err)
	}
	r.Normalize()
	return &r, nil
}
