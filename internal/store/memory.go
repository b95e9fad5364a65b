package store

import (
	"context"
	"sync"

	"github.com/lox/chiptracker/internal/room"
)

// Memory is an in-process Store. It is the default backend.
type Memory struct {
	mu    sync.RWMutex
	rooms map[string]*room.Room
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{rooms: make(map[string]*room.Room)}
}

func (m *Memory) Create(_ context.Context, r *room.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[r.Code]; ok {
		return ErrCodeTaken
	}
	m.rooms[r.Code] = r.Clone()
	return nil
}

func (m *Memory) Get(_ context.Context, code string) (*room.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rooms[code]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (m *Memory) Save(_ context.Context, r *room.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[r.Code]; !ok {
		return ErrNotFound
	}
	m.rooms[r.Code] = r.Clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, code)
	return nil
}

func (m *Memory) Exists(_ context.Context, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rooms[code]
	return ok, nil
}

func (m *Memory) Close() error { return nil }
