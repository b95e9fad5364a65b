package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/chiptracker/internal/broadcast"
	"github.com/lox/chiptracker/internal/protocol"
	"github.com/lox/chiptracker/internal/room"
	"github.com/lox/chiptracker/internal/roomcode"
	"github.com/lox/chiptracker/internal/session"
	"github.com/lox/chiptracker/internal/store"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

// sequentialIDs hands out p1, p2, ... so assertions can name players.
func sequentialIDs() IDGenerator {
	var (
		mu sync.Mutex
		n  int
	)
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("p%d", n), nil
	}
}

// codeSequence replays codes in order, wrapping around.
type codeSequence struct {
	mu    sync.Mutex
	codes []string
	next  int
}

func (c *codeSequence) Generate() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	code := c.codes[c.next%len(c.codes)]
	c.next++
	return code
}

type fixture struct {
	rooms     store.Store
	admission *Admission
	machine   *Machine
	hub       *broadcast.Broadcaster
	sessions  *session.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, store.NewMemory())
}

func newFixtureWithStore(t *testing.T, rooms store.Store) *fixture {
	t.Helper()
	logger := testLogger()
	locks := NewLocks()
	hub := broadcast.New(quartz.NewMock(t), logger)
	sessions := session.NewRegistry()

	return &fixture{
		rooms:     rooms,
		admission: NewAdmission(rooms, roomcode.NewSeeded(42), locks, DefaultRules(), logger, WithIDGenerator(sequentialIDs())),
		machine:   NewMachine(rooms, locks, hub, sessions, logger),
		hub:       hub,
		sessions:  sessions,
	}
}

func (f *fixture) create(t *testing.T, name string) CreateResult {
	t.Helper()
	res, err := f.admission.CreateRoom(context.Background(), name)
	require.NoError(t, err)
	return res
}

func (f *fixture) join(t *testing.T, code, name string) string {
	t.Helper()
	res, err := f.admission.JoinRoom(context.Background(), code, name)
	require.NoError(t, err)
	return res.PlayerID
}

func (f *fixture) room(t *testing.T, code string) *room.Room {
	t.Helper()
	r, err := f.rooms.Get(context.Background(), code)
	require.NoError(t, err)
	return r
}

// connect joins a fresh recording subscriber to the room as playerID.
func (f *fixture) connect(t *testing.T, connID, code, playerID string) *recorder {
	t.Helper()
	sub := &recorder{id: connID}
	out := f.machine.Join(context.Background(), code, playerID, sub)
	require.True(t, out.Applied, out.String())
	return sub
}

type recorder struct {
	id   string
	done chan struct{}

	mu   sync.Mutex
	msgs []*protocol.Message
}

func (r *recorder) ID() string { return r.id }

// Done is nil, and so never ready, until hangUp is called.
func (r *recorder) Done() <-chan struct{} { return r.done }

func (r *recorder) hangUp() {
	r.done = make(chan struct{})
	close(r.done)
}

func (r *recorder) Send(msg *protocol.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func (r *recorder) last(t *testing.T) *room.Room {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.msgs)

	var got room.Room
	require.NoError(t, json.Unmarshal(r.msgs[len(r.msgs)-1].Data, &got))
	return &got
}

// brokenStore fails every write after it is armed.
type brokenStore struct {
	store.Store

	mu    sync.Mutex
	armed bool
}

func (b *brokenStore) arm() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.armed = true
}

func (b *brokenStore) broken() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.armed
}

func (b *brokenStore) Save(ctx context.Context, r *room.Room) error {
	if b.broken() {
		return errStoreDown
	}
	return b.Store.Save(ctx, r)
}

func (b *brokenStore) Create(ctx context.Context, r *room.Room) error {
	if b.broken() {
		return errStoreDown
	}
	return b.Store.Create(ctx, r)
}

var errStoreDown = errors.New("store unavailable")
