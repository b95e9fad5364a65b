// Package server exposes rooms over HTTP admission endpoints and a websocket
// event stream.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lox/chiptracker/internal/broadcast"
	"github.com/lox/chiptracker/internal/engine"
	"github.com/lox/chiptracker/internal/session"
	"github.com/lox/chiptracker/internal/store"
)

// Server owns the HTTP listener, the live connections and the room engine
type Server struct {
	admission *engine.Admission
	machine   *engine.Machine
	sessions  *session.Registry
	hub       *broadcast.Broadcaster

	upgrader   websocket.Upgrader
	validate   *validator.Validate
	clock      quartz.Clock
	logger     *log.Logger
	mux        *http.ServeMux
	httpServer *http.Server

	mu          sync.RWMutex
	closed      bool
	connections map[*Connection]struct{}
}

type options struct {
	clock quartz.Clock
	rules engine.Rules
	ids   engine.IDGenerator
}

// Option configures a Server
type Option func(*options)

// WithClock overrides the clock used for pings and message timestamps
func WithClock(clock quartz.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithRules sets the house rules for new rooms
func WithRules(rules engine.Rules) Option {
	return func(o *options) {
		o.rules = rules
	}
}

// WithIDGenerator overrides how player ids are minted
func WithIDGenerator(ids engine.IDGenerator) Option {
	return func(o *options) {
		o.ids = ids
	}
}

// NewServer wires the engine around rooms and codes
func NewServer(rooms store.Store, codes engine.CodeSource, logger *log.Logger, opts ...Option) *Server {
	o := options{
		clock: quartz.NewReal(),
		rules: engine.DefaultRules(),
		ids:   engine.NewPlayerID,
	}
	for _, opt := range opts {
		opt(&o)
	}

	locks := engine.NewLocks()
	sessions := session.NewRegistry()
	hub := broadcast.New(o.clock, logger)

	s := &Server{
		admission: engine.NewAdmission(rooms, codes, locks, o.rules, logger, engine.WithIDGenerator(o.ids)),
		machine:   engine.NewMachine(rooms, locks, hub, sessions, logger),
		sessions:  sessions,
		hub:       hub,
		upgrader: websocket.Upgrader{
			// Rooms are joined from any origin, matching the admission CORS policy
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		validate:    validator.New(),
		clock:       o.clock,
		logger:      logger.WithPrefix("server"),
		connections: make(map[*Connection]struct{}),
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("/api/room/create", s.handleCreateRoom)
	s.mux.HandleFunc("/api/room/join", s.handleJoinRoom)
	s.mux.HandleFunc("/ws", s.handleWebSocket)
	s.mux.HandleFunc("/health", s.handleHealth)

	return s
}

// Handler returns the HTTP handler serving every endpoint
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on addr and serves until Shutdown
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(listener)
}

// Serve accepts connections on listener until Shutdown
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = listener.Close()
		return nil
	}
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpServer := s.httpServer
	s.mu.Unlock()

	s.logger.Info("Starting server", "addr", listener.Addr().String())
	err := httpServer.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and closes every live connection. A
// Serve call that has not started yet returns immediately.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	httpServer := s.httpServer
	conns := make([]*Connection, 0, len(s.connections))
	for conn := range s.connections {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	var err error
	if httpServer != nil {
		err = httpServer.Shutdown(ctx)
	}
	for _, conn := range conns {
		_ = conn.Close() // Ignore close errors during shutdown
	}
	s.logger.Info("Server stopped", "connections", len(conns))
	return err
}

// ConnectionCount returns the number of live websocket connections
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(uuid.NewString(), conn, s)
	s.register(client)
	client.Start()

	// Cleanup waits for the read pump so an in-flight joinRoom cannot bind
	// the connection after its seat was released
	go func() {
		<-client.Done()
		<-client.ReadDone()
		s.unregister(client)
	}()
}

func (s *Server) register(conn *Connection) {
	s.mu.Lock()
	s.connections[conn] = struct{}{}
	total := len(s.connections)
	s.mu.Unlock()

	s.logger.Info("Client connected", "conn", conn.ID(), "total", total)
}

// unregister forgets conn and releases its seat. The registry unbinds each
// connection once, so the seat cleanup cannot run twice.
func (s *Server) unregister(conn *Connection) {
	s.mu.Lock()
	delete(s.connections, conn)
	total := len(s.connections)
	s.mu.Unlock()

	out := s.machine.Disconnect(context.Background(), conn.ID())
	s.logger.Info("Client disconnected", "conn", conn.ID(), "total", total, "bound", s.sessions.Len(), "cleanup", out)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK") // Ignore write errors for health check
}
