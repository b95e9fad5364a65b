package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/lox/chiptracker/internal/engine"
	"github.com/lox/chiptracker/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Outbound messages buffered per connection before it counts as stalled
	sendBufferSize = 256
)

var ErrConnectionClosed = errors.New("connection closed")

// Connection represents a WebSocket connection to a client
type Connection struct {
	id        string
	conn      *websocket.Conn
	send      chan *protocol.Message
	server    *Server
	clock     quartz.Clock
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	readDone  chan struct{}
}

// NewConnection creates a new connection wrapper
func NewConnection(id string, conn *websocket.Conn, server *Server) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		id:       id,
		conn:     conn,
		send:     make(chan *protocol.Message, sendBufferSize),
		server:   server,
		clock:    server.clock,
		logger:   server.logger.WithPrefix("conn").With("conn", id),
		ctx:      ctx,
		cancel:   cancel,
		readDone: make(chan struct{}),
	}
}

// ID identifies the connection in the session registry and broadcast groups
func (c *Connection) ID() string {
	return c.id
}

// Done is closed once the connection has shut down
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// ReadDone is closed once the read pump has returned. No event from this
// connection reaches the machine after that.
func (c *Connection) ReadDone() <-chan struct{} {
	return c.readDone
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// Send queues msg for the client. A full buffer closes the connection.
func (c *Connection) Send(msg *protocol.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed while a broadcast was in flight
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
			err = ErrConnectionClosed
		}
	}()

	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close() // Ignore close errors
		return ErrConnectionClosed
	}
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() {
		_ = c.Close() // Ignore close errors during cleanup
		close(c.readDone)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg protocol.Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := c.clock.NewTicker(pingPeriod, "conn", "ping")
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage applies one client event. Rejected and malformed events are
// logged and otherwise ignored; the client only ever hears roomUpdate.
func (c *Connection) handleMessage(msg *protocol.Message) {
	c.logger.Debug("Received message", "type", msg.Type)

	payload, err := protocol.Decode(msg)
	if err != nil {
		c.logger.Debug("Dropping message", "type", msg.Type, "error", err)
		return
	}

	ctx := context.Background()
	machine := c.server.machine

	var out engine.Outcome
	switch p := payload.(type) {
	case *protocol.JoinRoom:
		out = machine.Join(ctx, p.RoomCode, p.PlayerID, c)

	case *protocol.PlaceBet:
		out = machine.PlaceBet(ctx, p.RoomCode, p.PlayerID, p.Amount)

	case *protocol.StartGame:
		actor, ok := c.actingPlayer()
		if !ok {
			return
		}
		out = machine.StartGame(ctx, p.RoomCode, actor)

	case *protocol.DecideWinner:
		actor, ok := c.actingPlayer()
		if !ok {
			return
		}
		out = machine.DecideWinner(ctx, p.RoomCode, actor, p.WinnerID)

	case *protocol.AddChips:
		actor, ok := c.actingPlayer()
		if !ok {
			return
		}
		out = machine.AddChips(ctx, p.RoomCode, actor, p.PlayerID, p.Amount)
	}

	if !out.Applied {
		c.logger.Debug("Event not applied", "type", msg.Type, "outcome", out)
	}
}

// actingPlayer returns the player this connection joined as. Host-only
// events are authorised against it rather than anything in the payload.
func (c *Connection) actingPlayer() (string, bool) {
	b, ok := c.server.sessions.Lookup(c.id)
	if !ok {
		c.logger.Debug("Host event from connection that never joined")
		return "", false
	}
	return b.PlayerID, true
}
