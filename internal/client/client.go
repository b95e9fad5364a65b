// Package client talks to a chiptracker server: HTTP admission plus the
// websocket room stream.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/lox/chiptracker/internal/protocol"
	"github.com/lox/chiptracker/internal/room"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 54 * time.Second
)

// Client represents a WebSocket connection to one room
type Client struct {
	serverURL string
	conn      *websocket.Conn
	send      chan *protocol.Message
	updates   chan *room.Room
	clock     quartz.Clock
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu     sync.RWMutex
	latest *room.Room
}

// NewClient creates a new WebSocket client
func NewClient(serverURL string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		serverURL: serverURL,
		send:      make(chan *protocol.Message, 256),
		updates:   make(chan *room.Room, 256),
		clock:     quartz.NewReal(),
		logger:    logger.WithPrefix("client"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Connect establishes a WebSocket connection to the server
func (c *Client) Connect(ctx context.Context) error {
	u, err := WebSocketURL(c.serverURL)
	if err != nil {
		return err
	}
	c.logger.Info("Connecting to server", "url", u)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	c.conn = conn

	go c.readPump()
	go c.writePump()

	c.logger.Debug("Connected to server")
	return nil
}

// WebSocketURL turns an http(s) base URL into the server's ws(s) endpoint
func WebSocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server URL scheme %q", u.Scheme)
	}
	u.Path = "/ws"
	return u.String(), nil
}

// Disconnect closes the WebSocket connection
func (c *Client) Disconnect() error {
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			_ = c.conn.Close() // Ignore close errors during shutdown
		}
		c.logger.Debug("Disconnected from server")
	})
	return nil
}

// Done is closed when the connection ends
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Updates delivers every roomUpdate in arrival order. It is closed when the
// connection ends.
func (c *Client) Updates() <-chan *room.Room {
	return c.updates
}

// Latest returns the most recent room snapshot, or nil before the first one
func (c *Client) Latest() *room.Room {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

func (c *Client) JoinRoom(code, playerID string) error {
	return c.emit(protocol.TypeJoinRoom, protocol.JoinRoom{RoomCode: code, PlayerID: playerID})
}

func (c *Client) StartGame(code string) error {
	return c.emit(protocol.TypeStartGame, protocol.StartGame{RoomCode: code})
}

func (c *Client) PlaceBet(code, playerID string, amount int) error {
	return c.emit(protocol.TypePlaceBet, protocol.PlaceBet{Amount: amount, PlayerID: playerID, RoomCode: code})
}

func (c *Client) DecideWinner(code, winnerID string) error {
	return c.emit(protocol.TypeDecideWinner, protocol.DecideWinner{RoomCode: code, WinnerID: winnerID})
}

func (c *Client) AddChips(code, playerID string, amount int) error {
	return c.emit(protocol.TypeAddChips, protocol.AddChips{RoomCode: code, PlayerID: playerID, Amount: amount})
}

// WaitFor blocks until an update satisfies match, the connection ends or ctx
// is done. Updates that do not match are consumed.
func (c *Client) WaitFor(ctx context.Context, match func(*room.Room) bool) (*room.Room, error) {
	for {
		select {
		case r, ok := <-c.updates:
			if !ok {
				return nil, fmt.Errorf("connection closed")
			}
			if match(r) {
				return r, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *Client) emit(msgType protocol.MessageType, data any) error {
	msg, err := protocol.NewMessage(msgType, data, c.clock.Now())
	if err != nil {
		return err
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		return fmt.Errorf("send buffer full")
	}
}

// readPump handles incoming messages from the server
func (c *Client) readPump() {
	defer func() {
		close(c.updates)
		_ = c.Disconnect()
	}()

	for {
		var msg protocol.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		if msg.Type != protocol.TypeRoomUpdate {
			c.logger.Debug("Ignoring message", "type", msg.Type)
			continue
		}

		var r room.Room
		if err := json.Unmarshal(msg.Data, &r); err != nil {
			c.logger.Warn("Failed to decode room update", "error", err)
			continue
		}
		r.Normalize()

		c.mu.Lock()
		c.latest = &r
		c.mu.Unlock()

		select {
		case c.updates <- &r:
		case <-c.ctx.Done():
			return
		}
	}
}

// writePump handles outgoing messages to the server
func (c *Client) writePump() {
	ticker := c.clock.NewTicker(pingPeriod, "client", "ping")
	defer ticker.Stop()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				_ = c.Disconnect()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
