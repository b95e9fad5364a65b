package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/lox/chiptracker/internal/protocol"
	"github.com/lox/chiptracker/internal/room"
	"github.com/lox/chiptracker/internal/roomcode"
	"github.com/lox/chiptracker/internal/store"
	"github.com/stretchr/testify/require"
)

// testLogger creates a logger that discards output for tests
func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func sequentialIDs() func() (string, error) {
	var (
		mu sync.Mutex
		n  int
	)
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("player-%d", n), nil
	}
}

type testServer struct {
	*Server
	rooms store.Store
	http  *httptest.Server
}

func newTestServer(t *testing.T, opts ...Option) *testServer {
	t.Helper()
	rooms := store.NewMemory()
	opts = append([]Option{WithClock(quartz.NewMock(t)), WithIDGenerator(sequentialIDs())}, opts...)
	s := NewServer(rooms, roomcode.NewSeeded(42), testLogger(), opts...)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
		ts.Close()
	})
	return &testServer{Server: s, rooms: rooms, http: ts}
}

func (ts *testServer) post(t *testing.T, path string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.http.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (ts *testServer) createRoom(t *testing.T, name string) protocol.CreateRoomResponse {
	t.Helper()
	resp := ts.post(t, "/api/room/create", fmt.Sprintf(`{"playerName":%q}`, name))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out protocol.CreateRoomResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (ts *testServer) joinRoom(t *testing.T, code, name string) protocol.JoinRoomResponse {
	t.Helper()
	resp := ts.post(t, "/api/room/join", fmt.Sprintf(`{"roomCode":%q,"playerName":%q}`, code, name))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out protocol.JoinRoomResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (ts *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &out), string(data))
	return out
}

func sendEvent(t *testing.T, ws *websocket.Conn, msgType protocol.MessageType, data any) {
	t.Helper()
	msg, err := protocol.NewMessage(msgType, data, time.Now())
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(msg))
}

func readUpdate(t *testing.T, ws *websocket.Conn) *room.Room {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg protocol.Message
	require.NoError(t, ws.ReadJSON(&msg))
	require.Equal(t, protocol.TypeRoomUpdate, msg.Type)

	var r room.Room
	require.NoError(t, json.Unmarshal(msg.Data, &r))
	return &r
}

// joinAs connects a socket, sends joinRoom and consumes the resync snapshot.
func (ts *testServer) joinAs(t *testing.T, code, playerID string) (*websocket.Conn, *room.Room) {
	t.Helper()
	ws := ts.dial(t)
	sendEvent(t, ws, protocol.TypeJoinRoom, protocol.JoinRoom{RoomCode: code, PlayerID: playerID})
	return ws, readUpdate(t, ws)
}
