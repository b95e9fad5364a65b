package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/lox/chiptracker/internal/protocol"
)

// APIError is a non-200 admission response
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// API calls the HTTP admission endpoints
type API struct {
	baseURL string
	http    *http.Client
}

// NewAPI returns an admission client for baseURL. A nil httpClient uses
// http.DefaultClient.
func NewAPI(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// CreateRoom opens a room hosted by playerName
func (a *API) CreateRoom(ctx context.Context, playerName string) (protocol.CreateRoomResponse, error) {
	var out protocol.CreateRoomResponse
	err := a.post(ctx, "/api/room/create", protocol.CreateRoomRequest{PlayerName: playerName}, &out)
	return out, err
}

// JoinRoom seats playerName in the room with code
func (a *API) JoinRoom(ctx context.Context, code, playerName string) (protocol.JoinRoomResponse, error) {
	var out protocol.JoinRoomResponse
	err := a.post(ctx, "/api/room/join", protocol.JoinRoomRequest{RoomCode: code, PlayerName: playerName}, &out)
	return out, err
}

func (a *API) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }() // Ignore close errors on response body

	if resp.StatusCode != http.StatusOK {
		var e protocol.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
