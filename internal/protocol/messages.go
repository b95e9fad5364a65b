// Package protocol defines the JSON messages exchanged over the room websocket.
package protocol

import (
	"encoding/json"
	"errors"
	"time"
)

// MessageType represents a websocket message type
type MessageType string

const (
	// Client to server
	TypeJoinRoom     MessageType = "joinRoom"
	TypeStartGame    MessageType = "startGame"
	TypePlaceBet     MessageType = "placeBet"
	TypeDecideWinner MessageType = "decideWinner"
	TypeAddChips     MessageType = "addChips"

	// Server to client
	TypeRoomUpdate MessageType = "roomUpdate"
)

// ErrUnknownMessageType is returned when decoding a message type this
// package does not define.
var ErrUnknownMessageType = errors.New("unknown message type")

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

// Message is the envelope every websocket frame carries.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage encodes data into a message stamped with now.
func NewMessage(messageType MessageType, data any, now time.Time) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: now,
	}, nil
}

// Client → Server

type JoinRoom struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

type StartGame struct {
	RoomCode string `json:"roomCode"`
}

type PlaceBet struct {
	Amount   int    `json:"amount"`
	PlayerID string `json:"playerId"`
	RoomCode string `json:"roomCode"`
}

type DecideWinner struct {
	RoomCode string `json:"roomCode"`
	WinnerID string `json:"winnerId"`
}

// AddChips credits PlayerID, the target, with Amount. The acting player is
// the one bound to the sending connection.
type AddChips struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
	Amount   int    `json:"amount"`
}

// Decode unmarshals the message payload into the struct matching its type.
func Decode(msg *Message) (any, error) {
	var v any
	switch msg.Type {
	case TypeJoinRoom:
		v = &JoinRoom{}
	case TypeStartGame:
		v = &StartGame{}
	case TypePlaceBet:
		v = &PlaceBet{}
	case TypeDecideWinner:
		v = &DecideWinner{}
	case TypeAddChips:
		v = &AddChips{}
	default:
		return nil, ErrUnknownMessageType
	}
	if len(msg.Data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return nil, err
	}
	return v, nil
}

// HTTP admission bodies

type CreateRoomRequest struct {
	PlayerName string `json:"playerName" validate:"required"`
}

type CreateRoomResponse struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

type JoinRoomRequest struct {
	RoomCode   string `json:"roomCode" validate:"required"`
	PlayerName string `json:"playerName" validate:"required"`
}

type JoinRoomResponse struct {
	PlayerID string `json:"playerId"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
