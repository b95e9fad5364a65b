package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	msg, err := NewMessage(TypeRoomUpdate, map[string]int{"pot": 40}, now)
	require.NoError(t, err)

	assert.Equal(t, TypeRoomUpdate, msg.Type)
	assert.Equal(t, now, msg.Timestamp)
	assert.JSONEq(t, `{"pot":40}`, string(msg.Data))
}

func TestNewMessageRejectsUnencodable(t *testing.T) {
	t.Parallel()

	_, err := NewMessage(TypeRoomUpdate, make(chan int), time.Now())
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want any
	}{
		{
			name: "join",
			raw:  `{"type":"joinRoom","data":{"roomCode":"AB12","playerId":"p1"}}`,
			want: &JoinRoom{RoomCode: "AB12", PlayerID: "p1"},
		},
		{
			name: "start",
			raw:  `{"type":"startGame","data":{"roomCode":"AB12"}}`,
			want: &StartGame{RoomCode: "AB12"},
		},
		{
			name: "bet",
			raw:  `{"type":"placeBet","data":{"amount":20,"playerId":"p1","roomCode":"AB12"}}`,
			want: &PlaceBet{Amount: 20, PlayerID: "p1", RoomCode: "AB12"},
		},
		{
			name: "winner",
			raw:  `{"type":"decideWinner","data":{"roomCode":"AB12","winnerId":"p2"}}`,
			want: &DecideWinner{RoomCode: "AB12", WinnerID: "p2"},
		},
		{
			name: "add chips",
			raw:  `{"type":"addChips","data":{"roomCode":"AB12","playerId":"p2","amount":50}}`,
			want: &AddChips{RoomCode: "AB12", PlayerID: "p2", Amount: 50},
		},
		{
			name: "missing data",
			raw:  `{"type":"startGame"}`,
			want: &StartGame{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg Message
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &msg))

			got, err := Decode(&msg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	_, err := Decode(&Message{Type: "shuffle"})
	assert.ErrorIs(t, err, ErrUnknownMessageType)

	_, err = Decode(&Message{Type: TypePlaceBet, Data: json.RawMessage(`{"amount":"lots"}`)})
	assert.Error(t, err)
}
