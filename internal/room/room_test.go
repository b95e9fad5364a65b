package room

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	r := New("ABCD", DefaultMinBet, NewPlayer("p1", "  Alice ", DefaultStartingChips))
	require.NoError(t, r.AddPlayer(NewPlayer("p2", "Bob", DefaultStartingChips)))
	return r
}

func TestNewRoom(t *testing.T) {
	t.Parallel()
	r := New("ABCD", DefaultMinBet, NewPlayer("p1", "  Alice ", DefaultStartingChips))

	require.Len(t, r.Players, 1)
	assert.Equal(t, "Alice", r.Players[0].Name)
	assert.True(t, r.Players[0].IsHost)
	assert.Equal(t, 100, r.Players[0].Chips)
	assert.Equal(t, 10, r.MinBet)
	assert.False(t, r.GameStarted)
	assert.NoError(t, r.CheckInvariants())
}

func TestAddPlayerRejectsDuplicate(t *testing.T) {
	t.Parallel()
	r := newTestRoom(t)

	err := r.AddPlayer(NewPlayer("p2", "Bobby", 100))
	require.Error(t, err)
	assert.Len(t, r.Players, 2)
}

func TestRemovePlayerKeepsOrder(t *testing.T) {
	t.Parallel()
	r := newTestRoom(t)
	require.NoError(t, r.AddPlayer(NewPlayer("p3", "Carol", 100)))

	assert.True(t, r.RemovePlayer("p2"))
	assert.False(t, r.RemovePlayer("p2"))

	require.Len(t, r.Players, 2)
	assert.Equal(t, "p1", r.Players[0].ID)
	assert.Equal(t, "p3", r.Players[1].ID)
}

func TestEnsureHostPromotesEarliest(t *testing.T) {
	t.Parallel()
	r := newTestRoom(t)
	require.NoError(t, r.AddPlayer(NewPlayer("p3", "Carol", 100)))

	assert.Nil(t, r.EnsureHost(), "host still present")

	r.RemovePlayer("p1")
	promoted := r.EnsureHost()
	require.NotNil(t, promoted)
	assert.Equal(t, "p2", promoted.ID)
	assert.False(t, r.Player("p3").IsHost)
	assert.NoError(t, r.CheckInvariants())
}

func TestBetAndAward(t *testing.T) {
	t.Parallel()
	r := newTestRoom(t)
	alice, bob := r.Player("p1"), r.Player("p2")

	r.Bet(alice, 20)
	r.Bet(bob, 20)
	r.Bet(alice, 5)
	require.NoError(t, r.CheckInvariants())
	assert.Equal(t, 45, r.Pot)
	assert.Equal(t, 25, r.CurrentBets["p1"])
	assert.Equal(t, 25, r.CurrentRoundBets["p1"])

	paid := r.Award(bob)
	assert.Equal(t, 45, paid)
	assert.Equal(t, 125, bob.Chips)
	assert.Equal(t, 75, alice.Chips)
	assert.Zero(t, r.Pot)
	assert.Empty(t, r.CurrentBets)
	assert.Empty(t, r.CurrentRoundBets)
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()
	r := newTestRoom(t)
	r.Bet(r.Player("p1"), 10)

	c := r.Clone()
	c.Player("p1").Chips = 0
	c.CurrentBets["p1"] = 99
	c.Players = c.Players[:1]

	assert.Equal(t, 90, r.Player("p1").Chips)
	assert.Equal(t, 10, r.CurrentBets["p1"])
	assert.Len(t, r.Players, 2)
}

func TestCheckInvariants(t *testing.T) {
	t.Parallel()

	t.Run("two hosts", func(t *testing.T) {
		r := newTestRoom(t)
		r.Player("p2").IsHost = true
		assert.ErrorIs(t, r.CheckInvariants(), ErrHostCount)
	})

	t.Run("no host", func(t *testing.T) {
		r := newTestRoom(t)
		r.Player("p1").IsHost = false
		assert.ErrorIs(t, r.CheckInvariants(), ErrHostCount)
	})

	t.Run("pot mismatch", func(t *testing.T) {
		r := newTestRoom(t)
		r.Pot = 5
		assert.ErrorIs(t, r.CheckInvariants(), ErrPotMismatch)
	})

	t.Run("duplicate", func(t *testing.T) {
		r := newTestRoom(t)
		r.Players = append(r.Players, &Player{ID: "p2", Name: "again"})
		assert.ErrorIs(t, r.CheckInvariants(), ErrDuplicatePlayer)
	})
}

func TestJSONShape(t *testing.T) {
	t.Parallel()
	r := newTestRoom(t)

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	for _, key := range []string{"code", "players", "pot", "currentBets", "currentRoundBets", "minBet", "currentTurn", "gameStarted"} {
		assert.Contains(t, raw, key)
	}
	assert.Nil(t, raw["currentTurn"])
	assert.Equal(t, map[string]any{}, raw["currentBets"])

	players := raw["players"].([]any)
	first := players[0].(map[string]any)
	assert.Equal(t, "Alice", first["name"])
	assert.Equal(t, true, first["isHost"])
}

func TestNormalizeFillsMaps(t *testing.T) {
	t.Parallel()
	var r Room
	require.NoError(t, json.Unmarshal([]byte(`{"code":"ABCD","pot":0}`), &r))

	r.Normalize()
	assert.NotNil(t, r.CurrentBets)
	assert.NotNil(t, r.CurrentRoundBets)
	assert.NotNil(t, r.Players)
}
