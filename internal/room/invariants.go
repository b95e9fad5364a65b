package room

import (
	"errors"
	"fmt"
)

// Errors reported by CheckInvariants.
var (
	// ErrDuplicatePlayer means two players share an id.
	ErrDuplicatePlayer = errors.New("duplicate player id")
	// ErrHostCount means a non-empty room has no host or several.
	ErrHostCount = errors.New("room must have exactly one host")
	// ErrPotMismatch means the pot differs from the sum of current bets.
	ErrPotMismatch = errors.New("pot does not match current bets")
	// ErrNegative means the pot went below zero.
	ErrNegative = errors.New("negative pot")
)

// BetTotal sums the current bets.
func (r *Room) BetTotal() int {
	total := 0
	for _, v := range r.CurrentBets {
		total += v
	}
	return total
}

// CheckInvariants verifies the structural rules every stored room obeys:
// unique player ids, exactly one host in a non-empty room, a non-negative
// pot equal to the sum of the current bets.
func (r *Room) CheckInvariants() error {
	seen := make(map[string]bool, len(r.Players))
	hosts := 0
	for _, p := range r.Players {
		if seen[p.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicatePlayer, p.ID)
		}
		seen[p.ID] = true
		if p.IsHost {
			hosts++
		}
	}
	if len(r.Players) > 0 && hosts != 1 {
		return fmt.Errorf("%w: found %d", ErrHostCount, hosts)
	}
	if r.Pot < 0 {
		return fmt.Errorf("%w: pot %d", ErrNegative, r.Pot)
	}
	if total := r.BetTotal(); total != r.Pot {
		return fmt.Errorf("%w: pot %d, bets %d", ErrPotMismatch, r.Pot, total)
	}
	return nil
}
