// Package roomcode generates the short codes players type to join a room.
package roomcode

import (
	"fmt"
	rand "math/rand/v2"
	"strings"
	"sync"
)

const (
	// Length is the number of characters in a room code.
	Length = 4

	// Alphabet is the set of characters a code is drawn from.
	Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	goldenRatio64 = 0x9e3779b97f4a7c15
)

// RandSource is the randomness a Generator draws from.
type RandSource interface {
	IntN(n int) int
}

// Generator produces room codes. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng RandSource
}

// NewGenerator returns a generator drawing from rng.
func NewGenerator(rng RandSource) *Generator {
	return &Generator{rng: rng}
}

// NewSeeded returns a generator backed by a PCG source derived from seed.
func NewSeeded(seed int64) *Generator {
	return NewGenerator(NewRand(seed))
}

// NewRand returns a *rand.Rand seeded deterministically from seed, expanding
// it into the two 64-bit words PCG needs.
func NewRand(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// Generate returns a fresh code. Uniqueness is the caller's concern.
func (g *Generator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var b strings.Builder
	b.Grow(Length)
	for i := 0; i < Length; i++ {
		b.WriteByte(Alphabet[g.rng.IntN(len(Alphabet))])
	}
	return b.String()
}

// Normalize trims whitespace and upper-cases code the way clients type it.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks that code has the right length and alphabet.
func Validate(code string) error {
	if len(code) != Length {
		return fmt.Errorf("room code must be exactly %d characters, got %d", Length, len(code))
	}
	for i, c := range code {
		if !strings.ContainsRune(Alphabet, c) {
			return fmt.Errorf("invalid character %c at position %d", c, i)
		}
	}
	return nil
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
