package engine

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// Locks serialises work on a room. Codes hash onto a fixed set of mutexes so
// rooms never need their own lock lifecycle; two rooms sharing a stripe only
// cost each other some waiting.
type Locks struct {
	stripes [lockStripes]sync.Mutex
}

// NewLocks returns a fresh lock set. Admission and Machine must share one.
func NewLocks() *Locks {
	return &Locks{}
}

// Lock acquires the stripe for code and returns its unlock function.
func (l *Locks) Lock(code string) func() {
	mu := &l.stripes[stripe(code)]
	mu.Lock()
	return mu.Unlock
}

func stripe(code string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(code)) // hash.Hash never returns an error
	return h.Sum32() % lockStripes
}
