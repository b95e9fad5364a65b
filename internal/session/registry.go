// Package session tracks which room and player each live connection speaks for.
package session

import "sync"

// Binding is the room and player a connection joined as.
type Binding struct {
	RoomCode string
	PlayerID string
}

// Registry maps connection ids to bindings. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Binding
	// seats counts live connections per binding so a player with two tabs
	// open is not removed when one of them closes.
	seats map[Binding]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]Binding),
		seats: make(map[Binding]int),
	}
}

// Bind records b for connID, replacing any earlier binding. It returns the
// replaced binding, if there was one.
func (r *Registry) Bind(connID string, b Binding) (Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, had := r.conns[connID]
	if had {
		if prev == b {
			return prev, true
		}
		r.release(prev)
	}
	r.conns[connID] = b
	r.seats[b]++
	return prev, had
}

// Lookup returns the binding for connID.
func (r *Registry) Lookup(connID string) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.conns[connID]
	return b, ok
}

// Unbind removes and returns connID's binding. Only the first call for a
// given binding reports true.
func (r *Registry) Unbind(connID string) (Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.conns[connID]
	if !ok {
		return Binding{}, false
	}
	delete(r.conns, connID)
	r.release(b)
	return b, true
}

// Connections returns how many live connections are bound as playerID in code.
func (r *Registry) Connections(code, playerID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.seats[Binding{RoomCode: code, PlayerID: playerID}]
}

// Len returns the number of bound connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) release(b Binding) {
	if n := r.seats[b] - 1; n > 0 {
		r.seats[b] = n
	} else {
		delete(r.seats, b)
	}
}
