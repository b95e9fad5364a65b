// Package broadcast fans room snapshots out to the connections watching a room.
package broadcast

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/chiptracker/internal/protocol"
	"github.com/lox/chiptracker/internal/room"
)

// Subscriber receives messages for a room group.
type Subscriber interface {
	ID() string
	Send(msg *protocol.Message) error
}

// Broadcaster keeps one subscriber group per room code.
type Broadcaster struct {
	mu     sync.RWMutex
	groups map[string]map[string]Subscriber
	clock  quartz.Clock
	logger *log.Logger
}

// New returns a broadcaster that stamps messages with clock.
func New(clock quartz.Clock, logger *log.Logger) *Broadcaster {
	return &Broadcaster{
		groups: make(map[string]map[string]Subscriber),
		clock:  clock,
		logger: logger.WithPrefix("broadcast"),
	}
}

// Subscribe adds sub to the group for code. Subscribing the same id twice
// replaces the earlier subscriber.
func (b *Broadcaster) Subscribe(code string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	group, ok := b.groups[code]
	if !ok {
		group = make(map[string]Subscriber)
		b.groups[code] = group
	}
	group[sub.ID()] = sub
}

// Unsubscribe removes id from the group for code. Empty groups are dropped.
func (b *Broadcaster) Unsubscribe(code, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	group, ok := b.groups[code]
	if !ok {
		return
	}
	delete(group, id)
	if len(group) == 0 {
		delete(b.groups, code)
	}
}

// Count returns the number of subscribers watching code.
func (b *Broadcaster) Count(code string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.groups[code])
}

// Publish sends a roomUpdate carrying r to every subscriber of code and
// returns how many accepted it. The snapshot is encoded once.
func (b *Broadcaster) Publish(code string, r *room.Room) int {
	msg, err := protocol.NewMessage(protocol.TypeRoomUpdate, r, b.clock.Now())
	if err != nil {
		b.logger.Error("Failed to encode room update", "room", code, "error", err)
		return 0
	}

	b.mu.RLock()
	subs := make([]Subscriber, 0, len(b.groups[code]))
	for _, sub := range b.groups[code] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	sent := 0
	for _, sub := range subs {
		if err := sub.Send(msg); err != nil {
			b.logger.Warn("Failed to deliver room update", "room", code, "conn", sub.ID(), "error", err)
			continue
		}
		sent++
	}

	b.logger.Debug("Broadcast room update", "room", code, "recipients", sent)
	return sent
}
