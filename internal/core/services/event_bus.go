package services

import (
	"log"
	"sync"

	"pwab-memberhub/internal/core/domain"
)

// AuthEventBus fans auth state-change events out to subscribers.
// Sequence numbers are assigned in publish order; subscribers use them to
// enforce last-write-wins by event recency.
type AuthEventBus struct {
	mu   sync.Mutex
	seq  uint64
	subs map[int]chan domain.AuthEvent
	next int
}

const eventBufferSize = 32

// NewAuthEventBus creates a new event bus
func NewAuthEventBus() *AuthEventBus {
	return &AuthEventBus{subs: make(map[int]chan domain.AuthEvent)}
}

// Subscribe registers a subscriber. The returned func unsubscribes and
// closes the channel.
func (b *AuthEventBus) Subscribe() (<-chan domain.AuthEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan domain.AuthEvent, eventBufferSize)
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

// Publish delivers an event to all subscribers. A subscriber that cannot
// keep up loses the event rather than blocking the publisher.
func (b *AuthEventBus) Publish(eventType domain.AuthEventType, session *domain.Session) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	event := domain.AuthEvent{
		Seq:     b.seq,
		Type:    eventType,
		Session: session,
	}

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			log.Printf("⚠️ Auth event dropped for slow subscriber: %s", eventType)
		}
	}
}

// Seq returns the sequence of the most recently published event
func (b *AuthEventBus) Seq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq
}
