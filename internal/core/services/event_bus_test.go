package services

import (
	"testing"

	"pwab-memberhub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthEventBus_DeliversInPublishOrder(t *testing.T) {
	bus := NewAuthEventBus()
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	bus.Publish(domain.EventSignedIn, &domain.Session{UserID: "user-1"})
	bus.Publish(domain.EventTokenRefreshed, &domain.Session{UserID: "user-1"})
	bus.Publish(domain.EventSignedOut, &domain.Session{UserID: "user-1"})

	first := <-events
	second := <-events
	third := <-events

	assert.Equal(t, domain.EventSignedIn, first.Type)
	assert.Equal(t, domain.EventTokenRefreshed, second.Type)
	assert.Equal(t, domain.EventSignedOut, third.Type)

	// Sequence numbers are strictly increasing in publish order
	assert.Less(t, first.Seq, second.Seq)
	assert.Less(t, second.Seq, third.Seq)
	assert.Equal(t, third.Seq, bus.Seq())
}

func TestAuthEventBus_FansOutToAllSubscribers(t *testing.T) {
	bus := NewAuthEventBus()
	a, unsubA := bus.Subscribe()
	defer unsubA()
	b, unsubB := bus.Subscribe()
	defer unsubB()

	bus.Publish(domain.EventSignedIn, nil)

	assert.Equal(t, domain.EventSignedIn, (<-a).Type)
	assert.Equal(t, domain.EventSignedIn, (<-b).Type)
}

func TestAuthEventBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := NewAuthEventBus()
	events, unsubscribe := bus.Subscribe()

	unsubscribe()

	_, open := <-events
	require.False(t, open)

	// Publishing after unsubscribe must not panic
	bus.Publish(domain.EventSignedOut, nil)
}

func TestAuthEventBus_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := NewAuthEventBus()
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	// Fill the buffer and then some; publisher must never block
	for i := 0; i < eventBufferSize+10; i++ {
		bus.Publish(domain.EventSignedIn, nil)
	}

	delivered := 0
	for len(events) > 0 {
		<-events
		delivered++
	}
	assert.Equal(t, eventBufferSize, delivered)
}
