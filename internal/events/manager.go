package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// subscriberBuffer bounds each subscriber channel. A subscriber that falls
// this far behind starts losing events rather than blocking publishers.
const subscriberBuffer = 64

// Manager fans out events to subscribers. Publish never blocks.
type Manager struct {
	mu          sync.RWMutex
	subscribers map[int]chan Event
	nextID      int
	log         zerolog.Logger
}

// NewManager creates a new event manager
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		subscribers: make(map[int]chan Event),
		log:         log.With().Str("component", "events").Logger(),
	}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function. The channel is closed on unsubscribe.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++

	ch := make(chan Event, subscriberBuffer)
	m.subscribers[id] = ch

	unsubscribe := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if sub, ok := m.subscribers[id]; ok {
			delete(m.subscribers, id)
			close(sub)
		}
	}

	return ch, unsubscribe
}

// Publish delivers an event to all subscribers without blocking.
// Slow subscribers drop events; the loss is logged.
func (m *Manager) Publish(data EventData) {
	event := Event{
		Type:      data.EventType(),
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for id, ch := range m.subscribers {
		select {
		case ch <- event:
		default:
			m.log.Warn().
				Int("subscriber", id).
				Str("event", string(event.Type)).
				Msg("Subscriber buffer full, dropping event")
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscribers)
}

// Close unsubscribes everyone, closing their channels
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, ch := range m.subscribers {
		delete(m.subscribers, id)
		close(ch)
	}
}
