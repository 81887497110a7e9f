package engine

import (
	"log/slog"
	"sync"

	"github.com/avelora/concierge/internal/domain"
)

// EventType identifies the kind of session event pushed to the shell.
type EventType string

const (
	// EventMessage carries a newly appended message.
	EventMessage EventType = "message"
	// EventProcessing signals a change of the processing indicator.
	EventProcessing EventType = "processing"
	// EventError carries a user-facing error notification (toast).
	EventError EventType = "error"
	// EventListening signals a change of the voice listening state.
	EventListening EventType = "listening"
)

// Event is pushed to subscribed presentation shells over the live channel.
type Event struct {
	Type       EventType       `json:"type"`
	Message    *domain.Message `json:"message,omitempty"`
	Processing bool            `json:"processing,omitempty"`
	Listening  bool            `json:"listening,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// subscriberBuffer is the per-subscriber event queue depth. A slow consumer
// loses events rather than blocking the session.
const subscriberBuffer = 64

// broadcaster fans session events out to any number of subscribers.
type broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
	closed bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan Event)}
}

// Subscribe registers a new event consumer. The returned cancel function
// must be called when the consumer is done.
func (b *broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
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

// Publish delivers an event to all subscribers without blocking.
func (b *broadcaster) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			slog.Warn("Dropping session event for slow subscriber", "subscriber", id, "event", ev.Type)
		}
	}
}

// Close terminates all subscriptions. Subsequent publishes are ignored.
func (b *broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
