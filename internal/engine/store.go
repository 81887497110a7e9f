// Package engine implements the conversational assistant core: the message
// store, the quiz sub-flow, the reward tracker, the voice adapter and the
// per-widget session orchestrator that ties them together.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/avelora/concierge/internal/domain"
)

// MessageStore is an append-only ordered log of messages for one widget
// session. Messages are never mutated after creation and read order equals
// append order.
type MessageStore struct {
	mu       sync.Mutex
	seq      int
	messages []domain.Message
	onAppend func(domain.Message)
}

// NewMessageStore creates an empty message store.
func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

// SetOnAppend installs a hook invoked after every append. Used by the
// session to fan appended messages out to subscribers. Must be set before
// the store is shared.
func (s *MessageStore) SetOnAppend(fn func(domain.Message)) {
	s.onAppend = fn
}

// Append creates and stores a new message. The returned message carries a
// session-unique ID; the sequence counter guarantees uniqueness even for
// messages created within the same clock tick.
func (s *MessageStore) Append(sender domain.Sender, content string, category domain.Category, severity domain.Severity) domain.Message {
	return s.append(sender, content, category, severity, nil)
}

// AppendWithOptions stores an assistant message carrying answer options for
// rendering, such as a quiz prompt.
func (s *MessageStore) AppendWithOptions(sender domain.Sender, content string, category domain.Category, options []string) domain.Message {
	return s.append(sender, content, category, "", options)
}

func (s *MessageStore) append(sender domain.Sender, content string, category domain.Category, severity domain.Severity, options []string) domain.Message {
	s.mu.Lock()
	s.seq++
	now := time.Now()
	msg := domain.Message{
		ID:        fmt.Sprintf("%d-%d", now.UnixMilli(), s.seq),
		Sender:    sender,
		Content:   content,
		Category:  category,
		Severity:  severity,
		Options:   append([]string(nil), options...),
		CreatedAt: now,
	}
	s.messages = append(s.messages, msg)
	hook := s.onAppend
	s.mu.Unlock()

	if hook != nil {
		hook(msg)
	}
	return msg
}

// Snapshot returns a copy of all messages in append order.
func (s *MessageStore) Snapshot() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of stored messages.
func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
