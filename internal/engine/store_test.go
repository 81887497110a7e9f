package engine

import (
	"fmt"
	"testing"

	"github.com/avelora/concierge/internal/domain"
)

func TestMessageStoreReadOrderEqualsAppendOrder(t *testing.T) {
	t.Parallel()

	s := NewMessageStore()
	for i := 0; i < 20; i++ {
		sender := domain.SenderUser
		if i%2 == 1 {
			sender = domain.SenderAssistant
		}
		s.Append(sender, fmt.Sprintf("message %d", i), "", "")
	}

	msgs := s.Snapshot()
	if len(msgs) != 20 {
		t.Fatalf("expected 20 messages, got %d", len(msgs))
	}
	for i, m := range msgs {
		if want := fmt.Sprintf("message %d", i); m.Content != want {
			t.Errorf("message %d out of order: got %q, want %q", i, m.Content, want)
		}
	}
}

func TestMessageStoreIDsUniqueWithinSameTick(t *testing.T) {
	t.Parallel()

	s := NewMessageStore()
	seen := make(map[string]bool)
	// A tight loop lands many appends in the same millisecond.
	for i := 0; i < 1000; i++ {
		m := s.Append(domain.SenderUser, "x", "", "")
		if seen[m.ID] {
			t.Fatalf("duplicate message ID %q at append %d", m.ID, i)
		}
		seen[m.ID] = true
	}
}

func TestMessageStoreSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	s := NewMessageStore()
	s.Append(domain.SenderAssistant, "original", "", "")

	snap := s.Snapshot()
	snap[0].Content = "mutated"

	if got := s.Snapshot()[0].Content; got != "original" {
		t.Errorf("store content changed through snapshot: got %q", got)
	}
}

func TestMessageStoreAppendWithOptions(t *testing.T) {
	t.Parallel()

	s := NewMessageStore()
	opts := []string{"a", "b", "c"}
	m := s.AppendWithOptions(domain.SenderAssistant, "pick one", domain.CategoryQuiz, opts)

	if m.Category != domain.CategoryQuiz {
		t.Errorf("expected quiz category, got %q", m.Category)
	}
	if len(m.Options) != 3 {
		t.Fatalf("expected 3 options, got %d", len(m.Options))
	}

	// The stored options must not alias the caller's slice.
	opts[0] = "z"
	if got := s.Snapshot()[0].Options[0]; got != "a" {
		t.Errorf("options aliased caller slice: got %q", got)
	}
}

func TestMessageStoreOnAppendHook(t *testing.T) {
	t.Parallel()

	s := NewMessageStore()
	var got []domain.Message
	s.SetOnAppend(func(m domain.Message) { got = append(got, m) })

	s.Append(domain.SenderUser, "one", "", "")
	s.Append(domain.SenderAssistant, "two", domain.CategoryReward, "")

	if len(got) != 2 {
		t.Fatalf("expected 2 hook calls, got %d", len(got))
	}
	if got[1].Category != domain.CategoryReward {
		t.Errorf("hook saw category %q, want %q", got[1].Category, domain.CategoryReward)
	}
}
