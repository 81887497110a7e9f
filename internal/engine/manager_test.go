package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avelora/concierge/internal/domain"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(Options{Completer: &fakeCompleter{response: "ok"}}, nil)
	t.Cleanup(m.CloseAll)
	return m
}

func TestManagerOpenCreatesThenReuses(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)

	first, err := m.Open("visitor-a", domain.VariantGeneral)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	second, err := m.Open("visitor-a", domain.VariantGeneral)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if first != second {
		t.Error("reopening replaced the session instead of reusing it")
	}

	other, err := m.Open("visitor-a", domain.VariantSupport)
	if err != nil {
		t.Fatalf("Open other variant failed: %v", err)
	}
	if other == first {
		t.Error("different variants share a session")
	}
}

func TestManagerOpenUnknownVariant(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	if _, err := m.Open("visitor-a", domain.VariantID("nonsense")); err == nil {
		t.Fatal("expected an error for an unknown variant")
	}
}

func TestManagerReopenPreservesConversation(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	s, err := m.Open("visitor-a", domain.VariantGeneral)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Handle(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	before := len(s.Messages())

	// Reopening the panel keeps the transcript.
	again, err := m.Open("visitor-a", domain.VariantGeneral)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(again.Messages()); got != before {
		t.Errorf("reopened session has %d messages, want %d", got, before)
	}
}

func TestManagerCloseDisposesSession(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	s, err := m.Open("visitor-a", domain.VariantGeneral)
	if err != nil {
		t.Fatal(err)
	}

	m.Close("visitor-a", domain.VariantGeneral)

	if got := m.Get("visitor-a", domain.VariantGeneral); got != nil {
		t.Error("closed session still registered")
	}
	if err := s.Handle(context.Background(), "hello"); !errors.Is(err, ErrClosed) {
		t.Errorf("disposed session err = %v, want ErrClosed", err)
	}

	// A fresh open after close starts a new conversation.
	fresh, err := m.Open("visitor-a", domain.VariantGeneral)
	if err != nil {
		t.Fatal(err)
	}
	if fresh == s {
		t.Error("open after close returned the disposed session")
	}
}

func TestManagerGetMissingReturnsNil(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	if got := m.Get("nobody", domain.VariantGeneral); got != nil {
		t.Errorf("Get for unknown visitor = %v, want nil", got)
	}
}

func TestManagerSweepReclaimsIdleSessions(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	idle, err := m.Open("visitor-idle", domain.VariantGeneral)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Open("visitor-active", domain.VariantGeneral); err != nil {
		t.Fatal(err)
	}

	// Backdate the idle session past the TTL.
	idle.mu.Lock()
	idle.lastActive = time.Now().Add(-time.Hour)
	idle.mu.Unlock()

	if n := m.Sweep(30 * time.Minute); n != 1 {
		t.Fatalf("Sweep reclaimed %d sessions, want 1", n)
	}
	if m.Get("visitor-idle", domain.VariantGeneral) != nil {
		t.Error("idle session survived the sweep")
	}
	if m.Get("visitor-active", domain.VariantGeneral) == nil {
		t.Error("active session was swept")
	}
}

func TestManagerCloseAll(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	if _, err := m.Open("a", domain.VariantGeneral); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Open("b", domain.VariantSecurity); err != nil {
		t.Fatal(err)
	}

	m.CloseAll()

	if m.Get("a", domain.VariantGeneral) != nil || m.Get("b", domain.VariantSecurity) != nil {
		t.Error("sessions survived CloseAll")
	}
}
