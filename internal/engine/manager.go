package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avelora/concierge/internal/domain"
)

// sweepInterval is how often the idle sweep runs.
const sweepInterval = time.Minute

// Manager owns the live widget sessions, keyed by visitor and variant.
// There is no shared state between sessions; each widget instance is
// independent.
type Manager struct {
	opts   Options
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager. opts is the template applied to
// every session it creates.
func NewManager(opts Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		opts:     opts,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

func sessionKey(userID string, variant domain.VariantID) string {
	return fmt.Sprintf("%s:%s", userID, variant)
}

// Open returns the visitor's session for the variant, creating one if none
// exists. An existing session is reopened rather than replaced, so the
// conversation survives closing and reopening the panel.
func (m *Manager) Open(userID string, variant domain.VariantID) (*Session, error) {
	cfg, ok := domain.Variant(variant)
	if !ok {
		return nil, fmt.Errorf("unknown widget variant %q", variant)
	}

	key := sessionKey(userID, variant)

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[key]; ok {
		s.Reopen()
		return s, nil
	}

	s := NewSession(userID, cfg, m.opts)
	m.sessions[key] = s
	m.logger.Info("Widget session opened",
		"user_id", userID, "variant", variant, "session_id", s.ID)
	return s, nil
}

// Get returns the visitor's session for the variant, or nil.
func (m *Manager) Get(userID string, variant domain.VariantID) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[sessionKey(userID, variant)]
}

// Close disposes the visitor's session for the variant, if any.
func (m *Manager) Close(userID string, variant domain.VariantID) {
	key := sessionKey(userID, variant)

	m.mu.Lock()
	s, ok := m.sessions[key]
	if ok {
		delete(m.sessions, key)
	}
	m.mu.Unlock()

	if ok {
		s.Close()
		m.logger.Info("Widget session closed",
			"user_id", userID, "variant", variant, "session_id", s.ID)
	}
}

// CloseAll disposes every live session. Called on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

// Sweep disposes sessions idle for longer than ttl and returns how many
// were reclaimed.
func (m *Manager) Sweep(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	m.mu.Lock()
	var expired []*Session
	for key, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			delete(m.sessions, key)
			expired = append(expired, s)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
		m.logger.Info("Idle widget session reclaimed",
			"user_id", s.UserID, "session_id", s.ID)
	}
	return len(expired)
}

// StartSweeper runs a background goroutine that periodically reclaims idle
// sessions until ctx is cancelled.
func (m *Manager) StartSweeper(ctx context.Context, ttl time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	go func() {
		defer ticker.Stop()
		m.logger.Info("Session sweeper started", "interval", sweepInterval, "ttl", ttl)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.Sweep(ttl); n > 0 {
					m.logger.Info("Session sweep complete", "reclaimed", n)
				}
			}
		}
	}()
}
