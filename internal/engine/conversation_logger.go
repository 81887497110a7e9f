package engine

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ConversationLogConfig controls NDJSON conversation logging.
type ConversationLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// ConversationLogEvent is one NDJSON record: a single message exchanged in a
// widget session.
type ConversationLogEvent struct {
	Timestamp time.Time `json:"ts"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Variant   string    `json:"variant"`
	Sender    string    `json:"sender"`
	Category  string    `json:"category,omitempty"`
	Content   string    `json:"content"`
}

// ConversationLogger appends conversation events to per-visitor NDJSON files
// (<dir>/<user_id>/<session_id>.ndjson). Writes happen on a background
// goroutine; a full queue drops events rather than blocking the session.
type ConversationLogger struct {
	cfg    ConversationLogConfig
	logger *slog.Logger
	queue  chan ConversationLogEvent
	done   chan struct{}

	closeOnce sync.Once
}

// NewConversationLogger creates a conversation logger. A disabled config
// returns a logger whose Log is a no-op.
func NewConversationLogger(cfg ConversationLogConfig, logger *slog.Logger) (*ConversationLogger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &ConversationLogger{
		cfg:    cfg,
		logger: logger,
	}
	if !cfg.Enabled {
		return l, nil
	}

	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
		l.cfg.QueueSize = 1000
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation log directory: %w", err)
	}

	l.queue = make(chan ConversationLogEvent, l.cfg.QueueSize)
	l.done = make(chan struct{})
	go l.run()
	return l, nil
}

// Log enqueues an event for writing. Never blocks.
func (l *ConversationLogger) Log(ev ConversationLogEvent) {
	if l.queue == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case l.queue <- ev:
	default:
		l.logger.Warn("Conversation log queue full, dropping event",
			"user_id", ev.UserID, "session_id", ev.SessionID)
	}
}

func (l *ConversationLogger) run() {
	defer close(l.done)
	for ev := range l.queue {
		if err := l.write(ev); err != nil {
			l.logger.Warn("Failed to write conversation log event",
				"user_id", ev.UserID, "session_id", ev.SessionID, "error", err)
		}
	}
}

func (l *ConversationLogger) write(ev ConversationLogEvent) error {
	dir := filepath.Join(l.cfg.Dir, ev.UserID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create session log directory: %w", err)
	}

	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal log event: %w", err)
	}

	path := filepath.Join(dir, ev.SessionID+".ndjson")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open session log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append session log line: %w", err)
	}
	return nil
}

// Close drains the queue and stops the writer goroutine.
func (l *ConversationLogger) Close() error {
	if l.queue == nil {
		return nil
	}
	l.closeOnce.Do(func() {
		close(l.queue)
	})
	<-l.done
	return nil
}
