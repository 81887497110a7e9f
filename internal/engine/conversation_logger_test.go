package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func readLogLines(t *testing.T, path string) []ConversationLogEvent {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	var out []ConversationLogEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev ConversationLogEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("bad NDJSON line %q: %v", scanner.Text(), err)
		}
		out = append(out, ev)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan log file: %v", err)
	}
	return out
}

func TestConversationLoggerWritesPerSessionFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	l, err := NewConversationLogger(ConversationLogConfig{Enabled: true, Dir: dir, QueueSize: 16}, nil)
	if err != nil {
		t.Fatalf("NewConversationLogger failed: %v", err)
	}

	l.Log(ConversationLogEvent{
		UserID: "anon_1", SessionID: "sess_a", Variant: "general",
		Sender: "user", Content: "hello",
	})
	l.Log(ConversationLogEvent{
		UserID: "anon_1", SessionID: "sess_a", Variant: "general",
		Sender: "assistant", Category: "reward", Content: "Bonus unlocked!",
	})
	l.Log(ConversationLogEvent{
		UserID: "anon_2", SessionID: "sess_b", Variant: "support",
		Sender: "user", Content: "it broke",
	})

	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	events := readLogLines(t, filepath.Join(dir, "anon_1", "sess_a.ndjson"))
	if len(events) != 2 {
		t.Fatalf("expected 2 events for sess_a, got %d", len(events))
	}
	if events[0].Content != "hello" || events[1].Category != "reward" {
		t.Errorf("unexpected events: %+v", events)
	}
	if events[0].Timestamp.IsZero() {
		t.Error("timestamp not filled in")
	}

	other := readLogLines(t, filepath.Join(dir, "anon_2", "sess_b.ndjson"))
	if len(other) != 1 || other[0].Variant != "support" {
		t.Errorf("unexpected events for sess_b: %+v", other)
	}
}

func TestConversationLoggerDisabledIsNoOp(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	l, err := NewConversationLogger(ConversationLogConfig{Enabled: false, Dir: dir}, nil)
	if err != nil {
		t.Fatal(err)
	}

	l.Log(ConversationLogEvent{UserID: "anon_1", SessionID: "sess_a", Content: "dropped"})
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("disabled logger wrote %d entries", len(entries))
	}
}

func TestConversationLoggerCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	l, err := NewConversationLogger(ConversationLogConfig{Enabled: true, Dir: t.TempDir()}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSessionMessagesReachConversationLog(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	l, err := NewConversationLogger(ConversationLogConfig{Enabled: true, Dir: dir, QueueSize: 64}, nil)
	if err != nil {
		t.Fatal(err)
	}

	fc := &fakeCompleter{response: "Happy to help."}
	s := newTestSession(t, "general", fc, Options{ConversationLog: l})

	if err := s.Handle(context.Background(), "what can you do"); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, s.UserID, s.ID+".ndjson")
	events := readLogLines(t, path)
	// Welcome, user input, assistant reply.
	if len(events) != 3 {
		t.Fatalf("expected 3 logged events, got %d", len(events))
	}
	if events[1].Sender != "user" || events[1].Content != "what can you do" {
		t.Errorf("user event = %+v", events[1])
	}
	if events[2].Sender != "assistant" || events[2].Content != "Happy to help." {
		t.Errorf("assistant event = %+v", events[2])
	}
	for _, ev := range events {
		if ev.SessionID != s.ID || ev.Variant != "general" {
			t.Errorf("event metadata wrong: %+v", ev)
		}
	}
}
