package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrVoiceUnavailable is returned when the variant has no voice capability.
var ErrVoiceUnavailable = errors.New("voice capture not available")

// Transcriber is the external speech-capture capability. Transcribe blocks
// until a transcript is produced, the capture fails, or ctx is cancelled.
type Transcriber interface {
	Transcribe(ctx context.Context) (string, error)
}

// SimulatedTranscriber is a capture-then-fixed-delay stand-in for a real
// speech backend: it waits Delay and yields Transcript. Used for demo
// deployments without a speech service.
type SimulatedTranscriber struct {
	Delay      time.Duration
	Transcript string
}

// Transcribe waits the configured delay and returns the fixed transcript.
func (t SimulatedTranscriber) Transcribe(ctx context.Context) (string, error) {
	if t.Delay > 0 {
		timer := time.NewTimer(t.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return t.Transcript, nil
}

// VoiceAdapter bridges a Transcriber into the orchestrator: a successful
// capture is handed to the session exactly as if the visitor had typed it.
// At most one listening session is active at a time; toggling while listening
// cancels the capture in progress instead of starting a second one.
type VoiceAdapter struct {
	transcriber Transcriber
	handle      func(ctx context.Context, transcript string) error
	notify      func(ev Event)
	logger      *slog.Logger

	mu        sync.Mutex
	listening bool
	cancel    context.CancelFunc
}

// NewVoiceAdapter wires a transcriber to the given input handler. notify
// receives listening-state changes and capture errors for the shell.
func NewVoiceAdapter(transcriber Transcriber, handle func(context.Context, string) error, notify func(Event), logger *slog.Logger) *VoiceAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &VoiceAdapter{
		transcriber: transcriber,
		handle:      handle,
		notify:      notify,
		logger:      logger,
	}
}

// Listening reports whether a capture is in progress.
func (v *VoiceAdapter) Listening() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.listening
}

// Toggle starts a capture, or cancels the one in progress. It returns
// immediately; the transcript (or error) is delivered asynchronously.
func (v *VoiceAdapter) Toggle(ctx context.Context) error {
	if v.transcriber == nil {
		return ErrVoiceUnavailable
	}

	v.mu.Lock()
	if v.listening {
		cancel := v.cancel
		v.mu.Unlock()
		cancel()
		return nil
	}

	captureCtx, cancel := context.WithCancel(ctx)
	v.listening = true
	v.cancel = cancel
	v.mu.Unlock()

	v.notify(Event{Type: EventListening, Listening: true})

	go v.capture(captureCtx)
	return nil
}

// Stop cancels a capture in progress, if any.
func (v *VoiceAdapter) Stop() {
	v.mu.Lock()
	cancel := v.cancel
	v.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (v *VoiceAdapter) capture(ctx context.Context) {
	transcript, err := v.transcriber.Transcribe(ctx)

	v.mu.Lock()
	v.listening = false
	v.cancel = nil
	v.mu.Unlock()

	v.notify(Event{Type: EventListening, Listening: false})

	switch {
	case errors.Is(err, context.Canceled):
		// Listening was toggled off; nothing to deliver.
		return
	case err != nil:
		v.logger.Warn("Voice capture failed", "error", err)
		v.notify(Event{Type: EventError, Error: "Voice capture failed. Check microphone access and try again."})
		return
	}

	if err := v.handle(context.Background(), transcript); err != nil {
		v.logger.Warn("Voice transcript rejected", "error", err)
	}
}
