package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/avelora/concierge/internal/completion"
	"github.com/avelora/concierge/internal/domain"
	"github.com/google/uuid"
)

var (
	// ErrEmptyMessage is returned for input that is empty after trimming.
	// Callers should validate at the boundary; this is the backstop.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrBusy is returned while a previous exchange is still in flight.
	ErrBusy = errors.New("a request is already being processed")
	// ErrClosed is returned after the session has been disposed.
	ErrClosed = errors.New("session is closed")
)

// defaultBasePoints is awarded per successfully completed exchange.
const defaultBasePoints = 10

// userFacingError is the toast shown for any completion-service failure.
const userFacingError = "Sorry, I couldn't process that right now. Please try again."

// FeedbackHook receives submitted feedback for persistence.
type FeedbackHook func(userID string, variant domain.VariantID, text string)

// RewardHook receives award deltas for lifetime-total accumulation.
type RewardHook func(userID string, points int, newBadges []string, interactions int)

// Options configures a new session. Completer is required; everything else
// is optional.
type Options struct {
	Completer       completion.Completer
	Transcriber     Transcriber
	ThinkDelay      time.Duration
	BasePoints      int
	Logger          *slog.Logger
	OnAward         RewardHook
	OnFeedback      FeedbackHook
	ConversationLog *ConversationLogger
}

// Session is the assistant orchestrator for one widget instance: it owns the
// message store, the optional sub-flows and the single in-flight-request
// flag, and decides per user input whether to route to the quiz flow, the
// feedback flow or the completion service.
type Session struct {
	ID     string
	UserID string

	cfg        domain.VariantConfig
	store      *MessageStore
	quiz       *QuizFlow
	rewards    *RewardTracker
	voice      *VoiceAdapter
	completer  completion.Completer
	events     *broadcaster
	logger     *slog.Logger
	basePoints int
	onFeedback FeedbackHook
	convlog    *ConversationLogger

	mu               sync.Mutex
	open             bool
	minimized        bool
	processing       bool
	closed           bool
	awaitingFeedback bool
	language         string
	lastActive       time.Time
}

// routing decisions for one user input, in priority order.
type route int

const (
	routeQuizStart route = iota
	routeQuizAnswer
	routeFeedbackSubmit
	routeFeedbackPrompt
	routeCompletion
)

// NewSession creates an open session for the given visitor and variant and
// seeds the welcome message.
func NewSession(userID string, cfg domain.VariantConfig, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	basePoints := opts.BasePoints
	if basePoints <= 0 {
		basePoints = defaultBasePoints
	}

	s := &Session{
		ID:         uuid.New().String(),
		UserID:     userID,
		cfg:        cfg,
		store:      NewMessageStore(),
		events:     newBroadcaster(),
		completer:  opts.Completer,
		logger:     logger,
		basePoints: basePoints,
		onFeedback: opts.OnFeedback,
		convlog:    opts.ConversationLog,
		open:       true,
		lastActive: time.Now(),
	}

	s.store.SetOnAppend(func(msg domain.Message) {
		s.events.Publish(Event{Type: EventMessage, Message: &msg})
		if s.convlog != nil {
			s.convlog.Log(ConversationLogEvent{
				UserID:    s.UserID,
				SessionID: s.ID,
				Variant:   string(cfg.ID),
				Sender:    string(msg.Sender),
				Category:  string(msg.Category),
				Content:   msg.Content,
			})
		}
	})

	var awardHook AwardHook
	if opts.OnAward != nil {
		awardHook = func(points int, newBadges []string, interactions int) {
			opts.OnAward(s.UserID, points, newBadges, interactions)
		}
	}
	s.rewards = NewRewardTracker(s.store, awardHook)
	if cfg.QuizEnabled {
		s.quiz = NewQuizFlow(s.store, cfg.Quiz, opts.ThinkDelay)
	}
	if cfg.VoiceEnabled && opts.Transcriber != nil {
		s.voice = NewVoiceAdapter(opts.Transcriber, s.Handle, s.events.Publish, logger)
	}

	s.store.Append(domain.SenderAssistant, cfg.WelcomeText, "", "")
	return s
}

// Handle is the single entry point for "the user said X", whether typed or
// transcribed from voice. It appends the input as a user message and routes
// it to the quiz flow, the feedback flow or the completion service.
func (s *Session) Handle(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyMessage
	}
	lower := strings.ToLower(trimmed)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.processing {
		s.mu.Unlock()
		return ErrBusy
	}
	s.lastActive = time.Now()

	r := s.decideLocked(lower)
	switch r {
	case routeQuizAnswer, routeCompletion:
		s.processing = true
	case routeFeedbackSubmit:
		s.awaitingFeedback = false
	case routeFeedbackPrompt:
		s.awaitingFeedback = true
	}
	s.mu.Unlock()

	s.store.Append(domain.SenderUser, trimmed, "", "")

	switch r {
	case routeQuizStart:
		s.quiz.Start()
		return nil
	case routeQuizAnswer:
		s.events.Publish(Event{Type: EventProcessing, Processing: true})
		defer s.setProcessing(false)
		s.quiz.SubmitAnswer(ctx, trimmed)
		return nil
	case routeFeedbackSubmit:
		s.rewards.SubmitFeedback(trimmed)
		if s.onFeedback != nil {
			s.onFeedback(s.UserID, s.cfg.ID, trimmed)
		}
		return nil
	case routeFeedbackPrompt:
		s.rewards.PromptFeedback()
		return nil
	default:
		s.events.Publish(Event{Type: EventProcessing, Processing: true})
		defer s.setProcessing(false)
		return s.complete(ctx)
	}
}

// decideLocked picks the route for one input. Caller holds s.mu.
func (s *Session) decideLocked(lower string) route {
	quizActive := s.quiz != nil && s.quiz.Active()
	switch {
	case s.cfg.QuizEnabled && !quizActive && containsAny(lower, s.cfg.QuizTriggers):
		return routeQuizStart
	case quizActive:
		return routeQuizAnswer
	case s.awaitingFeedback:
		return routeFeedbackSubmit
	case s.cfg.FeedbackEnabled && containsAny(lower, s.cfg.FeedbackTriggers):
		return routeFeedbackPrompt
	default:
		return routeCompletion
	}
}

// complete makes the single external completion call for this exchange.
// The caller has already set the processing flag and arranged its reset.
func (s *Session) complete(ctx context.Context) error {
	req := completion.Request{
		Turns:    s.replayTurns(),
		Context:  s.cfg.DomainTag,
		Language: s.Language(),
	}

	text, err := s.completer.Complete(ctx, req)

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		// The widget was disposed while the call was outstanding; discard.
		return nil
	}

	if err != nil {
		s.logger.Error("Completion request failed",
			"session_id", s.ID, "variant", s.cfg.ID, "error", err)
		s.events.Publish(Event{Type: EventError, Error: userFacingError})
		return fmt.Errorf("complete exchange: %w", err)
	}

	s.store.Append(domain.SenderAssistant, text, s.cfg.ReplyCategory, s.classifySeverity(text))
	s.rewards.Award(s.basePoints, nil)
	return nil
}

// replayTurns builds the turn list for the completion request. Assistant
// messages carrying a category are side-channel UI messages (quiz prompts,
// reward notices) and are excluded from the replayed conversation.
func (s *Session) replayTurns() []completion.Turn {
	msgs := s.store.Snapshot()
	turns := make([]completion.Turn, 0, len(msgs))
	for _, m := range msgs {
		if m.IsSideChannel() {
			continue
		}
		role := "user"
		if m.Sender == domain.SenderAssistant {
			role = "assistant"
		}
		turns = append(turns, completion.Turn{Role: role, Content: m.Content})
	}
	return turns
}

// classifySeverity grades a reply for the security variant's presentation.
func (s *Session) classifySeverity(text string) domain.Severity {
	if !s.cfg.SeverityEnabled {
		return ""
	}
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, []string{"critical", "breach", "ransomware", "compromised"}):
		return domain.SeverityHigh
	case containsAny(lower, []string{"vulnerability", "phishing", "warning", "outdated"}):
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

func (s *Session) setProcessing(v bool) {
	s.mu.Lock()
	s.processing = v
	s.mu.Unlock()
	if !v {
		s.events.Publish(Event{Type: EventProcessing, Processing: false})
	}
}

// ToggleVoice starts or cancels a voice capture for this session.
func (s *Session) ToggleVoice(ctx context.Context) error {
	if s.voice == nil {
		return ErrVoiceUnavailable
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return s.voice.Toggle(ctx)
}

// Subscribe registers an event consumer for the live channel.
func (s *Session) Subscribe() (<-chan Event, func()) {
	return s.events.Subscribe()
}

// Messages returns the conversation in append order.
func (s *Session) Messages() []domain.Message {
	return s.store.Snapshot()
}

// State is a snapshot of the widget-visible session state.
type State struct {
	SessionID    string           `json:"session_id"`
	Variant      domain.VariantID `json:"variant"`
	Open         bool             `json:"open"`
	Minimized    bool             `json:"minimized"`
	Processing   bool             `json:"processing"`
	Listening    bool             `json:"listening"`
	QuizActive   bool             `json:"quiz_active"`
	Language     string           `json:"language,omitempty"`
	Points       int              `json:"points"`
	Badges       []string         `json:"badges"`
	Interactions int              `json:"interactions"`
}

// State returns a snapshot of the session state.
func (s *Session) State() State {
	s.mu.Lock()
	st := State{
		SessionID:  s.ID,
		Variant:    s.cfg.ID,
		Open:       s.open,
		Minimized:  s.minimized,
		Processing: s.processing,
		Language:   s.language,
	}
	s.mu.Unlock()

	st.QuizActive = s.quiz != nil && s.quiz.Active()
	st.Listening = s.voice != nil && s.voice.Listening()
	st.Points = s.rewards.Points()
	st.Badges = s.rewards.Badges()
	st.Interactions = s.rewards.Interactions()
	return st
}

// Reopen marks the widget visible again after a minimize or close of the
// panel without disposing conversation state.
func (s *Session) Reopen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.open = true
	s.minimized = false
	s.lastActive = time.Now()
}

// SetMinimized toggles the minimized flag. Conversation state is unaffected.
func (s *Session) SetMinimized(min bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minimized = min
	s.lastActive = time.Now()
}

// SetLanguage records the locale passed through to completion requests.
func (s *Session) SetLanguage(lang string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = lang
}

// Language returns the selected locale code.
func (s *Session) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// LastActive returns the time of the last visitor interaction.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Close disposes the session. An in-flight completion response arriving
// after Close is discarded; subscribers are disconnected.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.open = false
	s.mu.Unlock()

	if s.voice != nil {
		s.voice.Stop()
	}
	s.events.Close()
}

// containsAny reports whether text contains any of the given keywords.
// Matching is substring-based; callers pass lower-cased text.
func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
