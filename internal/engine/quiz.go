package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/avelora/concierge/internal/domain"
)

// QuizFlow is a two-state machine (inactive / awaiting answer) that walks the
// visitor through the variant's fixed question flow and ends with a
// deterministic recommendation. The observed flows have a single question,
// but the index advances so multi-question content works unchanged.
type QuizFlow struct {
	store      *MessageStore
	content    domain.QuizContent
	thinkDelay time.Duration

	mu      sync.Mutex
	active  bool
	index   int
	answers map[string]string
}

// NewQuizFlow creates an inactive quiz flow. thinkDelay is the simulated
// "thinking" pause before the recommendation is emitted; zero disables it.
func NewQuizFlow(store *MessageStore, content domain.QuizContent, thinkDelay time.Duration) *QuizFlow {
	return &QuizFlow{
		store:      store,
		content:    content,
		thinkDelay: thinkDelay,
	}
}

// Active reports whether the flow is awaiting an answer.
func (q *QuizFlow) Active() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

// Start transitions inactive → awaiting answer, resets progress and emits the
// first question with its answer options. Starting while already active is a
// no-op.
func (q *QuizFlow) Start() {
	q.mu.Lock()
	if q.active || len(q.content.Questions) == 0 {
		q.mu.Unlock()
		return
	}
	q.active = true
	q.index = 0
	q.answers = make(map[string]string)
	question := q.content.Questions[0]
	q.mu.Unlock()

	q.store.AppendWithOptions(domain.SenderAssistant, question.Prompt, domain.CategoryQuiz, question.Options)
}

// SubmitAnswer records the answer for the current question. If more
// questions remain the next one is asked; otherwise the flow pauses for the
// simulated think delay, emits the recommendation and returns to inactive.
// Submitting while inactive is a caller error and a no-op.
//
// The visitor's answer message is appended by the orchestrator before it
// delegates here.
func (q *QuizFlow) SubmitAnswer(ctx context.Context, answer string) {
	q.mu.Lock()
	if !q.active {
		q.mu.Unlock()
		return
	}

	question := q.content.Questions[q.index]
	q.answers[question.ID] = answer
	q.index++

	if q.index < len(q.content.Questions) {
		next := q.content.Questions[q.index]
		q.mu.Unlock()
		q.store.AppendWithOptions(domain.SenderAssistant, next.Prompt, domain.CategoryQuiz, next.Options)
		return
	}

	q.active = false
	delay := q.thinkDelay
	q.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return
		}
	}

	q.store.Append(domain.SenderAssistant, q.recommend(answer), domain.CategoryRecommendation, "")
}

// recommend maps the final answer to the variant's recommended offering.
func (q *QuizFlow) recommend(answer string) string {
	if rec, ok := q.content.Recommendations[strings.ToLower(strings.TrimSpace(answer))]; ok {
		return rec
	}
	return q.content.Fallback
}

// Answers returns a copy of the collected answers.
func (q *QuizFlow) Answers() map[string]string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[string]string, len(q.answers))
	for k, v := range q.answers {
		out[k] = v
	}
	return out
}
