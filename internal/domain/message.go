// Package domain contains core domain types for the Concierge widget service.
package domain

import (
	"time"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Category tags an assistant message for conditional rendering (icons,
// borders) and for replay filtering. An empty Category means the message is
// part of the plain conversation.
type Category string

const (
	CategoryRecommendation Category = "recommendation"
	CategoryQuiz           Category = "quiz"
	CategorySupport        Category = "support"
	CategoryFeedback       Category = "feedback"
	CategoryReward         Category = "reward"
	CategoryThreat         Category = "threat"
	CategoryGuidance       Category = "guidance"
	CategoryBestPractice   Category = "best-practice"
	CategorySolution       Category = "solution"
	CategoryStrategy       Category = "strategy"
	CategoryInsight        Category = "insight"
	CategoryAnalysis       Category = "analysis"
)

// Severity grades a security-variant message. Purely presentational.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Message is a single entry in a widget conversation. Messages are never
// mutated after creation; display order equals insertion order.
type Message struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	Category  Category  `json:"category,omitempty"`
	Severity  Severity  `json:"severity,omitempty"`
	Options   []string  `json:"options,omitempty"` // answer options for quiz prompts
	CreatedAt time.Time `json:"created_at"`
}

// IsSideChannel reports whether the message is a UI side-channel message
// (a categorized assistant message such as a quiz prompt or reward notice)
// rather than part of the semantic conversation replayed to the model.
func (m Message) IsSideChannel() bool {
	return m.Sender == SenderAssistant && m.Category != ""
}
