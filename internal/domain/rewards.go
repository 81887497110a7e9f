package domain

import "time"

// FeedbackSubmission is a persisted qualitative feedback entry.
type FeedbackSubmission struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Variant   VariantID `json:"variant"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// RewardTotals is the persisted lifetime reward state for a visitor,
// accumulated across widget sessions. Session-scoped reward state lives in
// the engine; these totals are the only reward data that survives a session.
type RewardTotals struct {
	UserID       string    `json:"user_id"`
	Points       int       `json:"points"`
	Badges       []string  `json:"badges"`
	Interactions int       `json:"interactions"`
	UpdatedAt    time.Time `json:"updated_at"`
}
