// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/avelora/concierge/internal/domain"
)

// Repository persists the data that outlives a widget session: feedback
// submissions and lifetime reward totals. Conversation history is
// deliberately not persisted.
type Repository interface {
	// SaveFeedback records a qualitative feedback submission.
	SaveFeedback(ctx context.Context, fb *domain.FeedbackSubmission) error

	// ListFeedback returns the most recent submissions for a variant,
	// newest first. An empty variant returns submissions for all variants.
	ListFeedback(ctx context.Context, variant domain.VariantID, limit int) ([]*domain.FeedbackSubmission, error)

	// CountFeedback returns submission counts per variant.
	CountFeedback(ctx context.Context) (map[domain.VariantID]int, error)

	// AddReward accumulates awarded points, badges and interactions into
	// the visitor's lifetime totals.
	AddReward(ctx context.Context, userID string, points int, badges []string, interactions int) error

	// GetRewardTotals returns the visitor's lifetime totals, or nil if the
	// visitor has never been awarded anything.
	GetRewardTotals(ctx context.Context, userID string) (*domain.RewardTotals, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
