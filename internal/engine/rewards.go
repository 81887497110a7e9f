package engine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/avelora/concierge/internal/domain"
)

const (
	// bonusInterval is the interaction cadence that triggers a bonus notice.
	bonusInterval = 5
	// feedbackBonusPoints is awarded for submitting qualitative feedback.
	feedbackBonusPoints = 50
	// badgeFeedbackContributor marks users who have submitted feedback.
	badgeFeedbackContributor = "feedback_contributor"
)

// AwardHook is invoked after each award with the deltas of that award, so a
// collaborator (the persistence layer) can accumulate lifetime totals.
type AwardHook func(points int, newBadges []string, interactions int)

// RewardTracker accumulates session-scoped points and badges. Award is the
// only mutator; points and interaction count never decrease within a session.
type RewardTracker struct {
	store *MessageStore

	mu           sync.Mutex
	points       int
	interactions int
	badges       map[string]struct{}
	onAward      AwardHook
}

// NewRewardTracker creates a tracker that emits its notices into store.
func NewRewardTracker(store *MessageStore, onAward AwardHook) *RewardTracker {
	return &RewardTracker{
		store:   store,
		badges:  make(map[string]struct{}),
		onAward: onAward,
	}
}

// Award adds points, unions badges into the badge set and counts one
// qualifying interaction. Every bonusInterval-th interaction additionally
// emits a bonus notice naming the just-awarded points and the first badge
// that is new in this call.
func (t *RewardTracker) Award(points int, badges []string) {
	if points < 0 {
		points = 0
	}

	t.mu.Lock()
	t.points += points
	var newBadges []string
	for _, b := range badges {
		if _, ok := t.badges[b]; !ok {
			t.badges[b] = struct{}{}
			newBadges = append(newBadges, b)
		}
	}
	t.interactions++
	milestone := t.interactions%bonusInterval == 0
	interactions := t.interactions
	hook := t.onAward
	t.mu.Unlock()

	if milestone {
		notice := fmt.Sprintf("🎉 Milestone! That's %d interactions — bonus %d points awarded.", interactions, points)
		if len(newBadges) > 0 {
			notice += fmt.Sprintf(" New badge unlocked: %s.", newBadges[0])
		}
		t.store.Append(domain.SenderAssistant, notice, domain.CategoryReward, "")
	}

	if hook != nil {
		hook(points, newBadges, 1)
	}
}

// PromptFeedback emits the feedback question. Reward state is not mutated.
func (t *RewardTracker) PromptFeedback() {
	t.store.Append(domain.SenderAssistant,
		"We'd love your feedback! How has your experience been so far?",
		domain.CategoryFeedback, "")
}

// SubmitFeedback thanks the user and grants the fixed feedback bonus. The
// user's own feedback message is appended by the orchestrator before it
// delegates here, so only assistant-side messages are produced.
func (t *RewardTracker) SubmitFeedback(text string) {
	_ = text
	t.store.Append(domain.SenderAssistant,
		fmt.Sprintf("Thank you for the feedback! You've earned %d bonus points.", feedbackBonusPoints),
		domain.CategoryReward, "")
	t.Award(feedbackBonusPoints, []string{badgeFeedbackContributor})
}

// Points returns the session point total.
func (t *RewardTracker) Points() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.points
}

// Interactions returns the qualifying interaction count.
func (t *RewardTracker) Interactions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interactions
}

// Badges returns the badge set in sorted order.
func (t *RewardTracker) Badges() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.badges))
	for b := range t.badges {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}
