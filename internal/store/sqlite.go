package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/avelora/concierge/internal/domain"
	"github.com/avelora/concierge/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db       *sql.DB
	rewardMu sync.Mutex // serializes reward read-modify-write to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS feedback_submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		variant TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_variant ON feedback_submissions(variant, created_at);

	CREATE TABLE IF NOT EXISTS reward_totals (
		user_id TEXT PRIMARY KEY,
		points INTEGER NOT NULL DEFAULT 0,
		badges_json TEXT NOT NULL DEFAULT '[]',
		interactions INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveFeedback records a qualitative feedback submission.
func (s *SQLiteStore) SaveFeedback(ctx context.Context, fb *domain.FeedbackSubmission) error {
	query := `
	INSERT INTO feedback_submissions (user_id, variant, content, created_at)
	VALUES (?, ?, ?, ?)`

	createdAt := fb.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, query, fb.UserID, string(fb.Variant), fb.Content, createdAt.Unix())
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		fb.ID = id
	}
	return nil
}

// ListFeedback returns the most recent submissions, newest first.
func (s *SQLiteStore) ListFeedback(ctx context.Context, variant domain.VariantID, limit int) ([]*domain.FeedbackSubmission, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, variant, content, created_at
		FROM feedback_submissions`
	args := []interface{}{}
	if variant != "" {
		query += ` WHERE variant = ?`
		args = append(args, string(variant))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.FeedbackSubmission
	for rows.Next() {
		var fb domain.FeedbackSubmission
		var v string
		var createdAt int64
		if err := rows.Scan(&fb.ID, &fb.UserID, &v, &fb.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan feedback row: %w", err)
		}
		fb.Variant = domain.VariantID(v)
		fb.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, &fb)
	}
	return out, rows.Err()
}

// CountFeedback returns submission counts per variant.
func (s *SQLiteStore) CountFeedback(ctx context.Context) (map[domain.VariantID]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT variant, COUNT(*) FROM feedback_submissions GROUP BY variant`)
	if err != nil {
		return nil, fmt.Errorf("count feedback: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[domain.VariantID]int)
	for rows.Next() {
		var variant string
		var n int
		if err := rows.Scan(&variant, &n); err != nil {
			return nil, fmt.Errorf("scan feedback count: %w", err)
		}
		counts[domain.VariantID(variant)] = n
	}
	return counts, rows.Err()
}

// AddReward accumulates points, badges and interactions into lifetime totals.
func (s *SQLiteStore) AddReward(ctx context.Context, userID string, points int, badges []string, interactions int) error {
	s.rewardMu.Lock()
	defer s.rewardMu.Unlock()

	totals, err := s.getRewardTotals(ctx, userID)
	if err != nil {
		return err
	}
	if totals == nil {
		totals = &domain.RewardTotals{UserID: userID}
	}

	totals.Points += points
	totals.Interactions += interactions
	totals.Badges = unionBadges(totals.Badges, badges)
	totals.UpdatedAt = time.Now()

	badgesJSON, err := json.Marshal(totals.Badges)
	if err != nil {
		return fmt.Errorf("marshal badges: %w", err)
	}

	query := `
	INSERT INTO reward_totals (user_id, points, badges_json, interactions, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		points = excluded.points,
		badges_json = excluded.badges_json,
		interactions = excluded.interactions,
		updated_at = excluded.updated_at`

	// Reward writes race the sweep and feedback writers; retry on
	// SQLITE_BUSY with backoff rather than dropping the award.
	maxRetries := 3
	baseDelay := 50 * time.Millisecond
	for i := 0; i < maxRetries; i++ {
		_, err = s.db.ExecContext(ctx, query,
			totals.UserID, totals.Points, string(badgesJSON),
			totals.Interactions, totals.UpdatedAt.Unix(),
		)
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxRetries-1 {
			break
		}
		time.Sleep(baseDelay * time.Duration(1<<i))
	}
	return fmt.Errorf("upsert reward totals: %w", err)
}

// GetRewardTotals returns the visitor's lifetime totals, or nil if unknown.
func (s *SQLiteStore) GetRewardTotals(ctx context.Context, userID string) (*domain.RewardTotals, error) {
	return s.getRewardTotals(ctx, userID)
}

func (s *SQLiteStore) getRewardTotals(ctx context.Context, userID string) (*domain.RewardTotals, error) {
	query := `
		SELECT user_id, points, badges_json, interactions, updated_at
		FROM reward_totals WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var totals domain.RewardTotals
	var badgesJSON string
	var updatedAt int64

	err := row.Scan(&totals.UserID, &totals.Points, &badgesJSON, &totals.Interactions, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan reward totals: %w", err)
	}

	if err := json.Unmarshal([]byte(badgesJSON), &totals.Badges); err != nil {
		return nil, fmt.Errorf("unmarshal badges: %w", err)
	}
	totals.UpdatedAt = time.Unix(updatedAt, 0)

	return &totals, nil
}

func unionBadges(existing, added []string) []string {
	seen := make(map[string]struct{}, len(existing))
	out := make([]string, 0, len(existing)+len(added))
	for _, b := range existing {
		if _, ok := seen[b]; !ok {
			seen[b] = struct{}{}
			out = append(out, b)
		}
	}
	for _, b := range added {
		if _, ok := seen[b]; !ok {
			seen[b] = struct{}{}
			out = append(out, b)
		}
	}
	return out
}

var _ Repository = (*SQLiteStore)(nil)
