package glossary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// LearnedStore persists usage counters that feed the usage-learned tier.
// Counters survive restarts; concurrent writers are serialized by SQLite.
type LearnedStore struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// OpenLearnedStore initializes or connects to the learned-term database.
func OpenLearnedStore(path string) (*LearnedStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure learned store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open learned store: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &LearnedStore{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *LearnedStore) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS term_usage (
	term TEXT NOT NULL,
	candidate TEXT NOT NULL,
	count INTEGER NOT NULL DEFAULT 0,
	success_count INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (term, candidate)
);
CREATE INDEX IF NOT EXISTS idx_term_usage_term ON term_usage(term);
`
	if err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, schema)
		return err
	}); err != nil {
		return fmt.Errorf("initialize learned store schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *LearnedStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path reports the database file location.
func (s *LearnedStore) Path() string { return s.path }

// TrackUsage increments the observation counter for one (term, candidate)
// pair. Concurrent increments for the same pair are last-write-wins at the
// row level; counts never decrease.
func (s *LearnedStore) TrackUsage(ctx context.Context, term, candidate string, success bool) error {
	term = normalizeKey(term)
	candidate = strings.TrimSpace(candidate)
	if term == "" || candidate == "" {
		return nil
	}
	successInc := 0
	if success {
		successInc = 1
	}
	const query = `
INSERT INTO term_usage (term, candidate, count, success_count, updated_at)
VALUES (?, ?, 1, ?, ?)
ON CONFLICT(term, candidate) DO UPDATE SET
	count = count + 1,
	success_count = success_count + excluded.success_count,
	updated_at = excluded.updated_at`
	if err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, term, candidate, successInc, time.Now().UTC().Format(time.RFC3339))
		return err
	}); err != nil {
		return fmt.Errorf("track term usage: %w", err)
	}
	return nil
}

// LearnedTerm is one counted candidate translation.
type LearnedTerm struct {
	Term         string
	Candidate    string
	Count        int
	SuccessCount int
}

// Best returns the strongest candidate per term. Ordering is deterministic:
// higher success count wins, then higher total count, then lexicographic
// candidate as the final tiebreak.
func (s *LearnedStore) Best(ctx context.Context) (map[string]LearnedTerm, error) {
	const query = `
SELECT term, candidate, count, success_count
FROM term_usage
ORDER BY term ASC, success_count DESC, count DESC, candidate ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query learned terms: %w", err)
	}
	defer rows.Close()

	best := make(map[string]LearnedTerm)
	for rows.Next() {
		var entry LearnedTerm
		if err := rows.Scan(&entry.Term, &entry.Candidate, &entry.Count, &entry.SuccessCount); err != nil {
			return nil, fmt.Errorf("scan learned term: %w", err)
		}
		if _, seen := best[entry.Term]; !seen {
			best[entry.Term] = entry
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate learned terms: %w", err)
	}
	return best, nil
}

// All returns every counter row, ordered deterministically. Used by the
// glossary CLI for inspection.
func (s *LearnedStore) All(ctx context.Context) ([]LearnedTerm, error) {
	const query = `
SELECT term, candidate, count, success_count
FROM term_usage
ORDER BY term ASC, success_count DESC, count DESC, candidate ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query learned terms: %w", err)
	}
	defer rows.Close()

	var out []LearnedTerm
	for rows.Next() {
		var entry LearnedTerm
		if err := rows.Scan(&entry.Term, &entry.Candidate, &entry.Count, &entry.SuccessCount); err != nil {
			return nil, fmt.Errorf("scan learned term: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate learned terms: %w", err)
	}
	return out, nil
}

// LearnedSource adapts the store into a tier source. Weight carries the
// observation count so the frequency strategy can gate on sample size.
type LearnedSource struct {
	store *LearnedStore
}

// NewLearnedSource wraps a store as the usage-learned tier.
func NewLearnedSource(store *LearnedStore) *LearnedSource {
	return &LearnedSource{store: store}
}

func (s *LearnedSource) Tier() Tier { return TierLearned }

func (s *LearnedSource) Load(ctx context.Context) (map[string]Term, error) {
	if s.store == nil {
		return map[string]Term{}, nil
	}
	best, err := s.store.Best(ctx)
	if err != nil {
		return nil, err
	}
	terms := make(map[string]Term, len(best))
	for key, entry := range best {
		terms[key] = Term{
			Source:      key,
			Translation: entry.Candidate,
			Tier:        TierLearned,
			Weight:      float64(entry.Count),
		}
	}
	return terms, nil
}
