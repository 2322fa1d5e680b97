// Package state persists build history in SQLite so the history command and
// the daemon API can report past builds across process restarts.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// BuildRecord is one completed build attempt.
type BuildRecord struct {
	ID            string        `json:"id"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
	Outcome       string        `json:"outcome"` // success | failed
	ExitCode      int           `json:"exit_code"`
	Engine        string        `json:"engine"`
	EngineVersion string        `json:"engine_version,omitempty"`
	Commit        string        `json:"commit,omitempty"`
	Dirty         bool          `json:"dirty,omitempty"`
	Pages         int           `json:"pages,omitempty"`
	Warnings      int           `json:"warnings,omitempty"`
	Artifact      string        `json:"artifact,omitempty"`
	Trigger       string        `json:"trigger"` // cli | watch | schedule
}

// Stats aggregates history for the status surface.
type Stats struct {
	Total         int           `json:"total"`
	Successes     int           `json:"successes"`
	Failures      int           `json:"failures"`
	AvgDuration   time.Duration `json:"avg_duration"`
	LastBuildTime time.Time     `json:"last_build_time"`
}

// Store is a SQLite-backed build history store.
// Use ":memory:" for an in-memory database, or a file path for persistence.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore opens (and if necessary creates) the history database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		exit_code INTEGER NOT NULL,
		engine TEXT NOT NULL,
		engine_version TEXT,
		commit_hash TEXT,
		dirty INTEGER NOT NULL DEFAULT 0,
		pages INTEGER NOT NULL DEFAULT 0,
		warnings INTEGER NOT NULL DEFAULT 0,
		artifact TEXT,
		trigger_kind TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at);
	CREATE INDEX IF NOT EXISTS idx_builds_outcome ON builds(outcome);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends a completed build to the history.
func (s *Store) Record(ctx context.Context, rec *BuildRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds
		(id, started_at, duration_ms, outcome, exit_code, engine, engine_version, commit_hash, dirty, pages, warnings, artifact, trigger_kind)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.StartedAt.Unix(), rec.Duration.Milliseconds(), rec.Outcome, rec.ExitCode,
		rec.Engine, rec.EngineVersion, rec.Commit, boolToInt(rec.Dirty), rec.Pages, rec.Warnings,
		rec.Artifact, rec.Trigger,
	)
	if err != nil {
		return fmt.Errorf("insert build record: %w", err)
	}
	return nil
}

// Recent returns up to limit builds, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]BuildRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, duration_ms, outcome, exit_code, engine, engine_version, commit_hash, dirty, pages, warnings, artifact, trigger_kind
		FROM builds ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	var records []BuildRecord
	for rows.Next() {
		var rec BuildRecord
		var started int64
		var durationMS int64
		var dirty int
		var engineVersion, commit, artifact sql.NullString

		if err := rows.Scan(&rec.ID, &started, &durationMS, &rec.Outcome, &rec.ExitCode,
			&rec.Engine, &engineVersion, &commit, &dirty, &rec.Pages, &rec.Warnings,
			&artifact, &rec.Trigger); err != nil {
			return nil, fmt.Errorf("scan build record: %w", err)
		}

		rec.StartedAt = time.Unix(started, 0)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.Dirty = dirty != 0
		rec.EngineVersion = engineVersion.String
		rec.Commit = commit.String
		rec.Artifact = artifact.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Stats aggregates the full history.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN outcome = 'success' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(duration_ms), 0),
			COALESCE(MAX(started_at), 0)
		FROM builds`)

	var stats Stats
	var avgMS float64
	var lastStarted int64
	if err := row.Scan(&stats.Total, &stats.Successes, &avgMS, &lastStarted); err != nil {
		return nil, fmt.Errorf("aggregate builds: %w", err)
	}

	stats.Failures = stats.Total - stats.Successes
	stats.AvgDuration = time.Duration(avgMS) * time.Millisecond
	if lastStarted > 0 {
		stats.LastBuildTime = time.Unix(lastStarted, 0)
	}
	return &stats, nil
}

// Prune keeps the newest keep records and deletes the rest.
func (s *Store) Prune(ctx context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 {
		keep = 0
	}

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM builds WHERE id NOT IN (
			SELECT id FROM builds ORDER BY started_at DESC, id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return fmt.Errorf("prune builds: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
