package queue

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"stencil/internal/config"
)

// Store manages queue persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the queue database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.DataDir, "queue.db"))
}

// OpenPath connects to the queue database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
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

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Health returns diagnostic information about the queue database.
func (s *Store) Health(ctx context.Context) DatabaseHealth {
	health := DatabaseHealth{DBPath: s.path}

	if _, err := os.Stat(s.path); err != nil {
		health.Error = err.Error()
		return health
	}
	health.DatabaseExists = true

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		health.Error = fmt.Sprintf("read schema version: %v", err)
		return health
	}
	health.DatabaseReadable = true
	health.SchemaVersion = fmt.Sprintf("%d", version)

	var tableExists int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='work_items'",
	).Scan(&tableExists); err != nil {
		health.Error = fmt.Sprintf("check work_items table: %v", err)
		return health
	}
	health.TableExists = tableExists > 0

	var integrity string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrity); err == nil {
		health.IntegrityCheck = integrity == "ok"
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM work_items").Scan(&health.TotalItems); err != nil {
		health.Error = fmt.Sprintf("count items: %v", err)
	}

	return health
}

// Summary aggregates queue counts per pipeline gate.
func (s *Store) Summary(ctx context.Context, attemptLimit int) (HealthSummary, error) {
	var summary HealthSummary
	row := s.db.QueryRowContext(ctx, `
        SELECT
            COUNT(1),
            SUM(CASE WHEN parsed = 0 AND shipped = 0 AND parse_attempts < ? THEN 1 ELSE 0 END),
            SUM(CASE WHEN parsed = 1 AND ai_succeeded = 1 AND proof_requested = 0 AND custom_request = 0 AND artwork_generated = 0 THEN 1 ELSE 0 END),
            SUM(CASE WHEN artwork_generated = 1 AND artwork_succeeded = 1 AND nested = 0 AND shipped = 0 AND proof_requested = 0 AND custom_request = 0 THEN 1 ELSE 0 END),
            SUM(nested),
            SUM(shipped),
            SUM(tag_applied),
            SUM(CASE WHEN proof_requested = 1 OR custom_request = 1 THEN 1 ELSE 0 END),
            SUM(CASE WHEN generation_error IS NOT NULL AND TRIM(generation_error) != '' THEN 1 ELSE 0 END)
        FROM work_items`, attemptLimit)
	var awaitingParse, awaitingArtwork, awaitingNesting, nested, shipped, tagged, onHold, genErrors sql.NullInt64
	if err := row.Scan(&summary.Total, &awaitingParse, &awaitingArtwork, &awaitingNesting,
		&nested, &shipped, &tagged, &onHold, &genErrors); err != nil {
		return summary, fmt.Errorf("summarize queue: %w", err)
	}
	summary.AwaitingParse = int(awaitingParse.Int64)
	summary.AwaitingArtwork = int(awaitingArtwork.Int64)
	summary.AwaitingNesting = int(awaitingNesting.Int64)
	summary.Nested = int(nested.Int64)
	summary.Shipped = int(shipped.Int64)
	summary.Tagged = int(tagged.Int64)
	summary.OnHold = int(onHold.Int64)
	summary.GenerationErrors = int(genErrors.Int64)

	review, err := s.ManualReviewItems(ctx, attemptLimit)
	if err != nil {
		return summary, err
	}
	summary.ManualReview = len(review)
	return summary, nil
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
