// internal/history/history.go
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/dispatch"
)

// DBPool abstracts pgxpool.Pool so the store can be tested against a mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Recorder persists run summaries.
type Recorder interface {
	Record(ctx context.Context, s dispatch.Summary) error
}

const (
	sqlCreateTable = `
        CREATE TABLE IF NOT EXISTS dispatch_runs (
            id          TEXT PRIMARY KEY,
            target      TEXT        NOT NULL,
            attempted   INTEGER     NOT NULL,
            succeeded   INTEGER     NOT NULL,
            failed      INTEGER     NOT NULL,
            reason      TEXT        NOT NULL,
            started_at  TIMESTAMPTZ NOT NULL,
            finished_at TIMESTAMPTZ NOT NULL
        );
    `
	sqlInsertRun = `
        INSERT INTO dispatch_runs (id, target, attempted, succeeded, failed, reason, started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO NOTHING;
    `
	sqlRecentRuns = `
        SELECT id, target, attempted, succeeded, failed, reason, started_at, finished_at
        FROM dispatch_runs
        ORDER BY started_at DESC
        LIMIT $1;
    `
)

// Run is one row of the history table.
type Run struct {
	ID         string
	Target     string
	Attempted  int
	Succeeded  int
	Failed     int
	Reason     dispatch.Reason
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store keeps run history in PostgreSQL.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

var _ Recorder = (*Store)(nil)

// New creates a store and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool, log: logger.Named("history")}, nil
}

// Open connects to url, creates the schema if needed, and returns the store with
// a func that closes the pool.
func Open(ctx context.Context, url string, logger *zap.Logger) (*Store, func(), error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	s, err := New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool.Close, nil
}

// EnsureSchema creates the history table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, sqlCreateTable); err != nil {
		return fmt.Errorf("failed to create dispatch_runs table: %w", err)
	}
	return nil
}

// Record inserts the summary. Recording the same run twice is a no-op.
func (s *Store) Record(ctx context.Context, sum dispatch.Summary) error {
	_, err := s.pool.Exec(ctx, sqlInsertRun,
		sum.RunID,
		sum.Target.Title,
		sum.Attempted,
		sum.Succeeded,
		sum.Failed,
		string(sum.Reason),
		sum.StartedAt.UTC(),
		sum.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", sum.RunID, err)
	}
	s.log.Debug("Run recorded.", zap.String("run_id", sum.RunID))
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, sqlRecentRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var reason string
		if err := rows.Scan(&r.ID, &r.Target, &r.Attempted, &r.Succeeded, &r.Failed, &reason, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		r.Reason = dispatch.Reason(reason)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return runs, nil
}
