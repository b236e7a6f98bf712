package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	harvester "github.com/jamesprial/go-reddit-harvester"
	"github.com/jamesprial/go-reddit-harvester/schema"
)

// SQLiteStorage implements the harvester.Store interface for SQLite
type SQLiteStorage struct {
	db *sql.DB
}

var _ harvester.Store = (*SQLiteStorage)(nil)

// New creates a new SQLite storage instance
func New(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, &harvester.HarvestError{Op: "open", Err: err}
	}

	// PRAGMAs are per connection, so keep a single one
	db.SetMaxOpenConns(1)

	// Enable foreign keys and WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, &harvester.HarvestError{Op: "enable_foreign_keys", Err: err}
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, &harvester.HarvestError{Op: "enable_wal", Err: err}
	}

	return &SQLiteStorage{db: db}, nil
}

// RunMigrations runs all pending database migrations
func (s *SQLiteStorage) RunMigrations(ctx context.Context) error {
	runner, err := schema.NewMigrationRunner(s.db, schema.SQLite)
	if err != nil {
		return &harvester.HarvestError{Op: "create_migration_runner", Err: err}
	}

	if err := runner.Run(ctx); err != nil {
		return &harvester.HarvestError{Op: "run_migrations", Err: err}
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return &harvester.HarvestError{Op: "close", Err: err}
	}
	return nil
}

// BeginRun records a new run
func (s *SQLiteStorage) BeginRun(ctx context.Context, run *harvester.Run) error {
	subreddits, err := json.Marshal(run.Subreddits)
	if err != nil {
		return &harvester.HarvestError{Op: "marshal_subreddits", Err: err}
	}

	query := `
		INSERT INTO harvest_runs (
			id, subreddits, after_utc, before_utc, status, started_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		run.ID.String(), string(subreddits), run.After.Unix(), run.Before.Unix(),
		string(run.Status), unixOrNil(run.StartedAt),
	)
	if err != nil {
		return &harvester.HarvestError{Op: "begin_run", Err: err}
	}

	return nil
}

// FinishRun stores the final status of a run
func (s *SQLiteStorage) FinishRun(ctx context.Context, run *harvester.Run) error {
	query := `
		UPDATE harvest_runs
		SET status = ?, error = ?, finished_at = ?
		WHERE id = ?
	`

	var runErr interface{}
	if run.Error != "" {
		runErr = run.Error
	}

	res, err := s.db.ExecContext(ctx, query,
		string(run.Status), runErr, unixOrNil(run.FinishedAt), run.ID.String(),
	)
	if err != nil {
		return &harvester.HarvestError{Op: "finish_run", Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return &harvester.HarvestError{Op: "finish_run", Err: err}
	}
	if n == 0 {
		return &harvester.HarvestError{Op: "finish_run", Err: fmt.Errorf("%w: %s", harvester.ErrRunNotFound, run.ID)}
	}

	return nil
}

// GetRun retrieves a run by ID
func (s *SQLiteStorage) GetRun(ctx context.Context, id uuid.UUID) (*harvester.Run, error) {
	query := `
		SELECT id, subreddits, after_utc, before_utc, status, error, started_at, finished_at
		FROM harvest_runs
		WHERE id = ?
	`

	var (
		run        harvester.Run
		rawID      string
		subreddits string
		afterUTC   int64
		beforeUTC  int64
		status     string
		runErr     sql.NullString
		startedAt  sql.NullInt64
		finishedAt sql.NullInt64
	)

	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(
		&rawID, &subreddits, &afterUTC, &beforeUTC, &status, &runErr, &startedAt, &finishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &harvester.HarvestError{Op: "get_run", Err: fmt.Errorf("%w: %s", harvester.ErrRunNotFound, id)}
	}
	if err != nil {
		return nil, &harvester.HarvestError{Op: "get_run", Err: err}
	}

	if run.ID, err = uuid.Parse(rawID); err != nil {
		return nil, &harvester.HarvestError{Op: "parse_run_id", Err: err}
	}
	if err := json.Unmarshal([]byte(subreddits), &run.Subreddits); err != nil {
		return nil, &harvester.HarvestError{Op: "unmarshal_subreddits", Err: err}
	}

	run.After = fromUnix(sql.NullInt64{Int64: afterUTC, Valid: true})
	run.Before = fromUnix(sql.NullInt64{Int64: beforeUTC, Valid: true})
	run.Status = harvester.RunStatus(status)
	run.Error = runErr.String
	run.StartedAt = fromUnix(startedAt)
	run.FinishedAt = fromUnix(finishedAt)

	return &run, nil
}
