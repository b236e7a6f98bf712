package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	harvester "github.com/jamesprial/go-reddit-harvester"
	"github.com/jamesprial/go-reddit-harvester/schema"
)

// PostgresStorage implements the harvester.Store interface for PostgreSQL
type PostgresStorage struct {
	db *sql.DB
}

var _ harvester.Store = (*PostgresStorage)(nil)

// PoolConfig configures the PostgreSQL connection pool
type PoolConfig struct {
	// MaxOpenConns sets the maximum number of open connections to the database
	// Default: 0 (unlimited)
	MaxOpenConns int

	// MaxIdleConns sets the maximum number of connections in the idle connection pool
	// Default: 2
	MaxIdleConns int

	// ConnMaxLifetime sets the maximum amount of time a connection may be reused
	ConnMaxLifetime time.Duration

	// ConnMaxIdleTime sets the maximum amount of time a connection may be idle
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig returns pool settings sized for a single sequential
// harvest process
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

// New creates a new PostgreSQL storage instance with default pool configuration
func New(connString string) (*PostgresStorage, error) {
	return NewWithPool(connString, DefaultPoolConfig())
}

// NewWithPool creates a new PostgreSQL storage instance with custom pool configuration
func NewWithPool(connString string, config *PoolConfig) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, &harvester.HarvestError{Op: "open", Err: err}
	}

	if config != nil {
		db.SetMaxOpenConns(config.MaxOpenConns)
		db.SetMaxIdleConns(config.MaxIdleConns)
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
		db.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &harvester.HarvestError{Op: "ping", Err: err}
	}

	return &PostgresStorage{db: db}, nil
}

// RunMigrations runs all pending database migrations
func (s *PostgresStorage) RunMigrations(ctx context.Context) error {
	runner, err := schema.NewMigrationRunner(s.db, schema.Postgres)
	if err != nil {
		return &harvester.HarvestError{Op: "create_migration_runner", Err: err}
	}

	if err := runner.Run(ctx); err != nil {
		return &harvester.HarvestError{Op: "run_migrations", Err: err}
	}

	return nil
}

// Close closes the database connection
func (s *PostgresStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return &harvester.HarvestError{Op: "close", Err: err}
	}
	return nil
}

// BeginRun records a new run
func (s *PostgresStorage) BeginRun(ctx context.Context, run *harvester.Run) error {
	query := `
		INSERT INTO harvest_runs (
			id, subreddits, after_utc, before_utc, status, started_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID.String(), pq.Array(run.Subreddits), run.After.Unix(), run.Before.Unix(),
		string(run.Status), timeOrNil(run.StartedAt),
	)
	if err != nil {
		return &harvester.HarvestError{Op: "begin_run", Err: err}
	}

	return nil
}

// FinishRun stores the final status of a run
func (s *PostgresStorage) FinishRun(ctx context.Context, run *harvester.Run) error {
	query := `
		UPDATE harvest_runs
		SET status = $1, error = NULLIF($2, ''), finished_at = $3
		WHERE id = $4
	`

	res, err := s.db.ExecContext(ctx, query,
		string(run.Status), run.Error, timeOrNil(run.FinishedAt), run.ID.String(),
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
func (s *PostgresStorage) GetRun(ctx context.Context, id uuid.UUID) (*harvester.Run, error) {
	query := `
		SELECT id, subreddits, after_utc, before_utc, status, COALESCE(error, ''),
		       started_at, finished_at
		FROM harvest_runs
		WHERE id = $1
	`

	var (
		run        harvester.Run
		rawID      string
		afterUTC   int64
		beforeUTC  int64
		status     string
		startedAt  sql.NullTime
		finishedAt sql.NullTime
	)

	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(
		&rawID, pq.Array(&run.Subreddits), &afterUTC, &beforeUTC, &status, &run.Error,
		&startedAt, &finishedAt,
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

	run.After = time.Unix(afterUTC, 0).UTC()
	run.Before = time.Unix(beforeUTC, 0).UTC()
	run.Status = harvester.RunStatus(status)
	run.StartedAt = fromNullTime(startedAt)
	run.FinishedAt = fromNullTime(finishedAt)

	return &run, nil
}
