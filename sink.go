package harvester

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sink persists the comments returned for one query term
type Sink interface {
	WriteQuery(ctx context.Context, run *Run, query string, comments []Comment) error
}

// RunRecorder is implemented by sinks that track run lifecycle
type RunRecorder interface {
	BeginRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, run *Run) error
}

// Store is an archive sink backed by a database
type Store interface {
	Sink
	RunRecorder

	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	GetQueryComments(ctx context.Context, runID uuid.UUID, query string) ([]Comment, error)
	CountQueryComments(ctx context.Context, runID uuid.UUID, query string) (int, error)

	// Management
	RunMigrations(ctx context.Context) error
	Close() error
}

// Searcher queries the comment archive
type Searcher interface {
	SearchComments(ctx context.Context, req SearchRequest) (*SearchResult, error)
}

// HarvestError represents a failed pipeline operation
type HarvestError struct {
	Op  string // Operation being performed
	Err error  // Underlying error
}

func (e *HarvestError) Error() string {
	return fmt.Sprintf("harvest error during %s: %v", e.Op, e.Err)
}

func (e *HarvestError) Unwrap() error {
	return e.Err
}

// ErrRunNotFound is wrapped by stores when a run ID is unknown
var ErrRunNotFound = errors.New("run not found")
