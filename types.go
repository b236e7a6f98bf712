package harvester

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DefaultFields is the column set requested from the archive and written to
// every output file, in header order.
var DefaultFields = []string{
	"body", "author", "created_utc", "id",
	"link_id", "parent_id", "subreddit", "subreddit_id",
}

// Comment is a single comment record as returned by the archive service
type Comment struct {
	ID          string `json:"id"`
	Body        string `json:"body"`
	Author      string `json:"author"`
	CreatedUTC  int64  `json:"created_utc"`
	LinkID      string `json:"link_id"`
	ParentID    string `json:"parent_id"`
	Subreddit   string `json:"subreddit"`
	SubredditID string `json:"subreddit_id"`
}

// Field returns the value of the named column rendered as text.
func (c *Comment) Field(name string) string {
	switch name {
	case "body":
		return c.Body
	case "author":
		return c.Author
	case "created_utc":
		return strconv.FormatInt(c.CreatedUTC, 10)
	case "id":
		return c.ID
	case "link_id":
		return c.LinkID
	case "parent_id":
		return c.ParentID
	case "subreddit":
		return c.Subreddit
	case "subreddit_id":
		return c.SubredditID
	}
	return ""
}

// IsCommentField reports whether name is a column Comment can render
func IsCommentField(name string) bool {
	for _, f := range DefaultFields {
		if f == name {
			return true
		}
	}
	return false
}

// SearchRequest describes one archive search for a single query term
type SearchRequest struct {
	Query      string
	Subreddits []string
	Limit      int // 0 means unbounded
	After      time.Time
	Before     time.Time
	Fields     []string
	Metadata   bool
}

// SearchResult holds everything the archive returned for a request
type SearchResult struct {
	Comments []Comment
	Metadata *Metadata // nil unless metadata was requested
}

// Metadata is the service-reported summary of a search
type Metadata struct {
	TotalResults     int
	TimedOut         bool
	ShardsTotal      int
	ShardsSuccessful int
	ShardsFailed     int
	ExecutionTime    time.Duration
}

// RunStatus is the lifecycle state of a harvest run
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run identifies one invocation of the pipeline
type Run struct {
	ID         uuid.UUID
	Subreddits []string
	After      time.Time
	Before     time.Time
	Status     RunStatus
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// QueryStats records the outcome for a single query term
type QueryStats struct {
	Query    string
	Comments int
}

// RunStats summarizes a finished run
type RunStats struct {
	RunID    uuid.UUID
	Queries  []QueryStats
	Comments int
	Elapsed  time.Duration
}
