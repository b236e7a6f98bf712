package pushshift

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	harvester "github.com/jamesprial/go-reddit-harvester"
)

type searchResponse struct {
	Data     []rawComment  `json:"data"`
	Metadata *metadataJSON `json:"metadata"`
}

// rawComment mirrors harvester.Comment, but created_utc may arrive as an
// integer or a float depending on the archive shard.
type rawComment struct {
	ID          string      `json:"id"`
	Body        string      `json:"body"`
	Author      string      `json:"author"`
	CreatedUTC  json.Number `json:"created_utc"`
	LinkID      string      `json:"link_id"`
	ParentID    string      `json:"parent_id"`
	Subreddit   string      `json:"subreddit"`
	SubredditID string      `json:"subreddit_id"`
}

func (rc rawComment) toComment() (harvester.Comment, error) {
	c := harvester.Comment{
		ID:          rc.ID,
		Body:        rc.Body,
		Author:      rc.Author,
		LinkID:      rc.LinkID,
		ParentID:    rc.ParentID,
		Subreddit:   rc.Subreddit,
		SubredditID: rc.SubredditID,
	}

	if rc.CreatedUTC == "" {
		return c, nil
	}
	if n, err := rc.CreatedUTC.Int64(); err == nil {
		c.CreatedUTC = n
		return c, nil
	}
	f, err := rc.CreatedUTC.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return c, fmt.Errorf("comment %s: invalid created_utc %q", rc.ID, rc.CreatedUTC)
	}
	c.CreatedUTC = int64(f)
	return c, nil
}

type metadataJSON struct {
	TotalResults    int     `json:"total_results"`
	TimedOut        bool    `json:"timed_out"`
	ExecutionTimeMS float64 `json:"execution_time_milliseconds"`
	Shards          struct {
		Total      int `json:"total"`
		Successful int `json:"successful"`
		Skipped    int `json:"skipped"`
		Failed     int `json:"failed"`
	} `json:"shards"`
}

func (m *metadataJSON) toMetadata() *harvester.Metadata {
	return &harvester.Metadata{
		TotalResults:     m.TotalResults,
		TimedOut:         m.TimedOut,
		ShardsTotal:      m.Shards.Total,
		ShardsSuccessful: m.Shards.Successful,
		ShardsFailed:     m.Shards.Failed,
		ExecutionTime:    time.Duration(m.ExecutionTimeMS * float64(time.Millisecond)),
	}
}
