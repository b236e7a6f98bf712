package testutil

import (
	"time"

	"github.com/google/uuid"

	harvester "github.com/jamesprial/go-reddit-harvester"
)

// NewTestComment creates a top-level test comment on the given post
func NewTestComment(id, postID, author, body string) harvester.Comment {
	return harvester.Comment{
		ID:          id,
		Body:        body,
		Author:      author,
		CreatedUTC:  time.Now().Unix(),
		LinkID:      "t3_" + postID,
		ParentID:    "t3_" + postID,
		Subreddit:   "golang",
		SubredditID: "t5_2rc7j",
	}
}

// NewTestRun creates a run over a fixed one-year window
func NewTestRun() *harvester.Run {
	return &harvester.Run{
		ID:         uuid.New(),
		Subreddits: []string{"golang", "programming"},
		After:      time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		Before:     time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:     harvester.RunRunning,
		StartedAt:  time.Now().UTC().Truncate(time.Second),
	}
}

// NewTestParams returns runnable parameters for the given query terms
func NewTestParams(queries ...string) harvester.Params {
	return harvester.Params{
		Subreddits: []string{"golang", "programming"},
		Queries:    queries,
		After:      time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		Before:     time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		Fields:     harvester.DefaultFields,
		Metadata:   true,
	}
}
