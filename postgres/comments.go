package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	harvester "github.com/jamesprial/go-reddit-harvester"
)

const upsertComment = `
	INSERT INTO comments (
		id, body, author, created_utc, link_id, parent_id,
		subreddit, subreddit_id, raw_json, last_updated
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, NOW()
	)
	ON CONFLICT (id) DO UPDATE SET
		body = COALESCE(NULLIF(EXCLUDED.body, ''), comments.body),
		author = COALESCE(NULLIF(EXCLUDED.author, ''), comments.author),
		created_utc = COALESCE(NULLIF(EXCLUDED.created_utc, 0), comments.created_utc),
		link_id = COALESCE(NULLIF(EXCLUDED.link_id, ''), comments.link_id),
		parent_id = COALESCE(NULLIF(EXCLUDED.parent_id, ''), comments.parent_id),
		subreddit = COALESCE(NULLIF(EXCLUDED.subreddit, ''), comments.subreddit),
		subreddit_id = COALESCE(NULLIF(EXCLUDED.subreddit_id, ''), comments.subreddit_id),
		raw_json = EXCLUDED.raw_json,
		last_updated = NOW()
`

// WriteQuery upserts the comments and links them to the query in service
// order, replacing any earlier results for the same query in this run
func (s *PostgresStorage) WriteQuery(ctx context.Context, run *harvester.Run, query string, comments []harvester.Comment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &harvester.HarvestError{Op: "begin_transaction", Err: err}
	}
	defer tx.Rollback()

	runID := run.ID.String()
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM query_results WHERE run_id = $1 AND query = $2", runID, query); err != nil {
		return &harvester.HarvestError{Op: "clear_query_results", Err: err}
	}

	commentStmt, err := tx.PrepareContext(ctx, upsertComment)
	if err != nil {
		return &harvester.HarvestError{Op: "prepare_statement", Err: err}
	}
	defer commentStmt.Close()

	linkStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO query_results (run_id, query, position, comment_id) VALUES ($1, $2, $3, $4)")
	if err != nil {
		return &harvester.HarvestError{Op: "prepare_statement", Err: err}
	}
	defer linkStmt.Close()

	for i := range comments {
		c := &comments[i]
		if c.ID == "" {
			return &harvester.HarvestError{Op: "insert_comment", Err: fmt.Errorf("comment at position %d has no id", i)}
		}

		rawJSON, err := json.Marshal(c)
		if err != nil {
			return &harvester.HarvestError{Op: "marshal_comment", Err: err}
		}

		if _, err := commentStmt.ExecContext(ctx,
			c.ID, c.Body, c.Author, c.CreatedUTC, c.LinkID, c.ParentID,
			c.Subreddit, c.SubredditID, rawJSON,
		); err != nil {
			return &harvester.HarvestError{Op: "insert_comment", Err: err}
		}

		if _, err := linkStmt.ExecContext(ctx, runID, query, i, c.ID); err != nil {
			return &harvester.HarvestError{Op: "insert_query_result", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &harvester.HarvestError{Op: "commit_transaction", Err: err}
	}

	return nil
}

// GetQueryComments returns the comments stored for a query, in service order
func (s *PostgresStorage) GetQueryComments(ctx context.Context, runID uuid.UUID, query string) ([]harvester.Comment, error) {
	sqlQuery := `
		SELECT c.id, COALESCE(c.body, ''), COALESCE(c.author, ''), COALESCE(c.created_utc, 0),
		       COALESCE(c.link_id, ''), COALESCE(c.parent_id, ''),
		       COALESCE(c.subreddit, ''), COALESCE(c.subreddit_id, '')
		FROM query_results qr
		JOIN comments c ON c.id = qr.comment_id
		WHERE qr.run_id = $1 AND qr.query = $2
		ORDER BY qr.position
	`

	rows, err := s.db.QueryContext(ctx, sqlQuery, runID.String(), query)
	if err != nil {
		return nil, &harvester.HarvestError{Op: "get_query_comments", Err: err}
	}
	defer rows.Close()

	var comments []harvester.Comment
	for rows.Next() {
		var c harvester.Comment
		if err := rows.Scan(
			&c.ID, &c.Body, &c.Author, &c.CreatedUTC, &c.LinkID, &c.ParentID,
			&c.Subreddit, &c.SubredditID,
		); err != nil {
			return nil, &harvester.HarvestError{Op: "scan_comment", Err: err}
		}
		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, &harvester.HarvestError{Op: "scan_comments", Err: err}
	}

	return comments, nil
}

// CountQueryComments returns how many comments are linked to a query
func (s *PostgresStorage) CountQueryComments(ctx context.Context, runID uuid.UUID, query string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM query_results WHERE run_id = $1 AND query = $2",
		runID.String(), query,
	).Scan(&n)
	if err != nil {
		return 0, &harvester.HarvestError{Op: "count_query_comments", Err: err}
	}
	return n, nil
}
