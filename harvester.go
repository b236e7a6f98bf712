package harvester

import (
	"context"
	"log"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Harvester combines an archive searcher with one or more sinks
type Harvester struct {
	searcher Searcher
	sinks    []Sink
}

// NewHarvester creates a new harvester instance
func NewHarvester(searcher Searcher, sinks ...Sink) *Harvester {
	return &Harvester{
		searcher: searcher,
		sinks:    sinks,
	}
}

// Run processes every query term in order. The first failing fetch or write
// stops the run; output already written for earlier terms is left in place.
func (h *Harvester) Run(ctx context.Context, p Params) (*RunStats, error) {
	if err := p.Validate(); err != nil {
		return nil, &HarvestError{Op: "validate_params", Err: err}
	}

	run := &Run{
		ID:         uuid.New(),
		Subreddits: p.Subreddits,
		After:      p.After,
		Before:     p.Before,
		Status:     RunRunning,
		StartedAt:  time.Now().UTC(),
	}

	for _, rec := range h.recorders() {
		if err := rec.BeginRun(ctx, run); err != nil {
			return nil, &HarvestError{Op: "begin_run", Err: err}
		}
	}

	log.Printf("Run %s: %d queries across %d subreddits (%s to %s)",
		run.ID, len(p.Queries), len(p.Subreddits),
		p.After.Format(time.DateOnly), p.Before.Format(time.DateOnly))

	stats := &RunStats{RunID: run.ID}
	for i, query := range p.Queries {
		if err := ctx.Err(); err != nil {
			stats.Elapsed = time.Since(run.StartedAt)
			h.finish(ctx, run, err)
			return stats, err
		}

		n, err := h.HarvestQuery(ctx, run, p, query)
		if err != nil {
			stats.Elapsed = time.Since(run.StartedAt)
			h.finish(ctx, run, err)
			return stats, err
		}

		stats.Queries = append(stats.Queries, QueryStats{Query: query, Comments: n})
		stats.Comments += n
		log.Printf("Harvested %d/%d queries (%s comments so far)",
			i+1, len(p.Queries), humanize.Comma(int64(stats.Comments)))
	}

	stats.Elapsed = time.Since(run.StartedAt)
	if err := h.finish(ctx, run, nil); err != nil {
		return stats, &HarvestError{Op: "finish_run", Err: err}
	}

	return stats, nil
}

// HarvestQuery fetches the comments for a single term and hands them to every
// sink in order. It returns the number of comments written.
func (h *Harvester) HarvestQuery(ctx context.Context, run *Run, p Params, query string) (int, error) {
	log.Printf("Searching comments for %q...", query)

	result, err := h.searcher.SearchComments(ctx, p.SearchRequest(query))
	if err != nil {
		return 0, &HarvestError{Op: "search_comments", Err: err}
	}

	if md := result.Metadata; md != nil {
		log.Printf("Archive reported %s total results for %q (took %s)",
			humanize.Comma(int64(md.TotalResults)), query, md.ExecutionTime)
		if md.TimedOut || md.ShardsFailed > 0 {
			log.Printf("Warning: incomplete results for %q (timed out: %v, failed shards: %d/%d)",
				query, md.TimedOut, md.ShardsFailed, md.ShardsTotal)
		}
	}

	for _, sink := range h.sinks {
		if err := sink.WriteQuery(ctx, run, query, result.Comments); err != nil {
			return 0, &HarvestError{Op: "write_query", Err: err}
		}
	}

	return len(result.Comments), nil
}

// finish marks the run done on every recorder. A failure recorded here never
// replaces the error that ended the run.
func (h *Harvester) finish(ctx context.Context, run *Run, cause error) error {
	run.FinishedAt = time.Now().UTC()
	run.Status = RunCompleted
	if cause != nil {
		run.Status = RunFailed
		run.Error = cause.Error()
		// the run context may already be cancelled
		ctx = context.WithoutCancel(ctx)
	}

	var firstErr error
	for _, rec := range h.recorders() {
		if err := rec.FinishRun(ctx, run); err != nil {
			log.Printf("Error finishing run %s: %v", run.ID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (h *Harvester) recorders() []RunRecorder {
	var recs []RunRecorder
	for _, sink := range h.sinks {
		if rec, ok := sink.(RunRecorder); ok {
			recs = append(recs, rec)
		}
	}
	return recs
}
