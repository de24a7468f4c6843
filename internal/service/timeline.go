package service

import (
	"context"
	"fmt"
	"time"

	"github.com/chroniclehq/chronicle/internal/domain"
)

// DefaultLookbackDays bounds the recency fallback window used when a query
// carries no temporal scope and no focus source.
const DefaultLookbackDays = 30

// TimelineRetriever selects candidate events for the timeline side of a
// query and ranks them by similarity to the question.
//
// Candidate resolution is ordered and the first non-empty rule wins: a focus
// source, then a date or range scope filter, then the recency window for
// unscoped queries.
type TimelineRetriever struct {
	events       EventStore
	embeddings   EmbeddingStore
	embedder     Embedder
	lookbackDays int

	now func() time.Time
}

func NewTimelineRetriever(events EventStore, embeddings EmbeddingStore, embedder Embedder, lookbackDays int) *TimelineRetriever {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	return &TimelineRetriever{
		events:       events,
		embeddings:   embeddings,
		embedder:     embedder,
		lookbackDays: lookbackDays,
		now:          time.Now,
	}
}

// Retrieve returns up to topK timeline chunks ordered by descending
// relevance. An empty candidate set returns an empty slice without touching
// the embedding model.
func (r *TimelineRetriever) Retrieve(ctx context.Context, userID int64, question string, plan domain.Plan, topK int, focusSourceID *int64) ([]domain.TimelineChunk, error) {
	candidates, err := r.resolveCandidates(ctx, userID, plan.Scope, focusSourceID)
	if err != nil {
		return nil, fmt.Errorf("resolve timeline candidates: %w", err)
	}
	if len(candidates) == 0 {
		return []domain.TimelineChunk{}, nil
	}

	queryVec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	chunks, err := r.embeddings.SearchTimeline(ctx, queryVec, eventIDs(candidates), topK)
	if err != nil {
		return nil, fmt.Errorf("search timeline: %w", err)
	}
	return chunks, nil
}

func (r *TimelineRetriever) resolveCandidates(ctx context.Context, userID int64, scope domain.TemporalScope, focusSourceID *int64) ([]domain.Event, error) {
	if focusSourceID != nil {
		events, err := r.events.ListBySource(ctx, userID, *focusSourceID, nil)
		if err != nil {
			return nil, err
		}
		// A focus source with no events falls through to the scope rules.
		if len(events) > 0 {
			return events, nil
		}
	}

	switch scope.Kind {
	case domain.ScopeDate:
		return r.events.ListByDate(ctx, userID, scope.Date, nil)
	case domain.ScopeRange:
		return r.events.ListByDateRange(ctx, userID, scope.Start, scope.End, nil)
	default:
		cutoff := r.now().AddDate(0, 0, -r.lookbackDays)
		return r.events.ListSince(ctx, userID, cutoff, nil)
	}
}

func eventIDs(events []domain.Event) []int64 {
	ids := make([]int64, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return ids
}
