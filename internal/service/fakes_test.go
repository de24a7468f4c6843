package service

import (
	"context"
	"time"

	"github.com/chroniclehq/chronicle/internal/domain"
)

// fakeEventStore serves canned event sets and records which resolution rule
// was hit.
type fakeEventStore struct {
	bySource     []domain.Event
	byDate       []domain.Event
	byRange      []domain.Event
	since        []domain.Event
	byTypes      []domain.Event
	err          error
	calledMethod string
	sinceCutoff  time.Time
}

func (f *fakeEventStore) ListByDate(_ context.Context, _ int64, _ time.Time, _ []domain.EventType) ([]domain.Event, error) {
	f.calledMethod = "ListByDate"
	return f.byDate, f.err
}

func (f *fakeEventStore) ListByDateRange(_ context.Context, _ int64, _, _ time.Time, _ []domain.EventType) ([]domain.Event, error) {
	f.calledMethod = "ListByDateRange"
	return f.byRange, f.err
}

func (f *fakeEventStore) ListBySource(_ context.Context, _, _ int64, _ []domain.EventType) ([]domain.Event, error) {
	f.calledMethod = "ListBySource"
	return f.bySource, f.err
}

func (f *fakeEventStore) ListSince(_ context.Context, _ int64, cutoff time.Time, _ []domain.EventType) ([]domain.Event, error) {
	f.calledMethod = "ListSince"
	f.sinceCutoff = cutoff
	return f.since, f.err
}

func (f *fakeEventStore) ListByTypes(_ context.Context, _ int64, _ []domain.EventType) ([]domain.Event, error) {
	f.calledMethod = "ListByTypes"
	return f.byTypes, f.err
}

// fakeEmbeddingStore serves canned search results and per-event vectors.
type fakeEmbeddingStore struct {
	vectors         map[int64][]float32
	timelineResults []domain.TimelineChunk
	documentResults []domain.DocumentChunk
	searchedIDs     []int64
	searchedLimit   int
}

func (f *fakeEmbeddingStore) GetByEventIDs(_ context.Context, eventIDs []int64) (map[int64][]float32, error) {
	out := make(map[int64][]float32)
	for _, id := range eventIDs {
		if vec, ok := f.vectors[id]; ok {
			out[id] = vec
		}
	}
	return out, nil
}

func (f *fakeEmbeddingStore) SearchTimeline(_ context.Context, _ []float32, candidateIDs []int64, limit int) ([]domain.TimelineChunk, error) {
	f.searchedIDs = candidateIDs
	f.searchedLimit = limit
	results := f.timelineResults
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (f *fakeEmbeddingStore) SearchDocuments(_ context.Context, _ []float32, candidateIDs []int64, limit int) ([]domain.DocumentChunk, error) {
	f.searchedIDs = candidateIDs
	f.searchedLimit = limit
	results := f.documentResults
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// fakeEntityStore serves canned entity links.
type fakeEntityStore struct {
	distinct []int64
	byEvent  map[int64][]int64
}

func (f *fakeEntityStore) DistinctEntityIDs(_ context.Context, _ []int64) ([]int64, error) {
	return f.distinct, nil
}

func (f *fakeEntityStore) EntityIDsByEvent(_ context.Context, _ []int64) (map[int64][]int64, error) {
	return f.byEvent, nil
}

// fakeEmbedder returns the same vector for every input and counts calls.
type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.vector == nil {
		return []float32{1, 0, 0}, nil
	}
	return f.vector, nil
}
