package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/chroniclehq/chronicle/internal/domain"
)

// EntityBoost is the relevance increment added per entity an aligned
// document candidate shares with the timeline results.
const EntityBoost = 0.1

// documentTypes is the event-type filter for the document retrieval path.
var documentTypes = []domain.EventType{domain.EventTypeDocument, domain.EventTypeWebpage}

// DocumentRetriever selects candidate document and webpage events and ranks
// them by similarity to the question, boosted by entity overlap with the
// timeline results.
type DocumentRetriever struct {
	events     EventStore
	embeddings EmbeddingStore
	entities   EntityStore
	embedder   Embedder
	boost      float64
}

func NewDocumentRetriever(events EventStore, embeddings EmbeddingStore, entities EntityStore, embedder Embedder, boost float64) *DocumentRetriever {
	if boost <= 0 {
		boost = EntityBoost
	}
	return &DocumentRetriever{
		events:     events,
		embeddings: embeddings,
		entities:   entities,
		embedder:   embedder,
		boost:      boost,
	}
}

// Retrieve returns up to topK document chunks ordered by descending boosted
// relevance. The semantic search casts a wider net (2x topK) so entity
// boosting can promote candidates into the final cut.
func (r *DocumentRetriever) Retrieve(ctx context.Context, userID int64, question string, timelineChunks []domain.TimelineChunk, topK int, focusSourceID *int64) ([]domain.DocumentChunk, error) {
	candidates, err := r.resolveCandidates(ctx, userID, focusSourceID)
	if err != nil {
		return nil, fmt.Errorf("resolve document candidates: %w", err)
	}
	if len(candidates) == 0 {
		return []domain.DocumentChunk{}, nil
	}

	queryVec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	chunks, err := r.embeddings.SearchDocuments(ctx, queryVec, eventIDs(candidates), 2*topK)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}

	chunks, err = r.applyEntityBoost(ctx, chunks, timelineChunks)
	if err != nil {
		return nil, err
	}

	if len(chunks) > topK {
		chunks = chunks[:topK]
	}
	return chunks, nil
}

// resolveCandidates prefers the focus source, but only when it actually
// contains document-like events. A focus on an audio source must not leak
// audio events into the document path, so it falls through to the full
// document set instead.
func (r *DocumentRetriever) resolveCandidates(ctx context.Context, userID int64, focusSourceID *int64) ([]domain.Event, error) {
	if focusSourceID != nil {
		events, err := r.events.ListBySource(ctx, userID, *focusSourceID, nil)
		if err != nil {
			return nil, err
		}
		for _, e := range events {
			if e.Type.IsDocumentLike() {
				return events, nil
			}
		}
	}
	return r.events.ListByTypes(ctx, userID, documentTypes)
}

func (r *DocumentRetriever) applyEntityBoost(ctx context.Context, chunks []domain.DocumentChunk, timelineChunks []domain.TimelineChunk) ([]domain.DocumentChunk, error) {
	if len(chunks) == 0 || len(timelineChunks) == 0 {
		return chunks, nil
	}

	timelineEventIDs := make([]int64, len(timelineChunks))
	for i, c := range timelineChunks {
		timelineEventIDs[i] = c.EventID
	}
	timelineEntities, err := r.entities.DistinctEntityIDs(ctx, timelineEventIDs)
	if err != nil {
		return nil, fmt.Errorf("timeline entity ids: %w", err)
	}
	if len(timelineEntities) == 0 {
		return chunks, nil
	}
	timelineSet := make(map[int64]struct{}, len(timelineEntities))
	for _, id := range timelineEntities {
		timelineSet[id] = struct{}{}
	}

	docEventIDs := make([]int64, len(chunks))
	for i, c := range chunks {
		docEventIDs[i] = c.EventID
	}
	entitiesByEvent, err := r.entities.EntityIDsByEvent(ctx, docEventIDs)
	if err != nil {
		return nil, fmt.Errorf("document entity ids: %w", err)
	}

	for i := range chunks {
		shared := 0
		for _, id := range entitiesByEvent[chunks[i].EventID] {
			if _, ok := timelineSet[id]; ok {
				shared++
			}
		}
		chunks[i].Relevance += r.boost * float64(shared)
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Relevance > chunks[j].Relevance
	})
	return chunks, nil
}
