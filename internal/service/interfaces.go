package service

import (
	"context"
	"time"

	"github.com/chroniclehq/chronicle/internal/domain"
)

// EventStore reads events, always scoped to a user and optionally filtered by
// event type. Implemented by repository.EventRepository.
type EventStore interface {
	ListByDate(ctx context.Context, userID int64, day time.Time, types []domain.EventType) ([]domain.Event, error)
	ListByDateRange(ctx context.Context, userID int64, start, end time.Time, types []domain.EventType) ([]domain.Event, error)
	ListBySource(ctx context.Context, userID, sourceID int64, types []domain.EventType) ([]domain.Event, error)
	ListSince(ctx context.Context, userID int64, cutoff time.Time, types []domain.EventType) ([]domain.Event, error)
	ListByTypes(ctx context.Context, userID int64, types []domain.EventType) ([]domain.Event, error)
}

// EmbeddingStore reads stored event embeddings and runs similarity-ranked
// top-K queries over candidate event sets. Implemented by
// repository.EmbeddingRepository.
type EmbeddingStore interface {
	GetByEventIDs(ctx context.Context, eventIDs []int64) (map[int64][]float32, error)
	SearchTimeline(ctx context.Context, queryVec []float32, candidateIDs []int64, limit int) ([]domain.TimelineChunk, error)
	SearchDocuments(ctx context.Context, queryVec []float32, candidateIDs []int64, limit int) ([]domain.DocumentChunk, error)
}

// EntityStore reads entity links. Implemented by repository.EntityRepository.
type EntityStore interface {
	DistinctEntityIDs(ctx context.Context, eventIDs []int64) ([]int64, error)
	EntityIDsByEvent(ctx context.Context, eventIDs []int64) (map[int64][]int64, error)
}

// SourceStore reads sources. Implemented by repository.SourceRepository.
type SourceStore interface {
	GetForUser(ctx context.Context, userID, sourceID int64) (*domain.Source, error)
	LatestByTypes(ctx context.Context, userID int64, types []domain.EventType) (*domain.Source, error)
}

// InteractionStore persists the session interaction log. Implemented by
// repository.InteractionRepository.
type InteractionStore interface {
	Create(ctx context.Context, in *domain.Interaction) (int64, error)
	EnsureSessionSource(ctx context.Context, userID, sourceID int64, day time.Time) error
	ListByDay(ctx context.Context, userID int64, day time.Time) ([]domain.Interaction, error)
	ListUsersForDay(ctx context.Context, day time.Time) ([]int64, error)
	UpsertSummary(ctx context.Context, userID int64, day time.Time, summary string) error
	GetSummary(ctx context.Context, userID int64, day time.Time) (string, error)
}

// Embedder turns text into a vector. Implemented by embedding.Client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
