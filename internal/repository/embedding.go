package repository

import (
	"context"
	"errors"

	"github.com/chroniclehq/chronicle/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// EmbeddingRepository reads stored event embeddings and runs similarity-ranked
// top-K queries over candidate event sets using pgvector.
type EmbeddingRepository struct {
	db dbtx
}

func NewEmbeddingRepository(pool *pgxpool.Pool) *EmbeddingRepository {
	return &EmbeddingRepository{db: pool}
}

func NewEmbeddingRepositoryWithTx(tx pgx.Tx) *EmbeddingRepository {
	return &EmbeddingRepository{db: tx}
}

// GetByEventID returns the stored embedding for an event.
func (r *EmbeddingRepository) GetByEventID(ctx context.Context, eventID int64) ([]float32, error) {
	var vec pgvector.Vector
	err := r.db.QueryRow(ctx,
		`SELECT embedding FROM event_embeddings WHERE event_id = $1`,
		eventID,
	).Scan(&vec)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEmbeddingNotFound
		}
		return nil, err
	}
	return vec.Slice(), nil
}

// GetByEventIDs returns the stored embeddings for a set of events. Events
// without an embedding are absent from the result rather than an error.
func (r *EmbeddingRepository) GetByEventIDs(ctx context.Context, eventIDs []int64) (map[int64][]float32, error) {
	out := make(map[int64][]float32, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT event_id, embedding FROM event_embeddings WHERE event_id = ANY($1)`,
		eventIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var eventID int64
		var vec pgvector.Vector
		if err := rows.Scan(&eventID, &vec); err != nil {
			return nil, err
		}
		out[eventID] = vec.Slice()
	}
	return out, rows.Err()
}

// SearchTimeline ranks the candidate events by cosine similarity to the query
// vector and returns the top limit as timeline chunks, most similar first.
func (r *EmbeddingRepository) SearchTimeline(ctx context.Context, queryVec []float32, candidateIDs []int64, limit int) ([]domain.TimelineChunk, error) {
	if len(candidateIDs) == 0 {
		return []domain.TimelineChunk{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT e.id, e.raw_text, e.date, e.event_type,
		        1 - (emb.embedding <=> $1) AS similarity
		 FROM events e
		 JOIN event_embeddings emb ON emb.event_id = e.id
		 WHERE e.id = ANY($2)
		 ORDER BY similarity DESC
		 LIMIT $3`,
		pgvector.NewVector(queryVec), candidateIDs, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []domain.TimelineChunk
	for rows.Next() {
		var c domain.TimelineChunk
		var eventType string
		if err := rows.Scan(&c.EventID, &c.Text, &c.Date, &eventType, &c.Relevance); err != nil {
			return nil, err
		}
		c.Type = domain.EventType(eventType)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// SearchDocuments ranks the candidate events by cosine similarity to the
// query vector and returns the top limit as document chunks with their source
// titles, most similar first.
func (r *EmbeddingRepository) SearchDocuments(ctx context.Context, queryVec []float32, candidateIDs []int64, limit int) ([]domain.DocumentChunk, error) {
	if len(candidateIDs) == 0 {
		return []domain.DocumentChunk{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT e.id, e.raw_text, e.event_type, s.title,
		        1 - (emb.embedding <=> $1) AS similarity
		 FROM events e
		 JOIN event_embeddings emb ON emb.event_id = e.id
		 JOIN sources s ON s.id = e.source_id
		 WHERE e.id = ANY($2)
		 ORDER BY similarity DESC
		 LIMIT $3`,
		pgvector.NewVector(queryVec), candidateIDs, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []domain.DocumentChunk
	for rows.Next() {
		var c domain.DocumentChunk
		var eventType string
		if err := rows.Scan(&c.EventID, &c.Text, &eventType, &c.SourceTitle, &c.Relevance); err != nil {
			return nil, err
		}
		c.Type = domain.EventType(eventType)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
