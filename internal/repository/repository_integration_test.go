//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/chroniclehq/chronicle/internal/domain"
	"github.com/chroniclehq/chronicle/internal/pagination"
	"github.com/chroniclehq/chronicle/internal/testutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const embeddingDims = 1536

// The query core never writes users, sources, events, embeddings or entity
// links; those tables belong to the ingestion pipelines. Tests seed them with
// raw SQL instead.

func seedUser(ctx context.Context, t *testing.T, pool *pgxpool.Pool) int64 {
	var id int64
	err := pool.QueryRow(ctx,
		`INSERT INTO users (email) VALUES ($1) RETURNING id`,
		uuid.NewString()+"@example.com",
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func seedSource(ctx context.Context, t *testing.T, pool *pgxpool.Pool, userID int64, sourceType domain.EventType, title string, createdAt time.Time) int64 {
	var id int64
	err := pool.QueryRow(ctx,
		`INSERT INTO sources (user_id, source_type, title, created_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		userID, string(sourceType), title, createdAt,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func seedEvent(ctx context.Context, t *testing.T, pool *pgxpool.Pool, userID, sourceID int64, eventType domain.EventType, text string, ts time.Time) int64 {
	var id int64
	err := pool.QueryRow(ctx,
		`INSERT INTO events (user_id, source_id, event_type, raw_text, chunk_index, "timestamp", date)
		 VALUES ($1, $2, $3, $4, 0, $5, $6) RETURNING id`,
		userID, sourceID, string(eventType), text, ts, ts.Truncate(24*time.Hour),
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// basisVector returns a unit vector along the given axis, so cosine
// similarity between two seeded embeddings is exactly 1 or 0.
func basisVector(axis int) []float32 {
	v := make([]float32, embeddingDims)
	v[axis] = 1
	return v
}

func seedEmbedding(ctx context.Context, t *testing.T, pool *pgxpool.Pool, eventID int64, vec []float32) {
	_, err := pool.Exec(ctx,
		`INSERT INTO event_embeddings (event_id, embedding) VALUES ($1, $2)`,
		eventID, pgvector.NewVector(vec),
	)
	require.NoError(t, err)
}

func seedEntity(ctx context.Context, t *testing.T, pool *pgxpool.Pool, userID int64, name string) int64 {
	var id int64
	err := pool.QueryRow(ctx,
		`INSERT INTO entities (user_id, name) VALUES ($1, $2) RETURNING id`,
		userID, name,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func linkEntity(ctx context.Context, t *testing.T, pool *pgxpool.Pool, eventID, entityID int64) {
	_, err := pool.Exec(ctx,
		`INSERT INTO event_entities (event_id, entity_id) VALUES ($1, $2)`,
		eventID, entityID,
	)
	require.NoError(t, err)
}

func TestEventRepository_Queries(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewEventRepository(pool)

	userID := seedUser(ctx, t, pool)
	otherUserID := seedUser(ctx, t, pool)
	sourceID := seedSource(ctx, t, pool, userID, domain.EventTypeDocument, "Quarterly report", time.Now().UTC())
	otherSourceID := seedSource(ctx, t, pool, otherUserID, domain.EventTypeDocument, "Other report", time.Now().UTC())

	jun10 := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	jun12 := time.Date(2024, 6, 12, 14, 0, 0, 0, time.UTC)
	jun15 := time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC)

	doc1 := seedEvent(ctx, t, pool, userID, sourceID, domain.EventTypeDocument, "revenue grew", jun10)
	doc2 := seedEvent(ctx, t, pool, userID, sourceID, domain.EventTypeDocument, "costs declined", jun12)
	audio := seedEvent(ctx, t, pool, userID, sourceID, domain.EventTypeAudio, "standup recording", jun15)
	seedEvent(ctx, t, pool, otherUserID, otherSourceID, domain.EventTypeDocument, "not yours", jun12)

	t.Run("GetByID", func(t *testing.T) {
		e, err := repo.GetByID(ctx, doc1)
		require.NoError(t, err)
		assert.Equal(t, "revenue grew", e.RawText)
		assert.Equal(t, domain.EventTypeDocument, e.Type)

		_, err = repo.GetByID(ctx, 999999)
		assert.ErrorIs(t, err, domain.ErrEventNotFound)
	})

	t.Run("ListByDate scopes to user and day", func(t *testing.T) {
		events, err := repo.ListByDate(ctx, userID, time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC), nil)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, doc2, events[0].ID)
	})

	t.Run("ListByDateRange is inclusive", func(t *testing.T) {
		events, err := repo.ListByDateRange(ctx, userID,
			time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC), nil)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, doc1, events[0].ID)
		assert.Equal(t, doc2, events[1].ID)
	})

	t.Run("ListSince", func(t *testing.T) {
		events, err := repo.ListSince(ctx, userID, time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC), nil)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, doc2, events[0].ID)
		assert.Equal(t, audio, events[1].ID)
	})

	t.Run("ListBySource with type filter", func(t *testing.T) {
		events, err := repo.ListBySource(ctx, userID, sourceID, []domain.EventType{domain.EventTypeDocument})
		require.NoError(t, err)
		require.Len(t, events, 2)
		for _, e := range events {
			assert.Equal(t, domain.EventTypeDocument, e.Type)
		}
	})

	t.Run("ListByTypes", func(t *testing.T) {
		events, err := repo.ListByTypes(ctx, userID, []domain.EventType{domain.EventTypeAudio})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, audio, events[0].ID)
	})
}

func TestEmbeddingRepository_Search(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewEmbeddingRepository(pool)

	userID := seedUser(ctx, t, pool)
	sourceID := seedSource(ctx, t, pool, userID, domain.EventTypeDocument, "Project notes", time.Now().UTC())

	ts := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	near := seedEvent(ctx, t, pool, userID, sourceID, domain.EventTypeDocument, "close match", ts)
	far := seedEvent(ctx, t, pool, userID, sourceID, domain.EventTypeDocument, "orthogonal", ts)
	unembedded := seedEvent(ctx, t, pool, userID, sourceID, domain.EventTypeDocument, "no vector", ts)

	seedEmbedding(ctx, t, pool, near, basisVector(0))
	seedEmbedding(ctx, t, pool, far, basisVector(1))

	t.Run("GetByEventID", func(t *testing.T) {
		vec, err := repo.GetByEventID(ctx, near)
		require.NoError(t, err)
		assert.Len(t, vec, embeddingDims)
		assert.Equal(t, float32(1), vec[0])

		_, err = repo.GetByEventID(ctx, unembedded)
		assert.ErrorIs(t, err, domain.ErrEmbeddingNotFound)
	})

	t.Run("GetByEventIDs skips missing", func(t *testing.T) {
		vecs, err := repo.GetByEventIDs(ctx, []int64{near, far, unembedded})
		require.NoError(t, err)
		assert.Len(t, vecs, 2)
		assert.Contains(t, vecs, near)
		assert.Contains(t, vecs, far)
	})

	t.Run("SearchTimeline ranks by similarity", func(t *testing.T) {
		chunks, err := repo.SearchTimeline(ctx, basisVector(0), []int64{near, far}, 10)
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, near, chunks[0].EventID)
		assert.InDelta(t, 1.0, chunks[0].Relevance, 0.001)
		assert.Equal(t, far, chunks[1].EventID)
		assert.InDelta(t, 0.0, chunks[1].Relevance, 0.001)
	})

	t.Run("SearchTimeline honors limit", func(t *testing.T) {
		chunks, err := repo.SearchTimeline(ctx, basisVector(0), []int64{near, far}, 1)
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, near, chunks[0].EventID)
	})

	t.Run("SearchDocuments includes source title", func(t *testing.T) {
		chunks, err := repo.SearchDocuments(ctx, basisVector(0), []int64{near, far}, 10)
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, "Project notes", chunks[0].SourceTitle)
	})

	t.Run("empty candidates", func(t *testing.T) {
		chunks, err := repo.SearchTimeline(ctx, basisVector(0), nil, 10)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})
}

func TestEntityRepository_Links(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewEntityRepository(pool)

	userID := seedUser(ctx, t, pool)
	sourceID := seedSource(ctx, t, pool, userID, domain.EventTypeDocument, "Meeting notes", time.Now().UTC())
	ts := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	ev1 := seedEvent(ctx, t, pool, userID, sourceID, domain.EventTypeDocument, "first", ts)
	ev2 := seedEvent(ctx, t, pool, userID, sourceID, domain.EventTypeDocument, "second", ts)
	ev3 := seedEvent(ctx, t, pool, userID, sourceID, domain.EventTypeDocument, "unlinked", ts)

	acme := seedEntity(ctx, t, pool, userID, "Acme Corp")
	alice := seedEntity(ctx, t, pool, userID, "Alice")
	linkEntity(ctx, t, pool, ev1, acme)
	linkEntity(ctx, t, pool, ev1, alice)
	linkEntity(ctx, t, pool, ev2, acme)

	t.Run("DistinctEntityIDs", func(t *testing.T) {
		ids, err := repo.DistinctEntityIDs(ctx, []int64{ev1, ev2, ev3})
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{acme, alice}, ids)
	})

	t.Run("EntityIDsByEvent omits unlinked events", func(t *testing.T) {
		byEvent, err := repo.EntityIDsByEvent(ctx, []int64{ev1, ev2, ev3})
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{acme, alice}, byEvent[ev1])
		assert.ElementsMatch(t, []int64{acme}, byEvent[ev2])
		assert.NotContains(t, byEvent, ev3)
	})

	t.Run("empty input", func(t *testing.T) {
		ids, err := repo.DistinctEntityIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestSourceRepository_Queries(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceRepository(pool)

	userID := seedUser(ctx, t, pool)
	otherUserID := seedUser(ctx, t, pool)

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	oldDoc := seedSource(ctx, t, pool, userID, domain.EventTypeDocument, "Old doc", base)
	audio := seedSource(ctx, t, pool, userID, domain.EventTypeAudio, "Standup", base.Add(24*time.Hour))
	newDoc := seedSource(ctx, t, pool, userID, domain.EventTypeDocument, "New doc", base.Add(48*time.Hour))

	t.Run("GetForUser enforces ownership", func(t *testing.T) {
		s, err := repo.GetForUser(ctx, userID, newDoc)
		require.NoError(t, err)
		assert.Equal(t, "New doc", s.Title)

		_, err = repo.GetForUser(ctx, otherUserID, newDoc)
		assert.ErrorIs(t, err, domain.ErrSourceNotFound)
	})

	t.Run("LatestByTypes", func(t *testing.T) {
		s, err := repo.LatestByTypes(ctx, userID, []domain.EventType{domain.EventTypeDocument})
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, newDoc, s.ID)

		s, err = repo.LatestByTypes(ctx, userID, []domain.EventType{domain.EventTypeWebpage})
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("List paginates newest first", func(t *testing.T) {
		page, err := repo.List(ctx, userID, 2, "")
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		assert.Equal(t, newDoc, page.Items[0].ID)
		assert.Equal(t, audio, page.Items[1].ID)
		assert.True(t, page.HasMore)
		require.NotEmpty(t, page.Cursor)

		next, err := repo.List(ctx, userID, 2, page.Cursor)
		require.NoError(t, err)
		require.Len(t, next.Items, 1)
		assert.Equal(t, oldDoc, next.Items[0].ID)
		assert.False(t, next.HasMore)
	})

	t.Run("List rejects malformed cursor", func(t *testing.T) {
		_, err := repo.List(ctx, userID, 2, "garbage")
		assert.ErrorIs(t, err, pagination.ErrInvalidCursor)
	})
}

func TestInteractionRepository_Sessions(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewInteractionRepository(pool)

	userID := seedUser(ctx, t, pool)
	sourceID := seedSource(ctx, t, pool, userID, domain.EventTypeDocument, "Report", time.Now().UTC())
	day := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	t.Run("Create and ListByDay", func(t *testing.T) {
		first, err := repo.Create(ctx, &domain.Interaction{
			UserID:      userID,
			SourceID:    &sourceID,
			Question:    "what happened?",
			Answer:      "things",
			SessionDate: day,
			CreatedAt:   day.Add(9 * time.Hour),
		})
		require.NoError(t, err)
		assert.NotZero(t, first)

		_, err = repo.Create(ctx, &domain.Interaction{
			UserID:      userID,
			Question:    "and then?",
			Answer:      "more things",
			SessionDate: day,
			CreatedAt:   day.Add(10 * time.Hour),
		})
		require.NoError(t, err)

		interactions, err := repo.ListByDay(ctx, userID, day)
		require.NoError(t, err)
		require.Len(t, interactions, 2)
		assert.Equal(t, "what happened?", interactions[0].Question)
		require.NotNil(t, interactions[0].SourceID)
		assert.Equal(t, sourceID, *interactions[0].SourceID)
		assert.Nil(t, interactions[1].SourceID)
	})

	t.Run("ListUsersForDay", func(t *testing.T) {
		ids, err := repo.ListUsersForDay(ctx, day)
		require.NoError(t, err)
		assert.Equal(t, []int64{userID}, ids)

		ids, err = repo.ListUsersForDay(ctx, day.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("summary upsert", func(t *testing.T) {
		summary, err := repo.GetSummary(ctx, userID, day)
		require.NoError(t, err)
		assert.Empty(t, summary)

		require.NoError(t, repo.UpsertSummary(ctx, userID, day, "first pass"))
		require.NoError(t, repo.UpsertSummary(ctx, userID, day, "revised"))

		summary, err = repo.GetSummary(ctx, userID, day)
		require.NoError(t, err)
		assert.Equal(t, "revised", summary)
	})

	t.Run("EnsureSessionSource is idempotent and reattaches", func(t *testing.T) {
		require.NoError(t, repo.EnsureSessionSource(ctx, userID, sourceID, day))
		require.NoError(t, repo.EnsureSessionSource(ctx, userID, sourceID, day))

		_, err := pool.Exec(ctx,
			`UPDATE session_sources SET removed_at = now() WHERE user_id = $1 AND source_id = $2`,
			userID, sourceID)
		require.NoError(t, err)

		require.NoError(t, repo.EnsureSessionSource(ctx, userID, sourceID, day))

		var removedAt *time.Time
		err = pool.QueryRow(ctx,
			`SELECT removed_at FROM session_sources WHERE user_id = $1 AND source_id = $2 AND session_date = $3`,
			userID, sourceID, day).Scan(&removedAt)
		require.NoError(t, err)
		assert.Nil(t, removedAt)
	})
}
