package repository

import (
	"context"
	"errors"
	"time"

	"github.com/chroniclehq/chronicle/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InteractionRepository persists the session interaction log. This is the only
// write the query core triggers.
type InteractionRepository struct {
	db dbtx
}

func NewInteractionRepository(pool *pgxpool.Pool) *InteractionRepository {
	return &InteractionRepository{db: pool}
}

func NewInteractionRepositoryWithTx(tx pgx.Tx) *InteractionRepository {
	return &InteractionRepository{db: tx}
}

// Create persists a question/answer interaction and returns its id.
func (r *InteractionRepository) Create(ctx context.Context, in *domain.Interaction) (int64, error) {
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO session_interactions (user_id, source_id, question, answer, session_date, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		in.UserID, in.SourceID, in.Question, in.Answer, in.SessionDate, createdAt,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListByDay returns a user's interactions recorded against a session day,
// oldest first.
func (r *InteractionRepository) ListByDay(ctx context.Context, userID int64, day time.Time) ([]domain.Interaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, source_id, question, answer, session_date, created_at
		 FROM session_interactions
		 WHERE user_id = $1 AND session_date = $2
		 ORDER BY created_at ASC`,
		userID, day,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var interactions []domain.Interaction
	for rows.Next() {
		var in domain.Interaction
		if err := rows.Scan(&in.ID, &in.UserID, &in.SourceID, &in.Question, &in.Answer, &in.SessionDate, &in.CreatedAt); err != nil {
			return nil, err
		}
		interactions = append(interactions, in)
	}
	return interactions, rows.Err()
}

// ListUsersForDay returns the ids of users with at least one interaction
// recorded against the given session day.
func (r *InteractionRepository) ListUsersForDay(ctx context.Context, day time.Time) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT user_id FROM session_interactions WHERE session_date = $1`,
		day,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpsertSummary stores or replaces the generated summary for a session day.
func (r *InteractionRepository) UpsertSummary(ctx context.Context, userID int64, day time.Time, summary string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO session_summaries (user_id, session_date, summary, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, session_date)
		 DO UPDATE SET summary = EXCLUDED.summary, created_at = EXCLUDED.created_at`,
		userID, day, summary, time.Now().UTC(),
	)
	return err
}

// GetSummary returns the stored summary for a session day, or empty string if
// none has been generated yet.
func (r *InteractionRepository) GetSummary(ctx context.Context, userID int64, day time.Time) (string, error) {
	var summary string
	err := r.db.QueryRow(ctx,
		`SELECT summary FROM session_summaries WHERE user_id = $1 AND session_date = $2`,
		userID, day,
	).Scan(&summary)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return summary, nil
}

// EnsureSessionSource marks a source as part of a day's session, reattaching
// it if it was previously removed.
func (r *InteractionRepository) EnsureSessionSource(ctx context.Context, userID, sourceID int64, day time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO session_sources (user_id, source_id, session_date, added_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, source_id, session_date)
		 DO UPDATE SET removed_at = NULL`,
		userID, sourceID, day, time.Now().UTC(),
	)
	return err
}
