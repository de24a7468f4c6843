package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/chroniclehq/chronicle/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `id, user_id, source_id, event_type, raw_text, chunk_index, "timestamp", date, created_at`

// EventRepository reads events written by the ingestion pipelines. The query
// core never creates or mutates events.
type EventRepository struct {
	db dbtx
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: pool}
}

func NewEventRepositoryWithTx(tx pgx.Tx) *EventRepository {
	return &EventRepository{db: tx}
}

// GetByID returns a single event.
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id)

	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, err
	}
	return e, nil
}

// ListByDate returns the user's events whose date bucket equals day,
// optionally restricted to the given event types.
func (r *EventRepository) ListByDate(ctx context.Context, userID int64, day time.Time, types []domain.EventType) ([]domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE user_id = $1 AND date = $2`
	args := []any{userID, day}
	query, args = appendTypeFilter(query, args, types)
	query += ` ORDER BY "timestamp" ASC`

	return r.queryEvents(ctx, query, args...)
}

// ListByDateRange returns the user's events with date in [start, end]
// inclusive, optionally restricted to the given event types.
func (r *EventRepository) ListByDateRange(ctx context.Context, userID int64, start, end time.Time, types []domain.EventType) ([]domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE user_id = $1 AND date >= $2 AND date <= $3`
	args := []any{userID, start, end}
	query, args = appendTypeFilter(query, args, types)
	query += ` ORDER BY "timestamp" ASC`

	return r.queryEvents(ctx, query, args...)
}

// ListBySource returns all events for one of the user's sources, ordered by
// chunk position within the source.
func (r *EventRepository) ListBySource(ctx context.Context, userID, sourceID int64, types []domain.EventType) ([]domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE user_id = $1 AND source_id = $2`
	args := []any{userID, sourceID}
	query, args = appendTypeFilter(query, args, types)
	query += ` ORDER BY chunk_index ASC`

	return r.queryEvents(ctx, query, args...)
}

// ListSince returns the user's events with date on or after cutoff.
func (r *EventRepository) ListSince(ctx context.Context, userID int64, cutoff time.Time, types []domain.EventType) ([]domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE user_id = $1 AND date >= $2`
	args := []any{userID, cutoff}
	query, args = appendTypeFilter(query, args, types)
	query += ` ORDER BY "timestamp" ASC`

	return r.queryEvents(ctx, query, args...)
}

// ListByTypes returns all of the user's events of the given types,
// regardless of date.
func (r *EventRepository) ListByTypes(ctx context.Context, userID int64, types []domain.EventType) ([]domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE user_id = $1`
	args := []any{userID}
	query, args = appendTypeFilter(query, args, types)
	query += ` ORDER BY "timestamp" ASC`

	return r.queryEvents(ctx, query, args...)
}

func (r *EventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func appendTypeFilter(query string, args []any, types []domain.EventType) (string, []any) {
	if len(types) == 0 {
		return query, args
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	args = append(args, names)
	query += ` AND event_type = ANY($` + strconv.Itoa(len(args)) + `)`
	return query, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	var e domain.Event
	var eventType string
	if err := row.Scan(
		&e.ID, &e.UserID, &e.SourceID, &eventType, &e.RawText,
		&e.ChunkIndex, &e.Timestamp, &e.Date, &e.CreatedAt,
	); err != nil {
		return nil, err
	}
	e.Type = domain.EventType(eventType)
	return &e, nil
}
