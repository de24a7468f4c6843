package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EntityRepository reads the entity links produced by the ingestion-side
// entity extraction.
type EntityRepository struct {
	db dbtx
}

func NewEntityRepository(pool *pgxpool.Pool) *EntityRepository {
	return &EntityRepository{db: pool}
}

func NewEntityRepositoryWithTx(tx pgx.Tx) *EntityRepository {
	return &EntityRepository{db: tx}
}

// DistinctEntityIDs returns the distinct entity ids linked to any of the
// given events.
func (r *EntityRepository) DistinctEntityIDs(ctx context.Context, eventIDs []int64) ([]int64, error) {
	if len(eventIDs) == 0 {
		return []int64{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT entity_id FROM event_entities WHERE event_id = ANY($1)`,
		eventIDs,
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

// EntityIDsByEvent returns, for each of the given events, the entity ids
// linked to it. Events with no linked entities are absent from the map.
func (r *EntityRepository) EntityIDsByEvent(ctx context.Context, eventIDs []int64) (map[int64][]int64, error) {
	out := make(map[int64][]int64, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT event_id, entity_id FROM event_entities WHERE event_id = ANY($1)`,
		eventIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var eventID, entityID int64
		if err := rows.Scan(&eventID, &entityID); err != nil {
			return nil, err
		}
		out[eventID] = append(out[eventID], entityID)
	}
	return out, rows.Err()
}
