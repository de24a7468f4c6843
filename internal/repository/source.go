package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/chroniclehq/chronicle/internal/domain"
	"github.com/chroniclehq/chronicle/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sourceColumns = `id, user_id, source_type, title, uri, file_size, mime_type, source_metadata, storage_key, created_at`

// SourceRepository reads sources written by the ingestion pipelines.
type SourceRepository struct {
	db dbtx
}

func NewSourceRepository(pool *pgxpool.Pool) *SourceRepository {
	return &SourceRepository{db: pool}
}

func NewSourceRepositoryWithTx(tx pgx.Tx) *SourceRepository {
	return &SourceRepository{db: tx}
}

// GetForUser returns a source only if it belongs to the user.
func (r *SourceRepository) GetForUser(ctx context.Context, userID, sourceID int64) (*domain.Source, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE id = $1 AND user_id = $2`,
		sourceID, userID,
	)

	s, err := scanSource(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSourceNotFound
		}
		return nil, err
	}
	return s, nil
}

// LatestByTypes returns the user's most recently ingested source, optionally
// restricted to the given types. Returns nil without error when the user has
// no matching sources.
func (r *SourceRepository) LatestByTypes(ctx context.Context, userID int64, types []domain.EventType) (*domain.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE user_id = $1`
	args := []any{userID}

	if len(types) > 0 {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		args = append(args, names)
		query += ` AND source_type = ANY($` + strconv.Itoa(len(args)) + `)`
	}
	query += ` ORDER BY created_at DESC LIMIT 1`

	row := r.db.QueryRow(ctx, query, args...)
	s, err := scanSource(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// List returns the user's sources newest first, cursor-paginated.
func (r *SourceRepository) List(ctx context.Context, userID int64, limit int, cursor string) (*pagination.PageResult[domain.Source], error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + sourceColumns + ` FROM sources WHERE user_id = $1`
	args := []any{userID}

	decoded, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	if decoded != nil {
		lastID, err := strconv.ParseInt(decoded.LastID, 10, 64)
		if err != nil {
			return nil, pagination.ErrInvalidCursor
		}
		args = append(args, decoded.Timestamp, lastID)
		query += ` AND (created_at, id) < ($2, $3)`
	}
	args = append(args, limit+1)
	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(sources) > limit
	if hasMore {
		sources = sources[:limit]
	}

	result := &pagination.PageResult[domain.Source]{
		Items:   sources,
		HasMore: hasMore,
	}
	if hasMore && len(sources) > 0 {
		last := sources[len(sources)-1]
		result.Cursor = pagination.EncodeCursor(strconv.FormatInt(last.ID, 10), last.CreatedAt)
	}
	return result, nil
}

func scanSource(row rowScanner) (*domain.Source, error) {
	var s domain.Source
	var sourceType string
	var uri, mimeType, metadata, storageKey *string
	var fileSize *int64
	if err := row.Scan(
		&s.ID, &s.UserID, &sourceType, &s.Title, &uri,
		&fileSize, &mimeType, &metadata, &storageKey, &s.CreatedAt,
	); err != nil {
		return nil, err
	}
	s.Type = domain.EventType(sourceType)
	if uri != nil {
		s.URI = *uri
	}
	if fileSize != nil {
		s.FileSize = *fileSize
	}
	if mimeType != nil {
		s.MimeType = *mimeType
	}
	if metadata != nil {
		s.Metadata = *metadata
	}
	if storageKey != nil {
		s.StorageKey = *storageKey
	}
	return &s, nil
}
