package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/chroniclehq/chronicle/internal/api"
	"github.com/chroniclehq/chronicle/internal/domain"
	"github.com/chroniclehq/chronicle/internal/pagination"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type SourceLister interface {
	List(ctx context.Context, userID int64, limit int, cursor string) (*pagination.PageResult[domain.Source], error)
	GetForUser(ctx context.Context, userID, sourceID int64) (*domain.Source, error)
}

// ArtifactStorage issues presigned download URLs for stored source
// artifacts. Implemented by storage.S3Client.
type ArtifactStorage interface {
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

type SourceHandler struct {
	sources SourceLister
	storage ArtifactStorage // nil when S3 is not configured
}

func NewSourceHandler(sources SourceLister, storage ArtifactStorage) *SourceHandler {
	return &SourceHandler{sources: sources, storage: storage}
}

type SourceResponse struct {
	ID        int64  `json:"id"`
	Type      string `json:"source_type"`
	Title     string `json:"title"`
	URI       string `json:"uri,omitempty"`
	FileSize  int64  `json:"file_size,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`
	CreatedAt string `json:"created_at"`
}

type SourceListResponse struct {
	Sources []SourceResponse `json:"sources"`
	Cursor  string           `json:"cursor,omitempty"`
	HasMore bool             `json:"has_more"`
}

type DownloadURLResponse struct {
	DownloadURL string `json:"download_url"`
}

func sourceToResponse(s *domain.Source) SourceResponse {
	return SourceResponse{
		ID:        s.ID,
		Type:      string(s.Type),
		Title:     s.Title,
		URI:       s.URI,
		FileSize:  s.FileSize,
		MimeType:  s.MimeType,
		CreatedAt: s.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// List returns the user's sources, newest first, cursor paginated.
func (h *SourceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if parsed > maxListLimit {
			parsed = maxListLimit
		}
		limit = parsed
	}

	page, err := h.sources.List(r.Context(), userID, limit, r.URL.Query().Get("cursor"))
	if err != nil {
		if err == pagination.ErrInvalidCursor {
			api.Error(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		api.HandleError(w, err)
		return
	}

	resp := SourceListResponse{
		Sources: make([]SourceResponse, 0, len(page.Items)),
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	}
	for i := range page.Items {
		resp.Sources = append(resp.Sources, sourceToResponse(&page.Items[i]))
	}

	api.Success(w, http.StatusOK, resp)
}

// Download returns a presigned URL for the source's original artifact.
func (h *SourceHandler) Download(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	sourceID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid source id")
		return
	}

	source, err := h.sources.GetForUser(r.Context(), userID, sourceID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if h.storage == nil {
		api.HandleError(w, domain.ErrStorageNotConfigured)
		return
	}
	if source.StorageKey == "" {
		api.HandleError(w, domain.ErrArtifactNotFound)
		return
	}

	url, err := h.storage.GenerateDownloadURL(r.Context(), source.StorageKey)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DownloadURLResponse{DownloadURL: url})
}

// requireUserID parses the user_id query parameter shared by the read-side
// endpoints.
func requireUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		api.Error(w, http.StatusBadRequest, "user_id is required")
		return 0, false
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		api.Error(w, http.StatusBadRequest, "invalid user_id")
		return 0, false
	}
	return userID, true
}
