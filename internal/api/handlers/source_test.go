package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chroniclehq/chronicle/internal/domain"
	"github.com/chroniclehq/chronicle/internal/pagination"
)

type fakeSourceLister struct {
	page      *pagination.PageResult[domain.Source]
	listErr   error
	byID      map[int64]*domain.Source
	lastLimit int
}

func (f *fakeSourceLister) List(_ context.Context, _ int64, limit int, _ string) (*pagination.PageResult[domain.Source], error) {
	f.lastLimit = limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.page, nil
}

func (f *fakeSourceLister) GetForUser(_ context.Context, _, sourceID int64) (*domain.Source, error) {
	source, ok := f.byID[sourceID]
	if !ok {
		return nil, domain.ErrSourceNotFound
	}
	return source, nil
}

type fakeStorage struct {
	url string
	key string
}

func (f *fakeStorage) GenerateDownloadURL(_ context.Context, key string) (string, error) {
	f.key = key
	return f.url, nil
}

func TestSourceHandler_List(t *testing.T) {
	created := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	lister := &fakeSourceLister{page: &pagination.PageResult[domain.Source]{
		Items: []domain.Source{
			{ID: 2, Type: domain.EventTypeDocument, Title: "Roadmap", CreatedAt: created},
			{ID: 1, Type: domain.EventTypeAudio, Title: "Standup", CreatedAt: created.Add(-time.Hour)},
		},
		Cursor:  "next-cursor",
		HasMore: true,
	}}
	handler := NewSourceHandler(lister, nil)

	req := httptest.NewRequest(http.MethodGet, "/sources?user_id=1&limit=2", nil)
	w := httptest.NewRecorder()
	handler.List(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeData[SourceListResponse](t, w)

	require.Len(t, resp.Sources, 2)
	assert.Equal(t, int64(2), resp.Sources[0].ID)
	assert.Equal(t, "document", resp.Sources[0].Type)
	assert.Equal(t, "Roadmap", resp.Sources[0].Title)
	assert.Equal(t, "next-cursor", resp.Cursor)
	assert.True(t, resp.HasMore)
	assert.Equal(t, 2, lister.lastLimit)
}

func TestSourceHandler_List_Validation(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"missing user_id", "/sources"},
		{"bad user_id", "/sources?user_id=abc"},
		{"bad limit", "/sources?user_id=1&limit=zero"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewSourceHandler(&fakeSourceLister{}, nil)
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			w := httptest.NewRecorder()
			handler.List(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSourceHandler_List_InvalidCursor(t *testing.T) {
	handler := NewSourceHandler(&fakeSourceLister{listErr: pagination.ErrInvalidCursor}, nil)

	req := httptest.NewRequest(http.MethodGet, "/sources?user_id=1&cursor=garbage", nil)
	w := httptest.NewRecorder()
	handler.List(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func downloadRequest(handler *SourceHandler, sourceID string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/sources/{id}/download", handler.Download)

	req := httptest.NewRequest(http.MethodGet, "/sources/"+sourceID+"/download?user_id=1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSourceHandler_Download(t *testing.T) {
	lister := &fakeSourceLister{byID: map[int64]*domain.Source{
		5: {ID: 5, UserID: 1, StorageKey: "sources/1/5/recording.mp3"},
	}}
	storage := &fakeStorage{url: "https://storage.example/presigned"}
	handler := NewSourceHandler(lister, storage)

	w := downloadRequest(handler, "5")

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeData[DownloadURLResponse](t, w)
	assert.Equal(t, "https://storage.example/presigned", resp.DownloadURL)
	assert.Equal(t, "sources/1/5/recording.mp3", storage.key)
}

func TestSourceHandler_Download_Errors(t *testing.T) {
	t.Run("unknown source", func(t *testing.T) {
		handler := NewSourceHandler(&fakeSourceLister{byID: map[int64]*domain.Source{}}, &fakeStorage{})
		w := downloadRequest(handler, "99")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("no stored artifact", func(t *testing.T) {
		lister := &fakeSourceLister{byID: map[int64]*domain.Source{5: {ID: 5, UserID: 1}}}
		handler := NewSourceHandler(lister, &fakeStorage{})
		w := downloadRequest(handler, "5")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("storage not configured", func(t *testing.T) {
		lister := &fakeSourceLister{byID: map[int64]*domain.Source{5: {ID: 5, UserID: 1, StorageKey: "key"}}}
		handler := NewSourceHandler(lister, nil)
		w := downloadRequest(handler, "5")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		handler := NewSourceHandler(&fakeSourceLister{}, nil)
		w := downloadRequest(handler, "abc")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
