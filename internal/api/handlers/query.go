package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/chroniclehq/chronicle/internal/api"
	"github.com/chroniclehq/chronicle/internal/domain"
)

const (
	responseChunkLimit = 5
	responseTextRunes  = 200
)

type QueryService interface {
	Answer(ctx context.Context, userID int64, question string, sourceID *int64) (*domain.QueryResult, error)
}

type QueryHandler struct {
	svc QueryService
}

func NewQueryHandler(svc QueryService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type QueryRequest struct {
	UserID   int64  `json:"user_id"`
	Question string `json:"question"`
	SourceID *int64 `json:"source_id,omitempty"`
}

type ChunkInfo struct {
	Text           string  `json:"text"`
	RelevanceScore float64 `json:"relevance_score"`
	Date           *string `json:"date,omitempty"`
	SourceTitle    *string `json:"source_title,omitempty"`
}

type QueryResponse struct {
	Answer         string      `json:"answer"`
	DatesUsed      []string    `json:"dates_used"`
	TimelineChunks []ChunkInfo `json:"timeline_chunks"`
	DocumentChunks []ChunkInfo `json:"document_chunks"`
	Confidence     float64     `json:"confidence"`
}

// Ask runs the full retrieval and synthesis pipeline for one question.
func (h *QueryHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.UserID <= 0 {
		api.Error(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	result, err := h.svc.Answer(r.Context(), req.UserID, req.Question, req.SourceID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, queryResultToResponse(result))
}

func queryResultToResponse(result *domain.QueryResult) *QueryResponse {
	resp := &QueryResponse{
		Answer:         result.Answer,
		DatesUsed:      make([]string, 0, len(result.DatesUsed)),
		TimelineChunks: make([]ChunkInfo, 0, responseChunkLimit),
		DocumentChunks: make([]ChunkInfo, 0, responseChunkLimit),
		Confidence:     result.Confidence,
	}

	for _, d := range result.DatesUsed {
		resp.DatesUsed = append(resp.DatesUsed, d.Format("2006-01-02"))
	}

	for _, c := range result.TimelineChunks {
		if len(resp.TimelineChunks) == responseChunkLimit {
			break
		}
		date := c.Date.Format("2006-01-02")
		resp.TimelineChunks = append(resp.TimelineChunks, ChunkInfo{
			Text:           truncate(c.Text, responseTextRunes),
			RelevanceScore: c.Relevance,
			Date:           &date,
		})
	}

	for _, c := range result.DocumentChunks {
		if len(resp.DocumentChunks) == responseChunkLimit {
			break
		}
		title := c.SourceTitle
		resp.DocumentChunks = append(resp.DocumentChunks, ChunkInfo{
			Text:           truncate(c.Text, responseTextRunes),
			RelevanceScore: c.Relevance,
			SourceTitle:    &title,
		})
	}

	return resp
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
