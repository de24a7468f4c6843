package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/chroniclehq/chronicle/internal/api"
	"github.com/chroniclehq/chronicle/internal/domain"
)

type SessionReader interface {
	ListInteractions(ctx context.Context, userID int64, day time.Time) ([]domain.Interaction, error)
	GetSummary(ctx context.Context, userID int64, day time.Time) (string, error)
}

type SessionHandler struct {
	sessions SessionReader

	now func() time.Time
}

func NewSessionHandler(sessions SessionReader) *SessionHandler {
	return &SessionHandler{sessions: sessions, now: time.Now}
}

type InteractionResponse struct {
	ID        int64  `json:"id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	SourceID  *int64 `json:"source_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

type SessionResponse struct {
	Date         string                `json:"date"`
	Interactions []InteractionResponse `json:"interactions"`
	Summary      string                `json:"summary,omitempty"`
}

// Interactions returns the question/answer log for a session day, defaulting
// to today. Includes the stored daily summary when one exists.
func (h *SessionHandler) Interactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	day := h.now().UTC().Truncate(24 * time.Hour)
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		day = parsed
	}

	interactions, err := h.sessions.ListInteractions(r.Context(), userID, day)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	summary, err := h.sessions.GetSummary(r.Context(), userID, day)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := SessionResponse{
		Date:         day.Format("2006-01-02"),
		Interactions: make([]InteractionResponse, 0, len(interactions)),
		Summary:      summary,
	}
	for _, in := range interactions {
		resp.Interactions = append(resp.Interactions, InteractionResponse{
			ID:        in.ID,
			Question:  in.Question,
			Answer:    in.Answer,
			SourceID:  in.SourceID,
			CreatedAt: in.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	api.Success(w, http.StatusOK, resp)
}
