package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/chroniclehq/chronicle/internal/api"
	"github.com/chroniclehq/chronicle/internal/domain"
)

type TimelineEventLister interface {
	ListByDate(ctx context.Context, userID int64, day time.Time, types []domain.EventType) ([]domain.Event, error)
	ListByDateRange(ctx context.Context, userID int64, start, end time.Time, types []domain.EventType) ([]domain.Event, error)
}

type TimelineHandler struct {
	events TimelineEventLister
}

func NewTimelineHandler(events TimelineEventLister) *TimelineHandler {
	return &TimelineHandler{events: events}
}

type TimelineEventResponse struct {
	ID         int64  `json:"id"`
	SourceID   int64  `json:"source_id"`
	Type       string `json:"event_type"`
	Text       string `json:"text"`
	ChunkIndex int    `json:"chunk_index"`
	Timestamp  string `json:"timestamp,omitempty"`
}

type TimelineDayResponse struct {
	Date   string                  `json:"date"`
	Events []TimelineEventResponse `json:"events"`
}

// List returns the user's events for a single day (?date=) or an inclusive
// range (?start=&end=), grouped per day in chronological order.
func (h *TimelineHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	var (
		events []domain.Event
		err    error
	)

	switch {
	case q.Get("date") != "":
		day, parseErr := time.Parse("2006-01-02", q.Get("date"))
		if parseErr != nil {
			api.Error(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		events, err = h.events.ListByDate(r.Context(), userID, day, nil)
	case q.Get("start") != "" && q.Get("end") != "":
		start, parseErr := time.Parse("2006-01-02", q.Get("start"))
		if parseErr != nil {
			api.Error(w, http.StatusBadRequest, "invalid start, expected YYYY-MM-DD")
			return
		}
		end, parseErr := time.Parse("2006-01-02", q.Get("end"))
		if parseErr != nil {
			api.Error(w, http.StatusBadRequest, "invalid end, expected YYYY-MM-DD")
			return
		}
		if start.After(end) {
			api.Error(w, http.StatusBadRequest, "start must not be after end")
			return
		}
		events, err = h.events.ListByDateRange(r.Context(), userID, start, end, nil)
	default:
		api.Error(w, http.StatusBadRequest, "date or start and end are required")
		return
	}

	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, groupEventsByDay(events))
}

func groupEventsByDay(events []domain.Event) []TimelineDayResponse {
	byDay := make(map[string][]TimelineEventResponse)
	for _, e := range events {
		key := e.Date.Format("2006-01-02")
		resp := TimelineEventResponse{
			ID:         e.ID,
			SourceID:   e.SourceID,
			Type:       string(e.Type),
			Text:       e.RawText,
			ChunkIndex: e.ChunkIndex,
		}
		if !e.Timestamp.IsZero() {
			resp.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
		}
		byDay[key] = append(byDay[key], resp)
	}

	days := make([]TimelineDayResponse, 0, len(byDay))
	for date, dayEvents := range byDay {
		days = append(days, TimelineDayResponse{Date: date, Events: dayEvents})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}
