package jobs

import (
	"context"
	"fmt"
	"log"
	"time"
)

// SessionSummarizer generates and stores daily session summaries.
// Implemented by service.SessionService.
type SessionSummarizer interface {
	UsersWithInteractions(ctx context.Context, day time.Time) ([]int64, error)
	SummarizeDay(ctx context.Context, userID int64, day time.Time) (string, error)
}

// SummaryWorker generates one session summary per user per day, once the
// configured hour has passed. It implements JobProcessor and is driven by
// the polling Worker.
type SummaryWorker struct {
	sessions SessionSummarizer
	hour     int

	lastRunDay time.Time
	now        func() time.Time
}

// NewSummaryWorker creates a SummaryWorker that runs after the given hour of
// day (UTC).
func NewSummaryWorker(sessions SessionSummarizer, hour int) *SummaryWorker {
	return &SummaryWorker{
		sessions: sessions,
		hour:     hour,
		now:      time.Now,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *SummaryWorker) ProcessJobs(ctx context.Context) error {
	now := w.now().UTC()
	if now.Hour() < w.hour {
		return nil
	}

	day := now.Truncate(24 * time.Hour)
	if w.lastRunDay.Equal(day) {
		return nil
	}

	userIDs, err := w.sessions.UsersWithInteractions(ctx, day)
	if err != nil {
		return fmt.Errorf("failed to list users for summary: %w", err)
	}

	if len(userIDs) > 0 {
		log.Printf("Generating session summaries for %d users", len(userIDs))
	}

	failed := false
	for _, userID := range userIDs {
		if _, err := w.sessions.SummarizeDay(ctx, userID, day); err != nil {
			// One failed user must not block the rest; the day is retried
			// on the next poll.
			log.Printf("Error summarizing session for user %d: %v", userID, err)
			failed = true
		}
	}

	if !failed {
		w.lastRunDay = day
	}
	return nil
}
