package domain

import "time"

// Interaction is one question/answer exchange recorded against a session day.
type Interaction struct {
	ID          int64
	UserID      int64
	SourceID    *int64
	Question    string
	Answer      string
	SessionDate time.Time
	CreatedAt   time.Time
}

// SessionSource marks a source as part of a day's session. RemovedAt is set
// when the user detaches the source from the session and cleared if it is
// attached again.
type SessionSource struct {
	ID          int64
	UserID      int64
	SourceID    int64
	SessionDate time.Time
	AddedAt     time.Time
	RemovedAt   *time.Time
}
