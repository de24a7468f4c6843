package domain

import "time"

// EventType classifies where an event's text came from.
type EventType string

const (
	EventTypeAudio    EventType = "audio"
	EventTypeDocument EventType = "document"
	EventTypeWebpage  EventType = "webpage"
	EventTypeText     EventType = "text"
)

// ValidEventTypes lists every accepted event type.
var ValidEventTypes = []EventType{
	EventTypeAudio,
	EventTypeDocument,
	EventTypeWebpage,
	EventTypeText,
}

// IsValid reports whether t is a known event type.
func (t EventType) IsValid() bool {
	for _, v := range ValidEventTypes {
		if t == v {
			return true
		}
	}
	return false
}

// IsDocumentLike reports whether events of this type count as document
// material for the document retrieval path.
func (t EventType) IsDocumentLike() bool {
	return t == EventTypeDocument || t == EventTypeWebpage
}

// Event is a normalized, embedded chunk of ingested text. Events are produced
// by the ingestion pipelines and are read-only from the query core's
// perspective; the embedding vector lives in its own table keyed by event id.
type Event struct {
	ID         int64
	UserID     int64
	SourceID   int64
	Type       EventType
	RawText    string
	ChunkIndex int
	Timestamp  time.Time
	Date       time.Time // date-precision bucket of Timestamp
	CreatedAt  time.Time
}

// ValidateEvent validates an Event instance.
func ValidateEvent(e *Event) error {
	if e == nil {
		return NewDomainError(ErrCodeValidation, "event cannot be nil")
	}
	if e.UserID == 0 {
		return ErrMissingRequiredField
	}
	if e.SourceID == 0 {
		return ErrMissingRequiredField
	}
	if !e.Type.IsValid() {
		return ErrInvalidEventType
	}
	if e.RawText == "" {
		return ErrMissingRequiredField
	}
	if e.Date.IsZero() {
		return ErrMissingRequiredField
	}
	return nil
}
