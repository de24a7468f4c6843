package domain

import "time"

// Source is the original ingested artifact (audio file, document, web page,
// or free text) that produced one or more events.
type Source struct {
	ID         int64
	UserID     int64
	Type       EventType
	Title      string
	URI        string
	FileSize   int64
	MimeType   string
	Metadata   string // JSON blob from the ingestion pipeline
	StorageKey string // object key of the original artifact, empty if not stored
	CreatedAt  time.Time
}

// ValidateSource validates a Source instance.
func ValidateSource(s *Source) error {
	if s == nil {
		return NewDomainError(ErrCodeValidation, "source cannot be nil")
	}
	if s.UserID == 0 {
		return ErrMissingRequiredField
	}
	if !s.Type.IsValid() {
		return ErrInvalidEventType
	}
	if s.Title == "" {
		return ErrMissingRequiredField
	}
	return nil
}
