package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeUnavailable      = "UNAVAILABLE"
)

// Validation errors
var (
	ErrInvalidEventType     = NewDomainError(ErrCodeValidation, "invalid event type")
	ErrInvalidDateRange     = NewDomainError(ErrCodeValidation, "date range start must not be after end")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyQuestion        = NewDomainError(ErrCodeValidation, "question cannot be empty")
)

// Not found errors
var (
	ErrSourceNotFound    = NewDomainError(ErrCodeNotFound, "source not found for this user")
	ErrEventNotFound     = NewDomainError(ErrCodeNotFound, "event not found")
	ErrEmbeddingNotFound = NewDomainError(ErrCodeNotFound, "embedding not found for event")
	ErrArtifactNotFound  = NewDomainError(ErrCodeNotFound, "source has no stored artifact")
)

// Operation errors
var (
	ErrStorageNotConfigured = NewDomainError(ErrCodeUnavailable, "artifact storage is not configured")
	ErrLLMNotConfigured     = NewDomainError(ErrCodeUnavailable, "language model provider is not configured")
)
