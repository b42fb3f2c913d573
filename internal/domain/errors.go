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
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeIngestion     = "INGESTION_ERROR"
	ErrCodeGeneration    = "GENERATION_ERROR"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrEmptyQuestion        = NewDomainError(ErrCodeValidation, "question cannot be empty")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Ingestion errors. These are fatal to the document being ingested: no
// partial index is published.
var (
	ErrEmptyDocument    = NewDomainError(ErrCodeIngestion, "extraction produced no usable text")
	ErrExtractionFailed = NewDomainError(ErrCodeIngestion, "failed to extract document text")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrIndexNotFound    = NewDomainError(ErrCodeNotFound, "no index published for document")
	ErrSnapshotNotFound = NewDomainError(ErrCodeNotFound, "no persisted index snapshot found")
)

// Generation errors. Surfaced to the caller as a failed request; retrieval
// degradations (decomposition fallback, low confidence) are flags on
// results, never errors.
var (
	ErrGenerationFailed  = NewDomainError(ErrCodeGeneration, "generation service call failed")
	ErrGenerationTimeout = NewDomainError(ErrCodeGeneration, "generation service call timed out")
	ErrEmptyCompletion   = NewDomainError(ErrCodeGeneration, "generation service returned empty text")
)

// Authorization errors
var (
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)
