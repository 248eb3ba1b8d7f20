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

// Is matches another DomainError with the same code and message, so wrapped
// copies created with NewDomainErrorWithCause still satisfy errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
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

// WithCause returns a copy of e carrying err as its cause.
func (e *DomainError) WithCause(err error) *DomainError {
	return NewDomainErrorWithCause(e.Code, e.Message, err)
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
	ErrCodeExecution     = "EXECUTION_ERROR"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternalError = "INTERNAL_ERROR"

	ErrCodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	ErrCodeUnsupportedType = "UNSUPPORTED_MEDIA_TYPE"
)

// Validation errors
var (
	ErrEmptyQuestion      = NewDomainError(ErrCodeValidation, "question cannot be empty")
	ErrInvalidCatalog     = NewDomainError(ErrCodeValidation, "invalid schema catalog")
	ErrInvalidConfig      = NewDomainError(ErrCodeValidation, "invalid configuration")
	ErrMissingRequiredURI = NewDomainError(ErrCodeValidation, "schema item uri is required")
	ErrInvalidIRI         = NewDomainError(ErrCodeValidation, "not a valid IRI reference")
)

// Request errors
var (
	ErrInvalidRequestBody   = NewDomainError(ErrCodeValidation, "invalid request body")
	ErrRequestTooLarge      = NewDomainError(ErrCodePayloadTooLarge, "request body too large")
	ErrUnsupportedMediaType = NewDomainError(ErrCodeUnsupportedType, "content type must be application/json")
)

// Upstream errors
var (
	ErrLinkerUnavailable     = NewDomainError(ErrCodeUpstream, "entity linker request failed")
	ErrEmbeddingUnavailable  = NewDomainError(ErrCodeUpstream, "embedding request failed")
	ErrCompletionUnavailable = NewDomainError(ErrCodeUpstream, "completion request failed")
)

// Execution errors
var (
	ErrQueryExecution = NewDomainError(ErrCodeExecution, "SPARQL query failed")
)

// Authorization errors
var (
	ErrInvalidAPIToken = NewDomainError(ErrCodeUnauthorized, "invalid api token")
)
