package domain

import (
	"errors"
	"fmt"
)

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
	ErrCodeStore         = "STORE_ERROR"
	ErrCodeInference     = "INFERENCE_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrBlankContent  = NewDomainError(ErrCodeValidation, "content cannot be blank")
	ErrBlankQuestion = NewDomainError(ErrCodeValidation, "question cannot be blank")
	ErrInvalidTopK   = NewDomainError(ErrCodeValidation, "topK must be at least 1")
	ErrInvalidRole   = NewDomainError(ErrCodeValidation, "invalid message role")
)

// Store and inference errors wrap backend failures with a stable code
// so the chat boundary can classify them without knowing the backend.
func NewStoreError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeStore, message, err)
}

func NewInferenceError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeInference, message, err)
}

// ErrorCode extracts the DomainError code from err, unwrapping as
// needed. Returns ErrCodeInternalError for foreign errors.
func ErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ErrCodeInternalError
}

// IsInferenceError reports whether err carries the inference code.
// The retry policy uses this to avoid retrying logic bugs.
func IsInferenceError(err error) bool {
	return ErrorCode(err) == ErrCodeInference
}
