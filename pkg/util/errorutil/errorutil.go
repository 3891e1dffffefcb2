package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned in API error envelopes.
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeSchemaInvalid    = "SCHEMA_INVALID"
	CodeFormatInvalid    = "FORMAT_INVALID"
	CodeInsufficientData = "INSUFFICIENT_DATA"
	CodeNotFound         = "NOT_FOUND"
	CodeStoreCorrupt     = "STORE_CORRUPT"
	CodeInternal         = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// Wrap attaches the underlying cause to a DomainError.
func (e *DomainError) Wrap(err error) *DomainError {
	e.Err = err
	return e
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

// NewUnprocessable reports input that is well-formed but cannot be analyzed.
func NewUnprocessable(code, message string, details map[string]any) *DomainError {
	return NewDomainError(code, message, http.StatusUnprocessableEntity, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError returns err as a *DomainError, wrapping anything else as an
// internal error.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return NewInternalError(err).(*DomainError)
}
