package errors

import (
	"fmt"
)

// VigilError is the structured error type for vigil.
// It provides rich context for error handling, logging, and user presentation.
type VigilError struct {
	// Code is the unique error code (e.g., "ERR_201_ROOT_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Setup, Watch, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *VigilError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *VigilError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with VigilError.
func (e *VigilError) Is(target error) bool {
	if t, ok := target.(*VigilError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *VigilError) WithDetail(key, value string) *VigilError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *VigilError) WithSuggestion(suggestion string) *VigilError {
	e.Suggestion = suggestion
	return e
}

// New creates a new VigilError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *VigilError {
	return &VigilError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Newf creates a new VigilError with a formatted message.
func Newf(code string, cause error, format string, args ...any) *VigilError {
	return New(code, fmt.Sprintf(format, args...), cause)
}

// Wrap wraps an existing error with a code, reusing its message.
func Wrap(code string, err error) *VigilError {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return New(code, msg, err)
}

// Code extracts the error code from an error, if it is a VigilError.
// Returns empty string for nil or non-structured errors.
func Code(err error) string {
	if ve, ok := err.(*VigilError); ok {
		return ve.Code
	}
	return ""
}

// IsCode reports whether err (or any error in its chain) carries the code.
func IsCode(err error, code string) bool {
	for err != nil {
		if ve, ok := err.(*VigilError); ok && ve.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
