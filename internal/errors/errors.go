package errors

import (
	"errors"
	"fmt"
)

// WorkerError is the structured error type for seekd.
// It provides rich context for error handling, logging, and the HTTP gateway's
// error bodies.
type WorkerError struct {
	// Code is the unique error code (e.g., "ERR_201_FILE_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Network, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *WorkerError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *WorkerError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with WorkerError.
func (e *WorkerError) Is(target error) bool {
	if t, ok := target.(*WorkerError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *WorkerError) WithDetail(key, value string) *WorkerError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new WorkerError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *WorkerError {
	return &WorkerError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a WorkerError from an existing error.
// The error's message becomes the WorkerError message.
func Wrap(code string, err error) *WorkerError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// NotFound creates a file-not-found error for the given path.
func NotFound(path string) *WorkerError {
	return New(ErrCodeFileNotFound, "file not found: "+path, nil).WithDetail("path", path)
}

// InvalidInput creates an input validation error.
func InvalidInput(message string) *WorkerError {
	return New(ErrCodeInvalidInput, message, nil)
}

// ConfigError creates a configuration error. Config errors are fatal at startup.
func ConfigError(message string, cause error) *WorkerError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// VectorStoreError creates a vector store error. These are retryable.
func VectorStoreError(message string, cause error) *WorkerError {
	return New(ErrCodeVectorStoreUnavailable, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error chain contains a WorkerError with the Retryable
// flag set.
func IsRetryable(err error) bool {
	var we *WorkerError
	if errors.As(err, &we) {
		return we.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	var we *WorkerError
	if errors.As(err, &we) {
		return we.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from the first WorkerError in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var we *WorkerError
	if errors.As(err, &we) {
		return we.Code
	}
	return ""
}
