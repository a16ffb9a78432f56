package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error kinds for the extraction pipeline. Backend errors are retryable at
// the batch-submission layer; validation errors are not retryable without a
// prompt or contract change.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrIO           = errors.New("i/o error")
	ErrBackend      = errors.New("backend error")
	ErrValidation   = errors.New("validation failed")
	ErrDatabase     = errors.New("database error")
	ErrCanceled     = errors.New("canceled")
)

// NewAppError creates an AppError with a stable code and an underlying kind.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Retryable reports whether err is worth retrying against the backend.
func Retryable(err error) bool {
	return errors.Is(err, ErrBackend)
}
