// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Common application errors.
var (
	// Ingestion errors.
	ErrSchema = errors.New("schema mismatch")
	ErrIO     = errors.New("source unreadable")

	// Selection errors.
	ErrUnknownAccount = errors.New("unknown account")

	// Generation errors.
	ErrTemplate = errors.New("invalid template")

	// Session errors.
	ErrBusy = errors.New("another operation is in progress")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// SchemaError reports the required columns a tabular source lacks.
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s is missing required columns: %s",
		ErrSchema, e.Source, strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Unwrap() error {
	return ErrSchema
}

// IOError reports a source that could not be read.
type IOError struct {
	Err    error
	Source string
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrIO, e.Source, e.Err)
}

// Unwrap exposes both ErrIO and the underlying cause.
func (e *IOError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}

// UnknownAccountError is returned when an account key is not in the current summaries.
type UnknownAccountError struct {
	AccountKey string
}

func (e *UnknownAccountError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownAccount, e.AccountKey)
}

func (e *UnknownAccountError) Unwrap() error {
	return ErrUnknownAccount
}

// TemplateError reports a template that is missing or cannot produce a document.
type TemplateError struct {
	Err    error
	Path   string
	Reason string
}

func (e *TemplateError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrTemplate, e.Reason)
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s: %s", ErrTemplate, e.Path, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes ErrTemplate and, when present, the underlying cause.
func (e *TemplateError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTemplate}
	}
	return []error{ErrTemplate, e.Err}
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
