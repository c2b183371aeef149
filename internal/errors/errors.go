// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNoData               = errors.New("no data available")
	ErrNoSnapshot           = errors.New("no price snapshot collected yet")
	ErrWebhookNotConfigured = errors.New("webhook endpoint not configured")
	ErrSchedulerDisabled    = errors.New("scheduler is disabled")
	ErrTimeout              = errors.New("operation timed out")
	ErrDatabaseError        = errors.New("database error")
)

// FetchError represents a network-level failure talking to an upstream
// source. It counts as a transient failure; the next scheduled tick retries.
type FetchError struct {
	Source string
	URL    string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch error [%s] %s: %v", e.Source, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError.
func NewFetchError(source, url string, err error) *FetchError {
	return &FetchError{Source: source, URL: url, Err: err}
}

// ParseError represents a structural mismatch in the quote feed payload:
// the expected identifier is missing or the field list is too short.
type ParseError struct {
	Source string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s]: %s", e.Source, e.Reason)
}

// NewParseError creates a new ParseError.
func NewParseError(source, reason string) *ParseError {
	return &ParseError{Source: source, Reason: reason}
}

// ScrapeError represents a missing structural anchor in scraped markup,
// such as no table or no rows where the price table should be.
type ScrapeError struct {
	Anchor string
	Reason string
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape error [%s]: %s", e.Anchor, e.Reason)
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(anchor, reason string) *ScrapeError {
	return &ScrapeError{Anchor: anchor, Reason: reason}
}

// ValidationError represents a plausibility-bound violation on fetched data.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
