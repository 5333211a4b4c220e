package xerrors

import (
	"errors"
	"fmt"
)

// Common reusable application errors
var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized access")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInternal            = errors.New("internal server error")
	ErrRateLimited         = errors.New("too many requests")
	ErrBadRequest          = errors.New("bad request")
	ErrMalformedRecord     = errors.New("malformed record")
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
	ErrNoSnapshot          = errors.New("no snapshot loaded yet")
	ErrRefreshInProgress   = errors.New("refresh already in progress")
)

// FetchKind classifies why a CRM fetch failed so callers can decide
// between surfacing a credential problem and a transient outage.
type FetchKind string

const (
	FetchAuth        FetchKind = "auth"
	FetchTimeout     FetchKind = "timeout"
	FetchConnection  FetchKind = "connection"
	FetchRateLimited FetchKind = "rate_limited"
	FetchUnknown     FetchKind = "unknown"
)

// FetchError wraps a failed upstream call with its classification.
// Message is safe to show to the operator; it never contains
// credentials or tokens.
type FetchError struct {
	Kind    FetchKind
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("fetch failed (%s): %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("fetch failed (%s)", e.Kind)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError builds a classified fetch error.
func NewFetchError(kind FetchKind, message string, err error) *FetchError {
	return &FetchError{Kind: kind, Message: message, Err: err}
}

// FetchKindOf extracts the classification from an error chain,
// defaulting to FetchUnknown when no FetchError is present.
func FetchKindOf(err error) FetchKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return FetchUnknown
}

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in the chain matching target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Unwrap extracts the underlying wrapped error.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// MessageOrDefault returns err.Error() or a fallback message if err is nil.
func MessageOrDefault(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}
