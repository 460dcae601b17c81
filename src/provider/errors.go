package provider

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrNetworkFailure = errors.New("network failure")
	ErrUnclassified   = errors.New("unclassified fetch error")
)

// ErrorKind classifies a failed fetch.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindNetworkFailure
	KindUnclassified
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindNetworkFailure:
		return "network_failure"
	default:
		return "unclassified"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindUnauthorized:
		return ErrUnauthorized
	case KindForbidden:
		return ErrForbidden
	case KindNotFound:
		return ErrNotFound
	case KindNetworkFailure:
		return ErrNetworkFailure
	default:
		return ErrUnclassified
	}
}

// FetchError is a classified failure at the build source boundary.
type FetchError struct {
	Kind       ErrorKind
	Op         string // e.g. "list builds"
	StatusCode int    // 0 for transport failures
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind.sentinel())
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind, so callers can use
// errors.Is(err, provider.ErrUnauthorized).
func (e *FetchError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindForStatus maps an HTTP status code to an error kind.
func KindForStatus(status int) ErrorKind {
	switch status {
	case 401:
		return KindUnauthorized
	case 403:
		return KindForbidden
	case 404:
		return KindNotFound
	default:
		return KindUnclassified
	}
}

// Classify returns the kind of a fetch error, or KindNone for nil.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrNetworkFailure):
		return KindNetworkFailure
	}
	return KindUnclassified
}

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// WrapError converts fetch errors to user-friendly messages.
// Errors that are not classified fetch failures are returned unchanged.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrInvalidURL) {
		return &UserError{
			Message: "Invalid build URL",
			Hint:    "Supported format:\n  - https://buildkite.com/org/pipeline/builds/123",
			Err:     err,
		}
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		return err
	}

	switch fe.Kind {
	case KindUnauthorized:
		return &UserError{
			Message: "Invalid API token or insufficient permissions",
			Hint:    "Check that BUILDKITE_API_TOKEN is set to a valid token.",
			Err:     err,
		}
	case KindForbidden:
		return &UserError{
			Message: "Access denied",
			Hint:    "The API token needs the read_builds scope for this organization.",
			Err:     err,
		}
	case KindNotFound:
		return &UserError{
			Message: "Pipeline not found",
			Hint:    "Check the organization and pipeline slugs (BUILDKITE_ORG, BUILDKITE_PIPELINE).",
			Err:     err,
		}
	case KindNetworkFailure:
		return &UserError{
			Message: "Failed to reach the Buildkite API",
			Hint:    "Check your network connection and try again.",
			Err:     err,
		}
	default:
		return &UserError{
			Message: "Failed to fetch builds",
			Err:     err,
		}
	}
}
