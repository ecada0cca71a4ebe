package apiclient

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig marks failures detected before any request is dispatched:
	// missing credentials, invalid timeouts or invalid parameter combinations.
	ErrConfig = errors.New("configuration error")

	ErrNetwork  = errors.New("network error")
	ErrClient   = errors.New("client error")
	ErrServer   = errors.New("server error")
	ErrNotFound = errors.New("not found")
)

// Error is a captured request failure. It matches the sentinel for its
// Status under errors.Is.
type Error struct {
	Status     Status
	StatusCode int
	URL        string
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	return target == sentinel(e.Status)
}

func sentinel(s Status) error {
	switch s {
	case StatusNetworkError:
		return ErrNetwork
	case StatusClientError:
		return ErrClient
	case StatusServerError:
		return ErrServer
	case StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// StatusOf reports the outcome carried by err. A nil error is a success and
// configuration errors report as client errors.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return StatusClientError
}

// Configf returns a configuration error.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// MissingCredential is returned when a provider that needs a key has none.
func MissingCredential(provider, env string) error {
	return Configf("%s requires an API key (pass one explicitly or set %s)", provider, env)
}

// Malformed reports a response that is missing content needed to build any
// result at all.
func Malformed(url, format string, args ...any) error {
	return &Error{Status: StatusClientError, URL: url, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports an affirmative absence.
func NotFound(url, format string, args ...any) error {
	return &Error{Status: StatusNotFound, URL: url, Message: fmt.Sprintf(format, args...)}
}
