package api

import (
	"errors"
	"fmt"

	"github.com/erazemk/msds/internal/model"
)

// Kind classifies a failed call.
type Kind int

const (
	// KindTransport means the request did not complete: DNS, TLS, timeout,
	// connection reset, cancellation or a non-2xx HTTP status.
	KindTransport Kind = iota + 1
	// KindDecode means the server answered with a body that is not the
	// expected JSON shape.
	KindDecode
	// KindApplication means the server answered well-formed JSON but reported
	// that the operation failed.
	KindApplication
)

// String returns a string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport error"
	case KindDecode:
		return "decode error"
	case KindApplication:
		return "application error"
	default:
		return "unknown error"
	}
}

// Sentinels for errors.Is. Any *Error of the same Kind matches.
var (
	ErrTransport   = &Error{Kind: KindTransport}
	ErrDecode      = &Error{Kind: KindDecode}
	ErrApplication = &Error{Kind: KindApplication}
)

// Error is the single error type returned by Client.
type Error struct {
	Kind     Kind
	Endpoint model.Endpoint
	// Message is a human-readable diagnostic. For application errors it is the
	// server's reason when one was given.
	Message string
	// Status is the HTTP status code, when a response was received.
	Status int
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Endpoint != "" {
		msg = string(e.Endpoint) + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is one of the Kind sentinels matching e.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Endpoint == "" && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the Kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

func transportError(ep model.Endpoint, err error, format string, args ...any) *Error {
	return &Error{Kind: KindTransport, Endpoint: ep, Message: fmt.Sprintf(format, args...), Err: err}
}

func decodeError(ep model.Endpoint, err error, format string, args ...any) *Error {
	return &Error{Kind: KindDecode, Endpoint: ep, Message: fmt.Sprintf(format, args...), Err: err}
}
