// Package aerr defines the closed set of client/runtime/transport error
// codes surfaced by the AFD protocol as `error` events. It generalizes the
// Kind+wrapped-error shape used across the codebase for typed, machine
// readable failures.
package aerr

import "fmt"

// Code is one of the fixed error_code values the protocol may emit.
type Code string

const (
	InvalidRequest Code = "invalid_request"
	InvalidParams  Code = "invalid_params"
	ConnectFailed  Code = "connect_failed"
	ConnectTimeout Code = "connect_timeout"
	// AuthFailed is part of the closed set spec §4.7 defines but is never
	// produced: an authentication failure while internal/session opens a
	// pool is reported as connect_failed, and one that reaches mapError
	// arrives as a SQLSTATE-carrying PgError and becomes a sql_error.
	AuthFailed     Code = "auth_failed"
	ResultTooLarge Code = "result_too_large"
	Cancelled      Code = "cancelled"
)

// Retryable reports the fixed retryability of a code, per spec §4.7. Both
// connect_failed occurrences in handler.rs set retryable: true, whether the
// failure is an unknown session name or a live connect attempt failing, so
// ConnectFailed is retryable like ConnectTimeout rather than defaulting to
// false with the rest of the set.
func (c Code) Retryable() bool {
	switch c {
	case ConnectFailed, ConnectTimeout, Cancelled:
		return true
	default:
		return false
	}
}

// E is a client/runtime/transport failure carrying one of the closed Codes.
type E struct {
	Code    Code
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

// Retryable reports whether this error's code is retryable.
func (e *E) Retryable() bool { return e.Code.Retryable() }

// New builds an E with no wrapped cause.
func New(code Code, msg string) *E { return &E{Code: code, Message: msg} }

// Wrap builds an E around an underlying cause.
func Wrap(code Code, msg string, err error) *E { return &E{Code: code, Message: msg, Err: err} }
