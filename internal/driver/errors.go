package driver

import (
	"errors"
	"fmt"
)

// Error codes reported through Status and OnError.
const (
	CodeGeolocationDenied      = "GEOLOCATION_DENIED"
	CodeGeolocationUnavailable = "GEOLOCATION_UNAVAILABLE"
	CodeGeolocationTimeout     = "GEOLOCATION_TIMEOUT"
	CodeNetwork                = "NETWORK_ERROR"
	CodeAuth                   = "AUTH_ERROR"
	CodePermissionDenied       = "PERMISSION_DENIED"
	CodeInvalidData            = "INVALID_DATA"
	CodeUnknown                = "UNKNOWN_ERROR"
)

var (
	// ErrPermissionDenied is returned by Start when location access is refused.
	// Tracking stays off until Start succeeds again.
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrUnauthorized is wrapped by push errors when the hub rejects the session.
	ErrUnauthorized = errors.New("unauthorized")

	ErrLocationUnavailable = errors.New("location unavailable")
	ErrLocationTimeout     = errors.New("location request timed out")
)

// Kind classifies a push failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNetwork failures are transient; the next heartbeat retries.
	KindNetwork
	KindAuth
	KindForbidden
	KindInvalid
)

func (k Kind) Code() string {
	switch k {
	case KindNetwork:
		return CodeNetwork
	case KindAuth:
		return CodeAuth
	case KindForbidden:
		return CodePermissionDenied
	case KindInvalid:
		return CodeInvalidData
	default:
		return CodeUnknown
	}
}

// PushError is returned by a Pusher.
type PushError struct {
	Kind Kind
	Err  error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("push failed (%s): %v", e.Kind.Code(), e.Err)
}

func (e *PushError) Unwrap() error { return e.Err }

// Code maps any reporter error to its error code.
func Code(err error) string {
	var pe *PushError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pe):
		return pe.Kind.Code()
	case errors.Is(err, ErrPermissionDenied):
		return CodeGeolocationDenied
	case errors.Is(err, ErrLocationUnavailable):
		return CodeGeolocationUnavailable
	case errors.Is(err, ErrLocationTimeout):
		return CodeGeolocationTimeout
	case errors.Is(err, ErrUnauthorized):
		return CodeAuth
	default:
		return CodeUnknown
	}
}
