package userdir

import "errors"

var (
	// ErrLoginFailed is returned for any non-2xx response. The message is
	// shown to callers verbatim.
	ErrLoginFailed = errors.New("Failed to login") //nolint:staticcheck // ST1005
	// ErrMalformedResponse is matched by body decode failures and empty result sets.
	ErrMalformedResponse = errors.New("malformed user directory response")
)

// NetworkError wraps a transport failure. Its message is the transport
// error's own message.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }
