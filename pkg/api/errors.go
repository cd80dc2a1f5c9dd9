package api

import "fmt"

// The error taxonomy mirrors the recovery policy: mutation callers roll back
// on any of these; fetch callers keep the last good snapshot and surface a
// dismissible message. Nothing here is fatal to the process.

// NetworkError means no usable response was received (connection failure,
// timeout, cancelled context). Timeouts are deliberately not distinguished
// from other transport failures; both trigger the same rollback path.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError means the backend rejected our credentials even after the
// one-shot refresh-and-replay. It is terminal for the request.
type AuthError struct {
	Op string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: unauthorized after token refresh", e.Op)
}

// ServerError is any non-2xx response other than 401. Message carries the
// backend's error text when one was provided.
type ServerError struct {
	Op      string
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: server returned %d", e.Op, e.Status)
}

// DecodeError means the response arrived but its payload was malformed.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
