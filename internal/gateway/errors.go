package gateway

import "fmt"

// ConfigurationError means a required credential or setting is missing.
// It is fatal to the operation and reported as a server-side failure.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return e.Msg
}

// ValidationError means the caller's input is missing or malformed.
// It is a client problem, not an upstream one, and must never trigger
// an upstream call.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// UpstreamError wraps a failure from the calendar-of-record (auth, network,
// not-found, quota). The upstream message is kept verbatim for diagnostics.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("calendar %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
