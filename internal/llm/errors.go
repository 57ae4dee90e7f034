package llm

import (
	"fmt"
	"time"
)

// EmptyResponseError reports a backend that answered with zero-length
// content. Distinct from transport failure: the request itself succeeded.
type EmptyResponseError struct {
	Backend string
	Model   string
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("empty response from %s model %s", e.Backend, e.Model)
}

// TimeoutError reports that no response arrived within the configured
// timeout.
type TimeoutError struct {
	Backend string
	Model   string
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s model %s timed out after %s", e.Backend, e.Model, e.Elapsed)
}

// TransportError reports a connection-level failure (DNS, refused
// connection, TLS) or a non-2xx API response.
type TransportError struct {
	Backend string
	Cause   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport: %v", e.Backend, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// UnparsableResponseError reports that the repair cascade could not recover
// a JSON value from the response. Preview is capped at 1000 characters so
// the error payload stays bounded.
type UnparsableResponseError struct {
	Preview string
}

func (e *UnparsableResponseError) Error() string {
	return fmt.Sprintf("unparsable model response: %q", e.Preview)
}

// SchemaMismatchError reports a parsed response whose top level is not a
// JSON object (a bare string, number, or array).
type SchemaMismatchError struct {
	Got string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("expected JSON object at top level, got %s", e.Got)
}
