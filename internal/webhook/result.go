package webhook

import (
	"encoding/json"
	"fmt"
)

// ErrorKind classifies a failed webhook call. Every failure maps to exactly
// one kind.
type ErrorKind string

const (
	KindUserCancelled ErrorKind = "user_cancelled"
	KindTimeout       ErrorKind = "timeout"
	KindNetwork       ErrorKind = "network_error"
	KindHTTP          ErrorKind = "http_error"
	KindUnknown       ErrorKind = "unknown_error"
)

// CallError describes a failed call. Status, StatusText and Body are only
// populated for KindHTTP; Body is best-effort and may be empty.
type CallError struct {
	Kind       ErrorKind
	Message    string
	Status     int
	StatusText string
	Body       string
}

// Error implements the error interface.
func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Retryable reports whether the failure is worth retrying: timeouts and
// transport errors are transient, 5xx may recover, 4xx and malformed
// responses will not. User cancellation is benign and never retried.
func (e *CallError) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindNetwork:
		return true
	case KindHTTP:
		return e.Status >= 500
	default:
		return false
	}
}

// Result is the outcome of one call: Raw on success, Err on failure,
// never both.
type Result struct {
	Raw json.RawMessage
	Err *CallError
}

// OK reports whether the call succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

func success(raw json.RawMessage) Result {
	return Result{Raw: raw}
}

func failure(kind ErrorKind, message string) Result {
	return Result{Err: &CallError{Kind: kind, Message: message}}
}
