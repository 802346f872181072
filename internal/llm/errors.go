package llm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed provider call so callers can pick a policy per call.
type ErrorKind string

const (
	// KindTransport: the request did not complete (network, provider error, deadline).
	KindTransport ErrorKind = "transport"
	// KindEmptyResponse: the call completed but returned no text at all.
	KindEmptyResponse ErrorKind = "empty_response"
	// KindNoMedia: the call completed but carried no image or audio payload.
	KindNoMedia ErrorKind = "no_media"
	// KindUnavailable: the SDK client for this call was never initialized.
	KindUnavailable ErrorKind = "unavailable"
)

// Error is returned by every Client operation.
type Error struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of an *Error anywhere in err's chain, or "" when there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
