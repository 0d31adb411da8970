package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies why an article or listing attempt failed.
type ErrorKind string

// Failure taxonomy. Every error raised inside a processing unit maps to
// exactly one of these before it reaches an outcome.
const (
	KindTimeout          ErrorKind = "timeout"
	KindConnectionFailed ErrorKind = "connection_failed"
	KindHTTPStatus       ErrorKind = "http_status"
	KindEmptyContent     ErrorKind = "empty_content"
	KindMalformedPage    ErrorKind = "malformed_page"
	KindCancelled        ErrorKind = "cancelled"
	KindUnexpected       ErrorKind = "unexpected"
)

// FetchError reports a transport-level failure with its classification.
type FetchError struct {
	Kind       ErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == KindHTTPStatus {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ExtractError reports that a fetched page could not be turned into a
// structured record.
type ExtractError struct {
	Kind   ErrorKind
	Detail string
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract: %s: %s", e.Kind, e.Detail)
}

// Classify maps an arbitrary error from the fetch/extract layer onto the
// failure taxonomy. Unknown errors become KindUnexpected.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	var xe *ExtractError
	if errors.As(err, &xe) {
		return xe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindUnexpected
}
