package fetcher

import (
	"errors"
	"fmt"
)

// Fetch errors carried in model.CrawlResult.Err.
var (
	// ErrNetwork wraps transport failures: DNS, refused connections,
	// timeouts, resets and body read errors.
	ErrNetwork = errors.New("network error")

	// ErrHTTPStatus is matched by every *HTTPError.
	ErrHTTPStatus = errors.New("unexpected HTTP status")

	// ErrRobotsDenied is returned when robots.txt forbids a URL.
	ErrRobotsDenied = errors.New("disallowed by robots.txt")

	// ErrNotHTML is returned when the response is not an HTML document.
	ErrNotHTML = errors.New("not an HTML document")

	// ErrInterrupted is returned when the context ends while the target
	// waits for the politeness gate. No request was sent.
	ErrInterrupted = errors.New("interrupted before the request was sent")
)

// HTTPError reports a non-2xx response.
type HTTPError struct {
	// Code is the HTTP status code.
	Code int
}

// Error implements error.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

// Unwrap lets errors.Is(err, ErrHTTPStatus) match.
func (e *HTTPError) Unwrap() error {
	return ErrHTTPStatus
}
