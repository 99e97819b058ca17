package model

import "time"

// Status is the outcome of a single fetch attempt.
type Status int

const (
	// StatusOK means a 2xx response with an HTML body.
	StatusOK Status = iota

	// StatusHTTPError means the server answered with a non-2xx code.
	StatusHTTPError

	// StatusNetworkError means no usable response was received
	// (DNS failure, refused connection, timeout, reset).
	StatusNetworkError

	// StatusRobotsDenied means robots.txt forbids the URL; no request was sent.
	StatusRobotsDenied

	// StatusSkippedNonHTML means the response was not an HTML document.
	StatusSkippedNonHTML

	// StatusInterrupted means the run was cancelled while the target waited
	// for the politeness gate; no request was sent and the URL is still pending.
	//
	// Design decision: We keep this apart from StatusNetworkError so that
	// a deadline shorter than the crawl delay never shows up as a failure
	// in the summary or the history database.
	StatusInterrupted
)

// String returns the snake_case status name used in logs and reports.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusHTTPError:
		return "http_error"
	case StatusNetworkError:
		return "network_error"
	case StatusRobotsDenied:
		return "robots_denied"
	case StatusSkippedNonHTML:
		return "skipped_non_html"
	case StatusInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// CrawlResult is the outcome of fetching one CrawlTarget.
// It is produced once per attempt and dropped after conversion.
type CrawlResult struct {
	// Target is the URL that was attempted.
	Target CrawlTarget

	// HTML is the UTF-8 decoded body. Set only when Status is StatusOK.
	HTML []byte

	// Status classifies the outcome.
	Status Status

	// StatusCode is the HTTP status code, or 0 if no response was received.
	StatusCode int

	// ContentType is the media type of the response without parameters.
	ContentType string

	// Err describes the failure for every status other than StatusOK.
	Err error

	// FetchedAt is when the response (or failure) was observed.
	FetchedAt time.Time

	// Elapsed is the time spent on the request, excluding the politeness wait.
	Elapsed time.Duration
}

// OK reports whether the result carries an HTML body ready for conversion.
func (r CrawlResult) OK() bool {
	return r.Status == StatusOK
}
