package config

import "errors"

// Configuration validation errors.
// These are returned by Config.Validate() and are fatal: the CLI reports
// them before any request is made. Callers can match them with errors.Is.
var (
	// ErrNoBaseURL is returned when no documentation URL was given.
	ErrNoBaseURL = errors.New("no base URL specified: provide a URL argument or use --url")

	// ErrInvalidBaseURL is returned when the base URL is not an absolute
	// http or https URL.
	ErrInvalidBaseURL = errors.New("invalid base URL: must be an absolute http or https URL")

	// ErrInvalidMethod is returned for a discovery method other than
	// auto, recursive or sitemap.
	ErrInvalidMethod = errors.New("invalid method: must be auto, recursive or sitemap")

	// ErrMissingSitemapURL is returned when method is sitemap but no
	// sitemap URL was given.
	ErrMissingSitemapURL = errors.New("missing sitemap URL: --sitemap is required with --method sitemap")

	// ErrInvalidSitemapURL is returned when the sitemap URL is not an
	// absolute http or https URL.
	ErrInvalidSitemapURL = errors.New("invalid sitemap URL: must be an absolute http or https URL")

	// ErrInvalidDelay is returned when the request delay is negative.
	// Use 0 for no delay.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidMaxPages is returned when max pages is negative.
	// Use 0 for no limit.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidMaxDepth is returned when max depth is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidScope is returned for a scope other than domain or host.
	ErrInvalidScope = errors.New("invalid scope: must be domain or host")

	// ErrNoOutputDir is returned when the output directory is empty.
	ErrNoOutputDir = errors.New("no output directory specified")

	// ErrInvalidReportFormat is returned for a report format other than
	// text, markdown or json.
	ErrInvalidReportFormat = errors.New("invalid report format: must be text, markdown or json")
)
