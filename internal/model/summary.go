package model

import (
	"sort"
	"time"
)

// FailureKind groups failed pages in the summary.
type FailureKind string

const (
	// FailureNetwork counts transport failures.
	FailureNetwork FailureKind = "network"

	// FailureHTTP counts non-2xx responses.
	FailureHTTP FailureKind = "http"

	// FailureWrite counts pages that could not be written to disk.
	FailureWrite FailureKind = "write"

	// FailureConversion counts pages written with the raw-HTML fallback.
	FailureConversion FailureKind = "conversion"
)

// SkipReason groups skipped URLs in the summary.
type SkipReason string

const (
	// SkipRobotsDenied counts URLs forbidden by robots.txt.
	SkipRobotsDenied SkipReason = "robots_denied"

	// SkipNonHTML counts responses that were not HTML.
	SkipNonHTML SkipReason = "non_html"

	// SkipOutOfScope counts links rejected by the scope filter.
	SkipOutOfScope SkipReason = "out_of_scope"
)

// Summary is the result of one crawl run.
type Summary struct {
	// Method is the discovery method that was actually used.
	// For auto this is "sitemap" or "recursive".
	Method string `json:"method"`

	// BaseURL is the documentation root.
	BaseURL string `json:"base_url"`

	// OutputDir is the output root.
	OutputDir string `json:"output_dir"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Discovered is the number of targets in the initial plan.
	Discovered int `json:"discovered"`

	// Attempted is the number of targets taken from the frontier.
	Attempted int `json:"attempted"`

	// Converted is the number of pages written successfully.
	Converted int `json:"converted"`

	// ConversionFallbacks is the number of pages written as raw HTML.
	ConversionFallbacks int `json:"conversion_fallbacks"`

	// SitemapErrors is the number of sitemaps that failed during discovery.
	SitemapErrors int `json:"sitemap_errors"`

	// Failed counts failures by kind.
	Failed map[FailureKind]int `json:"failed"`

	// Skipped counts skips by reason.
	Skipped map[SkipReason]int `json:"skipped"`

	// HTTPCodes counts responses by HTTP status code.
	HTTPCodes map[int]int `json:"http_codes"`

	// Pending lists URLs left in the frontier when the run stopped.
	Pending []string `json:"pending,omitempty"`

	// Records holds one entry per attempted URL in attempt order.
	Records []PageRecord `json:"records,omitempty"`

	// Cancelled is true when the run was interrupted.
	Cancelled bool `json:"cancelled"`
}

// NewSummary creates an empty Summary with initialized maps.
func NewSummary(method, baseURL, outputDir string) *Summary {
	return &Summary{
		Method:    method,
		BaseURL:   baseURL,
		OutputDir: outputDir,
		StartedAt: time.Now(),
		Failed:    make(map[FailureKind]int),
		Skipped:   make(map[SkipReason]int),
		HTTPCodes: make(map[int]int),
	}
}

// AddRecord appends a page outcome.
func (s *Summary) AddRecord(r PageRecord) {
	s.Records = append(s.Records, r)
	if r.StatusCode != 0 {
		s.HTTPCodes[r.StatusCode]++
	}
}

// Fail increments the failure count for kind.
func (s *Summary) Fail(kind FailureKind) {
	s.Failed[kind]++
}

// Skip increments the skip count for reason.
func (s *Summary) Skip(reason SkipReason) {
	s.Skipped[reason]++
}

// FailedTotal returns the number of failed pages.
// Conversion fallbacks are excluded because those pages were still written.
func (s *Summary) FailedTotal() int {
	total := 0
	for kind, n := range s.Failed {
		if kind == FailureConversion {
			continue
		}
		total += n
	}
	return total
}

// SkippedTotal returns the number of skipped URLs.
func (s *Summary) SkippedTotal() int {
	total := 0
	for _, n := range s.Skipped {
		total += n
	}
	return total
}

// Duration returns how long the run took.
func (s *Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// SortedHTTPCodes returns the observed status codes in ascending order.
func (s *Summary) SortedHTTPCodes() []int {
	codes := make([]int, 0, len(s.HTTPCodes))
	for code := range s.HTTPCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

// FailedRecords returns records that did not produce a file.
func (s *Summary) FailedRecords() []PageRecord {
	var out []PageRecord
	for _, r := range s.Records {
		if r.Status != RecordConverted && r.Status != StatusRobotsDenied.String() &&
			r.Status != StatusSkippedNonHTML.String() {
			out = append(out, r)
		}
	}
	return out
}
