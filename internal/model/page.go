package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ConvertedPage is the Markdown rendition of one fetched HTML page.
type ConvertedPage struct {
	// Title is never empty: it falls back to a humanized path segment or the host.
	Title string `json:"title"`

	// SourceURL is the absolute URL the page was fetched from.
	SourceURL string `json:"source_url"`

	// DownloadedAt is when the page was fetched.
	DownloadedAt time.Time `json:"date_downloaded"`

	// Body is the Markdown body without frontmatter.
	Body string `json:"-"`

	// Links are same-scope absolute URLs found in the page, in document order.
	Links []string `json:"links,omitempty"`

	// Fallback is true when conversion failed and Body holds the raw HTML.
	Fallback bool `json:"fallback,omitempty"`
}

// Record outcomes that are not fetch statuses.
const (
	// RecordConverted marks a page that was converted and written.
	RecordConverted = "converted"

	// RecordWriteError marks a page that converted but could not be written.
	RecordWriteError = "write_error"
)

// PageRecord is the retained outcome of one attempted URL.
// It feeds the run summary, the reports, and the history database.
type PageRecord struct {
	// URL is the attempted URL.
	URL string `json:"url"`

	// Status is RecordConverted, RecordWriteError, or a fetch Status name.
	Status string `json:"status"`

	// StatusCode is the HTTP status code, or 0 if none was received.
	StatusCode int `json:"status_code,omitempty"`

	// OutputPath is the file path relative to the output root.
	// Empty when nothing was written.
	OutputPath string `json:"output_path,omitempty"`

	// Title is the converted page title.
	Title string `json:"title,omitempty"`

	// Error is the failure message, if any.
	Error string `json:"error,omitempty"`

	// Hash is the SHA-256 of the written document.
	// Used by history diffs to detect content changes between runs.
	Hash string `json:"hash,omitempty"`

	// FetchedAt is when the fetch completed.
	FetchedAt time.Time `json:"fetched_at"`
}

// ComputeHash sets Hash to the hex SHA-256 of content.
// Empty content leaves Hash empty.
func (r *PageRecord) ComputeHash(content []byte) {
	if len(content) == 0 {
		r.Hash = ""
		return
	}
	sum := sha256.Sum256(content)
	r.Hash = hex.EncodeToString(sum[:])
}

// Succeeded reports whether the page was converted and written.
func (r PageRecord) Succeeded() bool {
	return r.Status == RecordConverted
}
