package discovery

import (
	"errors"
	"fmt"
)

var (
	// ErrSitemapParse is matched by every sitemap failure: unreachable,
	// non-2xx, malformed XML, unknown root element, or too deeply nested.
	ErrSitemapParse = errors.New("sitemap parse error")

	// ErrSitemapDepth is returned for a sitemap nested deeper than the
	// configured maximum below the root. It also matches ErrSitemapParse.
	ErrSitemapDepth = fmt.Errorf("%w: maximum sitemap index depth exceeded", ErrSitemapParse)

	// ErrNoSitemapFound is reported when auto discovery finds no usable
	// sitemap and falls back to recursive crawling.
	ErrNoSitemapFound = errors.New("no usable sitemap found")
)

// SitemapError describes the failure of one sitemap document.
// errors.Is(err, ErrSitemapParse) holds for every SitemapError.
type SitemapError struct {
	// URL is the sitemap that failed.
	URL string

	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *SitemapError) Error() string {
	return fmt.Sprintf("sitemap %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *SitemapError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrSitemapParse.
func (e *SitemapError) Is(target error) bool {
	return target == ErrSitemapParse
}
