package model

// Source records how a CrawlTarget was discovered.
type Source int

const (
	// SourceSeed is the base URL the user asked for.
	SourceSeed Source = iota

	// SourceSitemap is a <loc> entry from a sitemap.
	SourceSitemap

	// SourceLink is a hyperlink extracted from a converted page.
	SourceLink
)

// String returns the lowercase source name.
func (s Source) String() string {
	switch s {
	case SourceSeed:
		return "seed"
	case SourceSitemap:
		return "sitemap"
	case SourceLink:
		return "link"
	default:
		return "unknown"
	}
}

// CrawlTarget is one URL scheduled for fetching.
// Its identity is the normalized URL; two targets with the same normalized
// URL are the same page. A target is never modified after creation.
type CrawlTarget struct {
	// URL is the absolute URL to fetch.
	URL string `json:"url"`

	// Source tells where the URL came from.
	Source Source `json:"source"`

	// Depth is the link distance from the seed.
	// Seeds and sitemap entries have depth 0.
	Depth int `json:"depth"`
}

// NewSeedTarget returns the depth-0 target for the base URL.
func NewSeedTarget(url string) CrawlTarget {
	return CrawlTarget{URL: url, Source: SourceSeed}
}

// NewSitemapTarget returns the depth-0 target for a sitemap entry.
func NewSitemapTarget(url string) CrawlTarget {
	return CrawlTarget{URL: url, Source: SourceSitemap}
}

// Child returns a link target one level deeper than t.
func (t CrawlTarget) Child(url string) CrawlTarget {
	return CrawlTarget{URL: url, Source: SourceLink, Depth: t.Depth + 1}
}
