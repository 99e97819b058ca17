package discovery

import (
	"fmt"
	"net"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/nao1215/docmirror/internal/config"
)

// assetExtensions are file types that are never documentation pages.
var assetExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".ico", ".svg",
	".pdf", ".zip", ".gz", ".tar", ".tgz",
	".css", ".js", ".mjs", ".map",
	".xml", ".json", ".txt",
	".woff", ".woff2", ".ttf", ".eot", ".otf",
	".mp4", ".webm", ".mp3",
}

// Scope decides which discovered URLs belong to the crawl.
// It is immutable after construction and safe for concurrent use.
type Scope struct {
	mode           config.Scope
	host           string
	domain         string
	ignorePatterns []string
	followPatterns []string
}

// NewScope builds a Scope around baseURL.
// In domain mode the registrable domain (eTLD+1) of the base host is used;
// hosts without one (IP addresses, localhost) fall back to exact matching.
func NewScope(baseURL string, mode config.Scope, ignorePatterns, followPatterns []string) (*Scope, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, fmt.Errorf("invalid base URL: missing host in %q", baseURL)
	}

	s := &Scope{
		mode:           mode,
		host:           host,
		ignorePatterns: ignorePatterns,
		followPatterns: followPatterns,
	}
	if mode == config.ScopeDomain {
		s.domain = registrableDomain(host)
	}
	return s, nil
}

// Allows reports whether rawURL is in scope: an http(s) URL on the same
// registrable domain (or exact host), not an asset, and passing the
// ignore and follow patterns.
func (s *Scope) Allows(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if !s.sameSite(strings.ToLower(u.Hostname())) {
		return false
	}
	if isAsset(u.Path) {
		return false
	}
	return s.shouldCrawl(u.Path)
}

// Host returns the base host.
func (s *Scope) Host() string {
	return s.host
}

func (s *Scope) sameSite(host string) bool {
	if host == "" {
		return false
	}
	if host == s.host {
		return true
	}
	if s.domain == "" {
		return false
	}
	return registrableDomain(host) == s.domain
}

// registrableDomain returns the eTLD+1 of host, or "" when it has none.
func registrableDomain(host string) string {
	if net.ParseIP(host) != nil {
		return ""
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}
	return d
}

func isAsset(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return false
	}
	for _, a := range assetExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

// shouldCrawl checks a URL path against the ignore and follow patterns.
//
// Logic:
//  1. If the path matches any ignore pattern, skip it
//  2. If follow patterns are set and the path matches none, skip it
//  3. Otherwise, crawl it
func (s *Scope) shouldCrawl(p string) bool {
	if p == "" {
		p = "/"
	}

	for _, pattern := range s.ignorePatterns {
		if matchPattern(pattern, p) {
			return false
		}
	}

	if len(s.followPatterns) > 0 {
		for _, pattern := range s.followPatterns {
			if matchPattern(pattern, p) {
				return true
			}
		}
		return false
	}

	return true
}

// matchPattern checks if a URL path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//   - a trailing /* or /** to match everything below a prefix
//
// Examples:
//   - "/blog/*" matches "/blog", "/blog/2024/post"
//   - "*.html" matches "/docs/page.html"
//   - "/api/v?" matches "/api/v1", "/api/v2"
func matchPattern(pattern, p string) bool {
	for _, suffix := range []string{"/**", "/*"} {
		if strings.HasSuffix(pattern, suffix) {
			prefix := strings.TrimSuffix(pattern, suffix)
			if strings.HasPrefix(p, prefix+"/") || p == prefix {
				return true
			}
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		if strings.HasSuffix(p, strings.TrimPrefix(pattern, "*")) {
			return true
		}
	}

	if matched, err := path.Match(pattern, p); err == nil && matched {
		return true
	}

	// Patterns without a slash also match the last segment alone.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := path.Match(pattern, path.Base(p)); err == nil && matched {
			return true
		}
	}

	return false
}
