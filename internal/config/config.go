package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Method selects how page URLs are discovered.
type Method string

const (
	// MethodAuto probes conventional sitemap locations and falls back to
	// recursive discovery when none of them yields pages.
	MethodAuto Method = "auto"

	// MethodRecursive follows same-domain links starting from the base URL.
	MethodRecursive Method = "recursive"

	// MethodSitemap reads page URLs from an explicitly given sitemap.
	MethodSitemap Method = "sitemap"
)

// Valid reports whether m is one of the known methods.
func (m Method) Valid() bool {
	switch m {
	case MethodAuto, MethodRecursive, MethodSitemap:
		return true
	default:
		return false
	}
}

// String returns the method name.
func (m Method) String() string {
	return string(m)
}

// Scope restricts which discovered URLs belong to the crawl.
type Scope string

const (
	// ScopeDomain accepts every host under the base URL's registrable domain
	// (docs.example.com and api.example.com for https://docs.example.com).
	ScopeDomain Scope = "domain"

	// ScopeHost accepts only the exact host of the base URL.
	ScopeHost Scope = "host"
)

// Valid reports whether s is one of the known scopes.
func (s Scope) Valid() bool {
	return s == ScopeDomain || s == ScopeHost
}

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "docmirror"

	// DefaultOutputDir is where Markdown files are written when --output
	// is not given.
	DefaultOutputDir = "markdown_docs"

	// DefaultMethod is the discovery method used when --method is not given.
	DefaultMethod = MethodAuto

	// DefaultDelay is the minimum spacing between two outbound requests.
	DefaultDelay = 1 * time.Second

	// DefaultMaxPages of zero means no page limit.
	DefaultMaxPages = 0

	// DefaultMaxDepth of zero means links are followed at any distance
	// from the seed in recursive mode.
	DefaultMaxDepth = 0

	// DefaultTimeout bounds a single HTTP request, including body read.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies docmirror in HTTP requests.
	DefaultUserAgent = "docmirror/1.0 (+https://github.com/nao1215/docmirror)"

	// DefaultRobotsAgent is the product token matched against robots.txt groups.
	DefaultRobotsAgent = "docmirror"

	// DefaultMaxBodySize limits the number of body bytes read per response.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultMaxSitemapDepth bounds sitemap index recursion.
	// The root sitemap is depth 0; sitemaps nested deeper than this are
	// not fetched.
	DefaultMaxSitemapDepth = 3

	// DefaultWriteBuffer is the number of converted pages that may wait
	// for the file writer while the next page is fetched.
	DefaultWriteBuffer = 16

	// DefaultScope keeps the crawl on the base URL's registrable domain.
	DefaultScope = ScopeDomain

	// LogFileName is the name of the default log file in the state directory.
	LogFileName = "docmirror.log"
)

// Config holds all options for a single crawl run.
// It is populated from CLI flags and the optional config file, validated
// once, and then passed by pointer to every component. Components must
// treat it as read-only.
type Config struct {
	// BaseURL is the documentation root. It must be an absolute http or
	// https URL after NormalizeBaseURL has been applied.
	BaseURL string

	// OutputDir is the root of the mirrored Markdown tree.
	OutputDir string

	// Method selects the discovery strategy.
	Method Method

	// SitemapURL is the explicit sitemap location. Required when Method is
	// MethodSitemap and ignored otherwise.
	SitemapURL string

	// Delay is the minimum time between consecutive requests.
	// Zero disables the delay; negative values are rejected.
	Delay time.Duration

	// MaxPages caps the number of URLs taken from the frontier.
	// Zero means unlimited.
	MaxPages int

	// MaxDepth caps the link distance from the seed in recursive mode.
	// Zero means unlimited.
	MaxDepth int

	// FollowLinks also follows in-scope links from sitemap pages.
	// Recursive discovery always follows links.
	FollowLinks bool

	// RespectRobots enables robots.txt checks. When false every URL is allowed.
	RespectRobots bool

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// RobotsAgent is the token used to select a robots.txt group.
	RobotsAgent string

	// Headers are extra HTTP headers added to every request.
	Headers map[string]string

	// MaxBodySize limits the bytes read from a response body.
	MaxBodySize int64

	// MaxSitemapDepth bounds sitemap index recursion.
	MaxSitemapDepth int

	// Scope restricts discovered URLs to the base domain or host.
	Scope Scope

	// KeepQuery keeps the query string as part of a URL's identity.
	// When false, /page?a=1 and /page?a=2 are the same page.
	KeepQuery bool

	// IgnorePatterns are glob patterns on the URL path that are never crawled.
	IgnorePatterns []string

	// FollowPatterns, when non-empty, restrict the crawl to matching paths.
	FollowPatterns []string

	// WriteBuffer is the capacity of the queue between the crawl loop and
	// the file writer.
	WriteBuffer int

	// Verbose enables debug logging on the console.
	Verbose bool

	// LogFile, when set, receives a copy of all info-level log output.
	LogFile string

	// LogJSON switches log output to JSON.
	LogJSON bool

	// ReportFormat is one of "text", "markdown" or "json".
	ReportFormat string

	// ReportFile, when set, receives the final report instead of stdout.
	ReportFile string

	// ConfigFilePath is the explicit config file location, if any.
	ConfigFilePath string

	// SaveHistory records the run in the history database.
	SaveHistory bool

	// DBDir is the directory of the history database.
	DBDir string
}

// NewConfig creates a Config populated with default values.
func NewConfig() *Config {
	return &Config{
		OutputDir:       DefaultOutputDir,
		Method:          DefaultMethod,
		Delay:           DefaultDelay,
		MaxPages:        DefaultMaxPages,
		MaxDepth:        DefaultMaxDepth,
		RespectRobots:   true,
		Timeout:         DefaultTimeout,
		UserAgent:       DefaultUserAgent,
		RobotsAgent:     DefaultRobotsAgent,
		Headers:         make(map[string]string),
		MaxBodySize:     DefaultMaxBodySize,
		MaxSitemapDepth: DefaultMaxSitemapDepth,
		Scope:           DefaultScope,
		KeepQuery:       true,
		WriteBuffer:     DefaultWriteBuffer,
		ReportFormat:    "text",
		SaveHistory:     true,
		DBDir:           XDGDataDir(),
	}
}

// NormalizeBaseURL prepends https:// to a base URL given without a scheme,
// so "docs.example.com" becomes "https://docs.example.com".
func NormalizeBaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		return "https://" + raw
	}
	return raw
}

// Host returns the lowercase host of BaseURL, or "" if it does not parse.
func (c *Config) Host() string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// XDGDataDir returns the XDG data directory for docmirror.
// On Linux: ~/.local/share/docmirror
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for docmirror.
// On Linux: ~/.config/docmirror
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGStateDir returns the XDG state directory for docmirror, used for
// log files. On Linux: ~/.local/state/docmirror
func XDGStateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// DefaultLogFile returns the log file used when --log-file is not given.
func DefaultLogFile() string {
	return filepath.Join(XDGStateDir(), LogFileName)
}

// Validate checks the configuration and returns the first problem found.
// It runs once after flags and the config file are merged and before any
// network activity.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrNoBaseURL
	}
	if !isHTTPURL(c.BaseURL) {
		return ErrInvalidBaseURL
	}

	if !c.Method.Valid() {
		return ErrInvalidMethod
	}
	if c.Method == MethodSitemap {
		if strings.TrimSpace(c.SitemapURL) == "" {
			return ErrMissingSitemapURL
		}
		if !isHTTPURL(c.SitemapURL) {
			return ErrInvalidSitemapURL
		}
	}

	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if !c.Scope.Valid() {
		return ErrInvalidScope
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return ErrNoOutputDir
	}

	switch c.ReportFormat {
	case "text", "markdown", "json":
	default:
		return ErrInvalidReportFormat
	}

	return nil
}

// isHTTPURL reports whether raw is an absolute http(s) URL with a host.
func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
