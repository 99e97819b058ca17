package config

import (
	"maps"
	"strings"
	"time"
)

// SiteConfig holds per-site crawl settings from the config file.
// Zero values and nil pointers mean "not set" so a site entry only
// overrides what it names.
type SiteConfig struct {
	// UserAgent replaces the default User-Agent header for this site.
	UserAgent string `yaml:"user_agent,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Delay overrides the minimum spacing between requests, e.g. "2s".
	Delay *time.Duration `yaml:"delay,omitempty"`

	// MaxPages overrides the page limit. Zero means not set.
	MaxPages int `yaml:"max_pages,omitempty"`

	// MaxDepth overrides the recursive link depth. Zero means not set.
	MaxDepth int `yaml:"max_depth,omitempty"`

	// RespectRobots toggles robots.txt checks for this site.
	RespectRobots *bool `yaml:"respect_robots,omitempty"`

	// Scope is "domain" or "host".
	Scope string `yaml:"scope,omitempty"`

	// IgnorePatterns are URL path glob patterns to skip during crawling.
	IgnorePatterns []string `yaml:"ignore_patterns,omitempty"`

	// FollowPatterns restrict crawling to URL paths matching these globs.
	FollowPatterns []string `yaml:"follow_patterns,omitempty"`

	// KeepQuery toggles whether the query string is part of URL identity.
	KeepQuery *bool `yaml:"keep_query,omitempty"`
}

// File represents the structure of the .docmirror.yaml configuration file.
type File struct {
	// Sites maps hosts (e.g. "docs.example.com") to site configuration.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every site unless the site entry overrides them.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// SiteConfigFor returns the configuration for host merged over the defaults.
// host may be given with or without scheme; lookups are case-insensitive.
func (cf *File) SiteConfigFor(host string) SiteConfig {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)

	site, ok := cf.Sites[normalizeHostKey(host)]
	if !ok {
		for k, v := range cf.Sites {
			if normalizeHostKey(k) == normalizeHostKey(host) {
				site, ok = v, true
				break
			}
		}
	}
	if !ok {
		return result
	}
	return MergeSiteConfig(result, site)
}

// MergeSiteConfig overlays the set fields of override onto base.
// Headers are merged key by key; pattern lists are replaced.
func MergeSiteConfig(base, override SiteConfig) SiteConfig {
	result := base
	if override.UserAgent != "" {
		result.UserAgent = override.UserAgent
	}
	if len(override.Headers) > 0 {
		merged := maps.Clone(base.Headers)
		if merged == nil {
			merged = make(map[string]string, len(override.Headers))
		}
		maps.Copy(merged, override.Headers)
		result.Headers = merged
	}
	if override.Delay != nil {
		result.Delay = override.Delay
	}
	if override.MaxPages != 0 {
		result.MaxPages = override.MaxPages
	}
	if override.MaxDepth != 0 {
		result.MaxDepth = override.MaxDepth
	}
	if override.RespectRobots != nil {
		result.RespectRobots = override.RespectRobots
	}
	if override.Scope != "" {
		result.Scope = override.Scope
	}
	if len(override.IgnorePatterns) > 0 {
		result.IgnorePatterns = override.IgnorePatterns
	}
	if len(override.FollowPatterns) > 0 {
		result.FollowPatterns = override.FollowPatterns
	}
	if override.KeepQuery != nil {
		result.KeepQuery = override.KeepQuery
	}
	return result
}

// Apply copies the set fields of sc into c. explicit reports whether a
// setting was given on the command line; those settings are left alone.
// The names passed to explicit are the CLI flag names.
func (sc SiteConfig) Apply(c *Config, explicit func(flag string) bool) {
	if explicit == nil {
		explicit = func(string) bool { return false }
	}

	if sc.UserAgent != "" && !explicit("user-agent") {
		c.UserAgent = sc.UserAgent
	}
	if len(sc.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(sc.Headers))
		}
		maps.Copy(c.Headers, sc.Headers)
	}
	if sc.Delay != nil && !explicit("delay") {
		c.Delay = *sc.Delay
	}
	if sc.MaxPages != 0 && !explicit("max-pages") {
		c.MaxPages = sc.MaxPages
	}
	if sc.MaxDepth != 0 && !explicit("max-depth") {
		c.MaxDepth = sc.MaxDepth
	}
	if sc.RespectRobots != nil && !explicit("no-robots") {
		c.RespectRobots = *sc.RespectRobots
	}
	if sc.Scope != "" && !explicit("scope") {
		c.Scope = Scope(sc.Scope)
	}
	if len(sc.IgnorePatterns) > 0 {
		c.IgnorePatterns = sc.IgnorePatterns
	}
	if len(sc.FollowPatterns) > 0 {
		c.FollowPatterns = sc.FollowPatterns
	}
	if sc.KeepQuery != nil {
		c.KeepQuery = *sc.KeepQuery
	}
}

// normalizeHostKey strips the scheme, any path and the port, and lowercases
// the result so "https://Docs.Example.com/" matches "docs.example.com".
func normalizeHostKey(host string) string {
	host = strings.TrimSpace(strings.ToLower(host))
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}
