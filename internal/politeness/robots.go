package politeness

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/temoto/robotstxt"
)

// maxRobotsSize bounds how much of a robots.txt body is read.
const maxRobotsSize = 512 * 1024

// RobotsCache maps a host to its parsed robots.txt rules.
// A nil entry means "allow everything" and is stored when robots.txt is
// missing, unreachable, or unparsable.
type RobotsCache struct {
	mu      sync.Mutex
	entries map[string]*robotstxt.RobotsData
}

// NewRobotsCache returns an empty cache.
func NewRobotsCache() *RobotsCache {
	return &RobotsCache{entries: make(map[string]*robotstxt.RobotsData)}
}

// Get returns the cached rules for host. ok is false on a miss.
func (c *RobotsCache) Get(host string) (data *robotstxt.RobotsData, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok = c.entries[strings.ToLower(host)]
	return data, ok
}

// Set stores rules for host. A nil data is the allow-all sentinel.
func (c *RobotsCache) Set(host string, data *robotstxt.RobotsData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[strings.ToLower(host)] = data
}

// Len returns the number of cached hosts.
func (c *RobotsCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Allowed reports whether the robots.txt rules permit fetching rawURL.
// With robots checks disabled it returns true without touching the cache.
// Unparsable URLs are denied.
func (g *Guard) Allowed(ctx context.Context, rawURL string) bool {
	if !g.respectRobots {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return false
	}

	data, err := g.rules(ctx, u)
	if err != nil {
		// The run is ending; the caller's gate wait reports the interruption.
		return true
	}
	if data == nil {
		return true
	}
	return data.TestAgent(robotsPath(u), g.robotsAgent)
}

// Sitemaps returns the Sitemap: URLs declared in the robots.txt of
// rawURL's host, loading it if needed. It returns nil when robots checks
// are disabled.
func (g *Guard) Sitemaps(ctx context.Context, rawURL string) []string {
	if !g.respectRobots {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil
	}
	data, err := g.rules(ctx, u)
	if err != nil || data == nil {
		return nil
	}
	return data.Sitemaps
}

// rules returns the cached rules for u's host, loading them on a miss.
// A load cut short by ctx is returned as ctx's error and not cached, so
// a later run of the same Guard fetches robots.txt again.
func (g *Guard) rules(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	if data, ok := g.robots.Get(u.Host); ok {
		return data, nil
	}
	data := g.loadRobots(ctx, u)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.robots.Set(u.Host, data)
	return data, nil
}

// loadRobots fetches and parses robots.txt for u's host through the delay
// gate. Every failure yields nil, the allow-all sentinel.
func (g *Guard) loadRobots(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"

	if err := g.Wait(ctx); err != nil {
		return nil
	}
	defer g.Done()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Debug("robots.txt unreachable, allowing all", "url", robotsURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		g.logger.Debug("robots.txt read failed, allowing all", "url", robotsURL, "error", err)
		return nil
	}

	var data *robotstxt.RobotsData
	switch code := resp.StatusCode; {
	case code >= 200 && code < 300:
		data, err = robotstxt.FromBytes(body)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		data, err = robotstxt.FromStatusAndBytes(code, body)
	default:
		g.logger.Debug("robots.txt not available, allowing all", "url", robotsURL, "status", code)
		return nil
	}
	if err != nil {
		g.logger.Debug("robots.txt parse failed, allowing all", "url", robotsURL, "error", err)
		return nil
	}

	g.logger.Debug("robots.txt loaded", "url", robotsURL, "status", resp.StatusCode)
	return data
}

// robotsPath returns the path and query matched against robots rules.
func robotsPath(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}
