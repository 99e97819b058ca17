package politeness

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Guard decides whether a URL may be fetched and spaces out requests.
// One Guard is shared by every component that talks to the network, so
// pages, sitemaps and robots.txt files all pass through the same gate.
//
// The gate enforces two floors: at least delay between the starts of two
// requests, and at least delay between the completion of one request
// and the start of the next. Callers pair each Wait with a Done.
//
// Design decision: We hold both floors because each alone has a gap:
//  1. A start-only limiter lets a slow response be followed at once by
//     the next request
//  2. A completion-only floor lets two callers that wait at the same
//     time, such as a robots.txt load and a sitemap fetch, start
//     together because neither has finished a request yet
type Guard struct {
	client        *http.Client
	logger        *slog.Logger
	userAgent     string
	robotsAgent   string
	respectRobots bool

	delay   time.Duration
	limiter *rate.Limiter

	mu       sync.Mutex
	lastDone time.Time

	robots *RobotsCache
}

// Option configures a Guard.
type Option func(*Guard)

// WithDelay sets the minimum spacing between requests. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(g *Guard) {
		g.delay = d
	}
}

// WithRespectRobots toggles robots.txt checks.
func WithRespectRobots(respect bool) Option {
	return func(g *Guard) {
		g.respectRobots = respect
	}
}

// WithUserAgent sets the User-Agent header used for robots.txt requests.
func WithUserAgent(ua string) Option {
	return func(g *Guard) {
		g.userAgent = ua
	}
}

// WithRobotsAgent sets the product token matched against robots.txt groups.
func WithRobotsAgent(agent string) Option {
	return func(g *Guard) {
		g.robotsAgent = agent
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

// NewGuard creates a Guard that fetches robots.txt with client.
// By default robots.txt is respected and there is no delay.
func NewGuard(client *http.Client, opts ...Option) *Guard {
	if client == nil {
		client = http.DefaultClient
	}
	g := &Guard{
		client:        client,
		logger:        slog.Default(),
		robotsAgent:   "*",
		respectRobots: true,
		robots:        NewRobotsCache(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.delay > 0 {
		g.limiter = rate.NewLimiter(rate.Every(g.delay), 1)
	}
	return g
}

// Wait blocks until a request may start. It returns ctx.Err() if ctx is
// cancelled or its deadline passes first, and nothing else.
//
// Design decision: the limiter token is reserved rather than awaited with
// limiter.Wait. Wait refuses up front when the deadline falls before the
// token is due and returns its own error while ctx is still live; callers
// would then mistake a politeness wait for a failed request.
func (g *Guard) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if g.limiter == nil {
		return nil
	}

	r := g.limiter.Reserve()
	if err := sleep(ctx, r.Delay()); err != nil {
		r.Cancel()
		return err
	}

	g.mu.Lock()
	var rest time.Duration
	if !g.lastDone.IsZero() {
		rest = time.Until(g.lastDone.Add(g.delay))
	}
	g.mu.Unlock()

	return sleep(ctx, rest)
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done records that a request has completed.
func (g *Guard) Done() {
	g.mu.Lock()
	g.lastDone = time.Now()
	g.mu.Unlock()
}

// Delay returns the configured minimum spacing.
func (g *Guard) Delay() time.Duration {
	return g.delay
}

// Robots returns the robots.txt cache.
func (g *Guard) Robots() *RobotsCache {
	return g.robots
}
