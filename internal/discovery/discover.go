package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/nao1215/docmirror/internal/config"
	"github.com/nao1215/docmirror/internal/frontier"
	"github.com/nao1215/docmirror/internal/model"
)

// ProbePaths are the conventional sitemap locations tried by auto
// discovery, in order, relative to the base URL's host.
var ProbePaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/wp-sitemap.xml",
	"/sitemap/sitemap.xml",
	"/sitemaps/sitemap.xml",
}

// RawFetcher retrieves sitemap bytes through the politeness gate.
type RawFetcher interface {
	FetchRaw(ctx context.Context, rawURL string) ([]byte, int, error)
}

// SitemapHinter reports sitemap URLs declared elsewhere, e.g. in robots.txt.
type SitemapHinter interface {
	Sitemaps(ctx context.Context, rawURL string) []string
}

// Discoverer builds the initial crawl plan.
type Discoverer struct {
	fetcher    RawFetcher
	scope      *Scope
	hinter     SitemapHinter
	method     config.Method
	baseURL    string
	sitemapURL string
	maxDepth   int
	keepQuery  bool
	logger     *slog.Logger
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Discoverer) {
		d.logger = logger
	}
}

// WithSitemapHinter makes auto discovery try hinted sitemaps before the
// conventional locations.
func WithSitemapHinter(h SitemapHinter) Option {
	return func(d *Discoverer) {
		d.hinter = h
	}
}

// NewDiscoverer creates a Discoverer for the method, base URL and sitemap
// settings in cfg.
func NewDiscoverer(fetcher RawFetcher, scope *Scope, cfg *config.Config, opts ...Option) *Discoverer {
	d := &Discoverer{
		fetcher:    fetcher,
		scope:      scope,
		method:     cfg.Method,
		baseURL:    cfg.BaseURL,
		sitemapURL: cfg.SitemapURL,
		maxDepth:   cfg.MaxSitemapDepth,
		keepQuery:  cfg.KeepQuery,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover returns the initial plan for the configured method.
// Only a failing explicit sitemap is an error; every other sitemap
// failure is recorded in Plan.Errors.
func (d *Discoverer) Discover(ctx context.Context) (*model.Plan, error) {
	switch d.method {
	case config.MethodSitemap:
		return d.discoverSitemap(ctx)
	case config.MethodRecursive:
		return d.discoverRecursive(), nil
	case config.MethodAuto:
		return d.discoverAuto(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidMethod, d.method)
	}
}

func (d *Discoverer) discoverSitemap(ctx context.Context) (*model.Plan, error) {
	locs, errs, err := d.Flatten(ctx, d.sitemapURL)
	if err != nil {
		return nil, err
	}
	plan := &model.Plan{
		Method:  config.MethodSitemap,
		Targets: d.inScope(locs),
		Errors:  errs,
	}
	if len(plan.Targets) == 0 {
		d.logger.Warn("sitemap contains no in-scope URLs", "url", d.sitemapURL, "entries", len(locs))
	}
	return plan, nil
}

func (d *Discoverer) discoverRecursive() *model.Plan {
	return &model.Plan{
		Method:      config.MethodRecursive,
		Targets:     []model.CrawlTarget{model.NewSeedTarget(d.baseURL)},
		FollowLinks: true,
	}
}

// discoverAuto tries robots.txt sitemap hints, then ProbePaths. The first
// candidate that parses and yields at least one in-scope URL wins.
func (d *Discoverer) discoverAuto(ctx context.Context) (*model.Plan, error) {
	for _, candidate := range d.candidates(ctx) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		locs, errs, err := d.Flatten(ctx, candidate)
		if err != nil {
			d.logger.Debug("sitemap probe failed", "url", candidate, "error", err)
			continue
		}
		targets := d.inScope(locs)
		if len(targets) == 0 {
			d.logger.Debug("sitemap probe has no in-scope URLs", "url", candidate)
			continue
		}

		d.logger.Info("sitemap found", "url", candidate, "pages", len(targets))
		return &model.Plan{
			Method:  config.MethodSitemap,
			Targets: targets,
			Errors:  errs,
		}, nil
	}

	d.logger.Info("falling back to recursive discovery", "base_url", d.baseURL, "reason", ErrNoSitemapFound)
	return d.discoverRecursive(), nil
}

// candidates returns hinted sitemaps followed by the probe locations,
// without duplicates.
func (d *Discoverer) candidates(ctx context.Context) []string {
	base, err := url.Parse(d.baseURL)
	if err != nil {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})
	add := func(raw string) {
		key := frontier.Normalize(raw, true)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, raw)
	}

	if d.hinter != nil {
		for _, hint := range d.hinter.Sitemaps(ctx, d.baseURL) {
			add(hint)
		}
	}
	for _, p := range ProbePaths {
		add(base.ResolveReference(&url.URL{Path: p}).String())
	}
	return out
}

// inScope converts locs into sitemap targets, dropping out-of-scope URLs.
func (d *Discoverer) inScope(locs []string) []model.CrawlTarget {
	targets := make([]model.CrawlTarget, 0, len(locs))
	for _, loc := range locs {
		if d.scope != nil && !d.scope.Allows(loc) {
			continue
		}
		targets = append(targets, model.NewSitemapTarget(loc))
	}
	return targets
}

// Flatten fetches sitemapURL and, for sitemap indexes, every referenced
// sitemap depth-first. It returns the page URLs in first-seen order with
// duplicates removed by normalized URL.
//
// A failure of the root sitemap is returned as err. Failures of nested
// sitemaps are collected in errs while their siblings are still processed.
// A sitemap already visited during this call is skipped, and nesting
// deeper than the configured maximum fails that branch with ErrSitemapDepth.
func (d *Discoverer) Flatten(ctx context.Context, sitemapURL string) (locs []string, errs []error, err error) {
	fl := &flattener{
		d:       d,
		visited: make(map[string]struct{}),
		seen:    make(map[string]struct{}),
	}
	if err := fl.walk(ctx, sitemapURL, 0); err != nil {
		return nil, nil, err
	}
	return fl.locs, fl.errs, nil
}

type flattener struct {
	d       *Discoverer
	visited map[string]struct{}
	seen    map[string]struct{}
	locs    []string
	errs    []error
}

func (fl *flattener) walk(ctx context.Context, sitemapURL string, depth int) error {
	key := frontier.Normalize(sitemapURL, true)
	if _, ok := fl.visited[key]; ok {
		return nil
	}
	fl.visited[key] = struct{}{}

	if depth > fl.d.maxDepth {
		return &SitemapError{URL: sitemapURL, Err: ErrSitemapDepth}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, _, err := fl.d.fetcher.FetchRaw(ctx, sitemapURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &SitemapError{URL: sitemapURL, Err: err}
	}

	doc, err := ParseSitemap(data)
	if err != nil {
		return &SitemapError{URL: sitemapURL, Err: err}
	}
	fl.d.logger.Info("sitemap parsed", "url", sitemapURL, "kind", doc.Kind.String(), "entries", len(doc.Locs), "depth", depth)

	if doc.Kind == KindURLSet {
		for _, loc := range doc.Locs {
			loc = resolve(sitemapURL, loc)
			k := frontier.Normalize(loc, fl.d.keepQuery)
			if _, dup := fl.seen[k]; dup {
				continue
			}
			fl.seen[k] = struct{}{}
			fl.locs = append(fl.locs, loc)
		}
		return nil
	}

	for _, child := range doc.Locs {
		childURL := resolve(sitemapURL, child)
		if err := fl.walk(ctx, childURL, depth+1); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			fl.errs = append(fl.errs, err)
			fl.d.logger.Warn("sitemap failed", "url", childURL, "error", err)
		}
	}
	return nil
}

// resolve makes ref absolute against base. Unparsable input is returned unchanged.
func resolve(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
