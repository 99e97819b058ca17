package crawler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/docmirror/internal/config"
	"github.com/nao1215/docmirror/internal/frontier"
	"github.com/nao1215/docmirror/internal/model"
)

// PageFetcher fetches one target through the politeness gate.
type PageFetcher interface {
	Fetch(ctx context.Context, target model.CrawlTarget) model.CrawlResult
}

// PageConverter converts fetched HTML to Markdown.
type PageConverter interface {
	Convert(html []byte, pageURL string) (model.ConvertedPage, error)
}

// PathMapper assigns output paths to URLs.
type PathMapper interface {
	Map(rawURL string) string
}

// FileWriter stores a document at a path relative to the output root.
type FileWriter interface {
	Write(relPath, content string) error
}

// Scope decides whether a discovered link belongs to the crawl.
type Scope interface {
	Allows(rawURL string) bool
}

// Orchestrator runs the crawl loop: take a target from the frontier,
// fetch it, convert it, hand it to the writer stage, and in recursive mode
// feed its links back into the frontier.
type Orchestrator struct {
	fetcher   PageFetcher
	converter PageConverter
	mapper    PathMapper
	writer    FileWriter

	// maxPages caps targets taken from the frontier. 0 means unlimited.
	maxPages int

	// maxDepth caps the link distance from the seed. 0 means unlimited.
	maxDepth int

	// followLinks forces link following even when the plan does not ask for it.
	followLinks bool

	keepQuery   bool
	writeBuffer int
	scope       Scope
	progress    Progress
	logger      *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxPages sets the page limit. 0 means unlimited.
func WithMaxPages(n int) Option {
	return func(o *Orchestrator) {
		o.maxPages = n
	}
}

// WithMaxDepth sets the maximum link distance from the seed.
// 0 means unlimited.
func WithMaxDepth(depth int) Option {
	return func(o *Orchestrator) {
		o.maxDepth = depth
	}
}

// WithFollowLinks makes the crawl follow links even for sitemap plans.
func WithFollowLinks(follow bool) Option {
	return func(o *Orchestrator) {
		o.followLinks = follow
	}
}

// WithKeepQuery sets whether the query string is part of a URL's identity.
func WithKeepQuery(keep bool) Option {
	return func(o *Orchestrator) {
		o.keepQuery = keep
	}
}

// WithScope sets the filter applied to links before they are enqueued.
func WithScope(scope Scope) Option {
	return func(o *Orchestrator) {
		o.scope = scope
	}
}

// WithWriteBuffer sets how many converted pages may wait for the writer.
func WithWriteBuffer(n int) Option {
	return func(o *Orchestrator) {
		o.writeBuffer = n
	}
}

// WithProgress sets the progress sink.
func WithProgress(p Progress) Option {
	return func(o *Orchestrator) {
		o.progress = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator creates an Orchestrator from its four collaborators.
func NewOrchestrator(fetcher PageFetcher, conv PageConverter, mapper PathMapper, writer FileWriter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher:     fetcher,
		converter:   conv,
		mapper:      mapper,
		writer:      writer,
		keepQuery:   true,
		writeBuffer: config.DefaultWriteBuffer,
		progress:    NopProgress{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.writeBuffer < 0 {
		o.writeBuffer = 0
	}
	return o
}

// Run crawls the plan and returns the summary.
//
// Per-page failures are recorded in the summary and never stop the run.
// When ctx is cancelled the loop stops before the next target, pages
// already handed to the writer are still written, and Run returns the
// summary together with ctx.Err(). A target whose fetch was cut short by
// the cancellation is reported as pending, not as failed.
//
// The one failure that does stop the run is losing the output root
// (output.ErrOutputRoot). The writer stage then halts the fetch loop the
// same way a cancellation does, and Run returns the summary together
// with the stage's error.
//
// Design decision: fetching and writing run as two stages joined by a
// buffered channel, with a single writer goroutine. Output paths are
// assigned in dequeue order by that one goroutine, so collision suffixes
// are reproducible, and the summary needs no lock.
func (o *Orchestrator) Run(ctx context.Context, plan *model.Plan) (*model.Summary, error) {
	summary := model.NewSummary(plan.Method.String(), "", "")
	summary.SitemapErrors = len(plan.Errors)

	fr := frontier.New(frontier.WithMaxPages(o.maxPages), frontier.WithKeepQuery(o.keepQuery))
	for _, target := range plan.Targets {
		if fr.Enqueue(target) {
			summary.Discovered++
		}
	}

	follow := plan.FollowLinks || o.followLinks
	total := -1
	if !follow {
		total = summary.Discovered
		if o.maxPages > 0 {
			total = min(total, o.maxPages)
		}
	}

	crawlCtx, halt := context.WithCancelCause(ctx)
	defer halt(nil)

	outcomes := make(chan outcome, o.writeBuffer)
	var g errgroup.Group
	g.Go(func() error {
		return o.writeStage(outcomes, summary, halt)
	})

	var (
		attempted   int
		interrupted []string
		rejected    = frontier.NewRejects(o.keepQuery)
	)

	for fr.HasCapacity() {
		if crawlCtx.Err() != nil {
			break
		}
		target, ok := fr.Next()
		if !ok {
			break
		}

		result := o.fetcher.Fetch(crawlCtx, target)
		if result.Status == model.StatusInterrupted || (crawlCtx.Err() != nil && !result.OK()) {
			interrupted = append(interrupted, target.URL)
			break
		}

		attempted++
		out := o.process(result)
		if follow && out.page != nil && !out.page.Fallback {
			o.enqueueLinks(fr, target, out.page.Links, rejected)
		}
		outcomes <- out
		o.progress.Update(attempted, total, target.URL)
	}

	close(outcomes)
	stageErr := g.Wait()

	summary.Attempted = attempted
	if n := rejected.Count(); n > 0 {
		summary.Skipped[model.SkipOutOfScope] += n
	}
	summary.Pending = append(interrupted, fr.Pending()...)
	summary.FinishedAt = time.Now()

	if err := ctx.Err(); err != nil {
		summary.Cancelled = true
		o.logSummary(summary)
		return summary, err
	}
	o.logSummary(summary)
	if stageErr != nil {
		o.logger.Error("crawl stopped", "error", stageErr)
		return summary, stageErr
	}
	return summary, nil
}

// process turns a fetch result into an outcome, converting HTML pages.
// Fetch events are logged by the fetcher itself.
func (o *Orchestrator) process(result model.CrawlResult) outcome {
	rec := model.PageRecord{
		URL:        result.Target.URL,
		Status:     result.Status.String(),
		StatusCode: result.StatusCode,
		FetchedAt:  result.FetchedAt,
	}

	if !result.OK() {
		if result.Err != nil {
			rec.Error = result.Err.Error()
		}
		return outcome{status: result.Status, record: rec}
	}

	page, err := o.converter.Convert(result.HTML, result.Target.URL)
	if err != nil {
		rec.Error = err.Error()
		o.logger.Warn("conversion failed, writing raw HTML", "url", rec.URL, "error", err)
	} else {
		o.logger.Debug("page converted", "url", rec.URL, "title", page.Title, "links", len(page.Links))
	}
	if !result.FetchedAt.IsZero() {
		page.DownloadedAt = result.FetchedAt
	}
	rec.Title = page.Title
	return outcome{status: result.Status, record: rec, page: &page}
}

// enqueueLinks adds in-scope links below the depth limit to the frontier.
// Out-of-scope links go to rejected so each is counted once.
func (o *Orchestrator) enqueueLinks(fr *frontier.Frontier, parent model.CrawlTarget, links []string, rejected *frontier.Rejects) {
	if o.maxDepth > 0 && parent.Depth >= o.maxDepth {
		return
	}
	for _, link := range links {
		if o.scope != nil && !o.scope.Allows(link) {
			rejected.Add(link)
			continue
		}
		fr.Enqueue(parent.Child(link))
	}
}

func (o *Orchestrator) logSummary(s *model.Summary) {
	o.logger.Info("run summary",
		"method", s.Method,
		"discovered", s.Discovered,
		"attempted", s.Attempted,
		"converted", s.Converted,
		"failed", s.FailedTotal(),
		"skipped", s.SkippedTotal(),
		"fallbacks", s.ConversionFallbacks,
		"pending", len(s.Pending),
		"cancelled", s.Cancelled,
		"duration", s.Duration(),
	)
}
