package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/docmirror/internal/model"
)

var (
	// ErrNoPlan is returned by CrawlStep when no plan was discovered.
	ErrNoPlan = errors.New("no crawl plan")

	// ErrNoConfig is returned by steps that need the run configuration.
	ErrNoConfig = errors.New("run has no configuration")
)

// Discoverer builds the initial crawl plan.
type Discoverer interface {
	Discover(ctx context.Context) (*model.Plan, error)
}

// Crawler crawls a plan.
type Crawler interface {
	Run(ctx context.Context, plan *model.Plan) (*model.Summary, error)
}

// Preparer creates the output location before any page is written.
type Preparer interface {
	Prepare() error
}

// RunStore persists finished runs.
type RunStore interface {
	SaveRun(ctx context.Context, summary *model.Summary) (int64, error)
}

// DiscoverStep resolves the discovery method into a plan.
type DiscoverStep struct {
	discoverer Discoverer
	logger     *slog.Logger
}

// NewDiscoverStep creates a DiscoverStep.
func NewDiscoverStep(d Discoverer, logger *slog.Logger) *DiscoverStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiscoverStep{discoverer: d, logger: logger}
}

// Name returns the step name.
func (s *DiscoverStep) Name() string {
	return "discover"
}

// Do stores the discovered plan in run.Plan.
func (s *DiscoverStep) Do(ctx context.Context, run *model.Run) error {
	plan, err := s.discoverer.Discover(ctx)
	if err != nil {
		return err
	}
	run.Plan = plan
	s.logger.Info("discovery finished",
		"method", plan.Method.String(),
		"targets", len(plan.Targets),
		"sitemap_errors", len(plan.Errors),
		"follow_links", plan.FollowLinks,
	)
	return nil
}

// CrawlStep prepares the output directory and runs the crawl.
type CrawlStep struct {
	crawler Crawler
	out     Preparer
}

// NewCrawlStep creates a CrawlStep. out may be nil when the output
// location needs no preparation.
func NewCrawlStep(c Crawler, out Preparer) *CrawlStep {
	return &CrawlStep{crawler: c, out: out}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do runs the crawl and stores the summary in run.Summary. On cancellation
// the partial summary is stored and the context error returned.
func (s *CrawlStep) Do(ctx context.Context, run *model.Run) error {
	if run.Plan == nil {
		return ErrNoPlan
	}
	if run.Config == nil {
		return ErrNoConfig
	}
	if s.out != nil {
		if err := s.out.Prepare(); err != nil {
			return err
		}
	}

	summary, err := s.crawler.Run(ctx, run.Plan)
	if summary != nil {
		summary.BaseURL = run.Config.BaseURL
		summary.OutputDir = run.Config.OutputDir
		run.Summary = summary
	}
	return err
}

// RecordStep saves the run summary to the history database.
// A failure to save is logged and otherwise ignored.
type RecordStep struct {
	store  RunStore
	logger *slog.Logger
}

// NewRecordStep creates a RecordStep.
func NewRecordStep(store RunStore, logger *slog.Logger) *RecordStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordStep{store: store, logger: logger}
}

// Name returns the step name.
func (s *RecordStep) Name() string {
	return "record"
}

// Do saves run.Summary and sets run.ID. Runs without a summary are skipped.
func (s *RecordStep) Do(ctx context.Context, run *model.Run) error {
	if run.Summary == nil {
		s.logger.Debug("no summary to record")
		return nil
	}
	id, err := s.store.SaveRun(ctx, run.Summary)
	if err != nil {
		s.logger.Warn("failed to record run history", "error", err)
		return nil
	}
	run.ID = id
	s.logger.Debug("run recorded", "run_id", id)
	return nil
}
