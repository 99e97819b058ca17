package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/docmirror/internal/config"
	"github.com/nao1215/docmirror/internal/converter"
	"github.com/nao1215/docmirror/internal/crawler"
	"github.com/nao1215/docmirror/internal/database"
	"github.com/nao1215/docmirror/internal/discovery"
	"github.com/nao1215/docmirror/internal/fetcher"
	dmlog "github.com/nao1215/docmirror/internal/log"
	"github.com/nao1215/docmirror/internal/model"
	"github.com/nao1215/docmirror/internal/output"
	"github.com/nao1215/docmirror/internal/pipeline"
	"github.com/nao1215/docmirror/internal/politeness"
	"github.com/nao1215/docmirror/internal/report"
)

// errInterrupted is returned when the crawl was cancelled by a signal.
var errInterrupted = errors.New("crawl interrupted")

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url]",
		Short: "Download a documentation site as Markdown",
		Long: `Crawl downloads every page of a documentation site and writes it as a
Markdown file with YAML frontmatter under the output directory.

Discovery methods:
  auto       try robots.txt sitemaps and common sitemap locations,
             then fall back to following links (default)
  sitemap    read page URLs from the sitemap given with --sitemap
  recursive  follow same-site links starting from the URL

The URL path decides the file path: /guide/install becomes guide/install.md
and the site root becomes index.md.

Examples:
  # Mirror a site into ./markdown_docs
  docmirror crawl https://docs.example.com

  # Use an explicit sitemap and a slower request rate
  docmirror crawl -m sitemap -s https://docs.example.com/sitemap.xml -d 2s docs.example.com

  # Follow links at most two levels deep, stop after 100 pages
  docmirror crawl -m recursive --max-depth 2 -p 100 https://docs.example.com/guide/

  # Write a Markdown report of the run
  docmirror crawl --report markdown --report-file report.md https://docs.example.com

Configuration file (.docmirror.yaml) example:
  sites:
    docs.example.com:
      delay: 2s
      headers:
        Authorization: "Bearer token"
      ignore_patterns:
        - "/blog/*"`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCrawlCmd,
	}

	f := cmd.Flags()
	f.StringP("url", "u", "", "Documentation root URL (alternative to the positional argument)")
	f.StringP("output", "o", config.DefaultOutputDir, "Output directory for Markdown files")
	f.StringP("method", "m", string(config.DefaultMethod), "Discovery method: auto, recursive or sitemap")
	f.StringP("sitemap", "s", "", "Sitemap URL (required with --method sitemap)")

	f.DurationP("delay", "d", config.DefaultDelay, "Minimum time between requests")
	f.IntP("max-pages", "p", config.DefaultMaxPages, "Maximum number of pages to fetch (0 = no limit)")
	f.Int("max-depth", config.DefaultMaxDepth, "Maximum link depth in recursive mode (0 = no limit)")
	f.Bool("no-robots", false, "Ignore robots.txt")
	f.Bool("follow-links", false, "Also follow links from pages found in a sitemap")
	f.DurationP("timeout", "t", config.DefaultTimeout, "Timeout for each request")
	f.String("user-agent", config.DefaultUserAgent, "User-Agent header")
	f.StringArrayP("header", "H", nil, `Extra request header "Name: value" (repeatable)`)
	f.String("scope", string(config.DefaultScope), "Link scope: domain or host")
	f.Bool("ignore-query", false, "Treat URLs that differ only in the query string as the same page")
	f.StringP("config", "c", "", "Configuration file path (default: .docmirror.yaml in current or home directory)")

	f.String("report", "text", "Report format: text, markdown or json")
	f.String("report-file", "", "Write the report to a file instead of stdout")
	f.String("log-file", config.DefaultLogFile(), `Log file path ("" disables the log file)`)
	f.Bool("log-json", false, "Write logs as JSON")
	f.Bool("no-history", false, "Do not record the run in the history database")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closeLog := setupLogger(cmd, cfg)
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout())
}

// buildConfig creates a Config from flags and the configuration file.
// Values from the file apply only to settings whose flags were not given.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	rawURL, err := flags.GetString("url")
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		if rawURL != "" && rawURL != args[0] {
			return nil, fmt.Errorf("conflicting URLs: %q and --url %q", args[0], rawURL)
		}
		rawURL = args[0]
	}
	cfg.BaseURL = config.NormalizeBaseURL(rawURL)

	if cfg.OutputDir, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	method, err := flags.GetString("method")
	if err != nil {
		return nil, err
	}
	cfg.Method = config.Method(strings.ToLower(method))
	if cfg.SitemapURL, err = flags.GetString("sitemap"); err != nil {
		return nil, err
	}
	if cfg.Delay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.MaxDepth, err = flags.GetInt("max-depth"); err != nil {
		return nil, err
	}
	noRobots, err := flags.GetBool("no-robots")
	if err != nil {
		return nil, err
	}
	cfg.RespectRobots = !noRobots
	if cfg.FollowLinks, err = flags.GetBool("follow-links"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	scope, err := flags.GetString("scope")
	if err != nil {
		return nil, err
	}
	cfg.Scope = config.Scope(strings.ToLower(scope))
	ignoreQuery, err := flags.GetBool("ignore-query")
	if err != nil {
		return nil, err
	}
	cfg.KeepQuery = !ignoreQuery

	if cfg.ReportFormat, err = flags.GetString("report"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("report-file"); err != nil {
		return nil, err
	}
	if cfg.LogFile, err = flags.GetString("log-file"); err != nil {
		return nil, err
	}
	if cfg.LogJSON, err = flags.GetBool("log-json"); err != nil {
		return nil, err
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory
	cfg.Verbose = getVerboseFlag(cmd)

	// If the user explicitly specified a config file path, error if not found.
	// Otherwise a missing file just means no site settings.
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.SiteConfigFor(cfg.Host()).Apply(cfg, flags.Changed)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	// Headers given on the command line win over the file.
	headers, err := flags.GetStringArray("header")
	if err != nil {
		return nil, err
	}
	for _, h := range headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q: expected \"Name: value\"", h)
		}
		cfg.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}

	return cfg, nil
}

// setupLogger creates the run logger. The returned func closes the log file.
// A log file that cannot be opened is reported on stderr and skipped.
func setupLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, func()) {
	opts := dmlog.Options{
		Console: cmd.ErrOrStderr(),
		Verbose: cfg.Verbose,
		JSON:    cfg.LogJSON,
		Secrets: slices.Collect(maps.Values(cfg.Headers)),
	}
	closeFn := func() {}

	if cfg.LogFile != "" {
		f, err := openLogFile(cfg.LogFile)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: log file disabled: %v\n", err)
		} else {
			opts.File = f
			closeFn = func() { _ = f.Close() }
		}
	}

	return dmlog.NewLogger(opts), closeFn
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // User-provided log path is intentional
}

// runCrawl wires the components and executes the crawl pipeline.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	logger.Info("starting crawl",
		"base_url", cfg.BaseURL,
		"method", cfg.Method.String(),
		"output", cfg.OutputDir,
		"delay", cfg.Delay,
		"max_pages", cfg.MaxPages,
		"respect_robots", cfg.RespectRobots,
	)

	scope, err := discovery.NewScope(cfg.BaseURL, cfg.Scope, cfg.IgnorePatterns, cfg.FollowPatterns)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	client := fetcher.NewClient(cfg.Timeout)
	guard := politeness.NewGuard(client,
		politeness.WithDelay(cfg.Delay),
		politeness.WithRespectRobots(cfg.RespectRobots),
		politeness.WithUserAgent(cfg.UserAgent),
		politeness.WithRobotsAgent(cfg.RobotsAgent),
		politeness.WithLogger(logger),
	)
	f := fetcher.New(client, guard,
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithHeaders(cfg.Headers),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
		fetcher.WithLogger(logger),
	)
	disc := discovery.NewDiscoverer(f, scope, cfg,
		discovery.WithSitemapHinter(guard),
		discovery.WithLogger(logger),
	)
	conv := converter.New(converter.WithLinkFilter(scope.Allows))
	writer := output.NewWriter(cfg.OutputDir, output.WithLogger(logger))
	orch := crawler.NewOrchestrator(f, conv, output.NewMapper(), writer,
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithFollowLinks(cfg.FollowLinks),
		crawler.WithKeepQuery(cfg.KeepQuery),
		crawler.WithScope(scope),
		crawler.WithWriteBuffer(cfg.WriteBuffer),
		crawler.WithProgress(crawler.NewLineProgress(stdout)),
		crawler.WithLogger(logger),
	)

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(
		pipeline.NewDiscoverStep(disc, logger),
		pipeline.NewCrawlStep(orch, writer),
	)

	if cfg.SaveHistory {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			logger.Warn("run history disabled", "dir", cfg.DBDir, "error", err)
		} else {
			defer db.Close()
			p.AddFinalStep(pipeline.NewRecordStep(db, logger))
		}
	}

	run := model.NewRun(cfg)
	runErr := p.Execute(ctx, run)

	if run.Summary != nil {
		if err := outputReport(cfg, run.Summary, stdout); err != nil {
			logger.Error("failed to write report", "error", err)
			if runErr == nil {
				runErr = err
			}
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return errInterrupted
		}
		return runErr
	}
	return nil
}

// outputReport writes the summary report to cfg.ReportFile or stdout.
func outputReport(cfg *config.Config, summary *model.Summary, stdout io.Writer) error {
	out := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // User-provided report path is intentional
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		out = f
	}

	w, err := report.NewWriter(cfg.ReportFormat, out)
	if err != nil {
		return err
	}
	_, err = w.Write(summary)
	return err
}
