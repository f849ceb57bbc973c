package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/danielmulder/webpiper/internal/config"
	"github.com/danielmulder/webpiper/internal/crawler"
	"github.com/danielmulder/webpiper/internal/fetch"
	"github.com/danielmulder/webpiper/internal/graph"
	"github.com/danielmulder/webpiper/internal/model"
	"github.com/danielmulder/webpiper/internal/report"
	"github.com/danielmulder/webpiper/internal/robots"
)

// CrawlStep runs the crawl engine against the result's target.
// It assembles the fetch service, robots cache, buffer manager and
// controller per run, so no crawl state leaks between targets.
type CrawlStep struct {
	cfg    *config.Config
	store  crawler.Store
	seeds  []string
	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlSeeds supplies explicit seed URLs (sitemap mode).
func WithCrawlSeeds(seeds []string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.seeds = seeds
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates the crawl step. store may be nil for dry runs.
func NewCrawlStep(cfg *config.Config, store crawler.Store, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		cfg:    cfg,
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl and copies its counters into the result.
func (s *CrawlStep) Do(ctx context.Context, result *model.CrawlResult) error {
	fetchOpts := []fetch.Option{fetch.WithLogger(s.logger)}
	if s.cfg.Sites != nil {
		if base := result.Target; base != "" {
			fetchOpts = append(fetchOpts, fetch.WithSiteConfig(siteFor(s.cfg, base)))
		}
	}
	fetcher := fetch.NewFetcher(s.cfg, fetchOpts...)
	defer fetcher.Close()

	buffer := crawler.NewBufferManager(s.store, s.cfg.SkipSave || s.store == nil, s.logger)

	ctrlOpts := []crawler.ControllerOption{crawler.WithControllerLogger(s.logger)}
	if s.cfg.RespectRobotsTxt {
		ctrlOpts = append(ctrlOpts, crawler.WithRobots(robots.NewCache(s.cfg.UserAgent, s.logger)))
	}
	if len(s.seeds) > 0 {
		ctrlOpts = append(ctrlOpts, crawler.WithSeeds(s.seeds))
	}

	ctrl, err := crawler.NewController(s.cfg, result.Target, fetcher, buffer, ctrlOpts...)
	if err != nil {
		return fmt.Errorf("build crawl controller: %w", err)
	}

	run, err := ctrl.Run(ctx)
	if run != nil {
		result.PagesCrawled = run.PagesCrawled
		result.RequestFailures = run.RequestFailures
		result.URLsDiscovered = run.URLsDiscovered
		result.Capped = run.Capped
		result.Duration = run.Duration
	}
	return err
}

// siteFor resolves the per-site overrides for a target URL's host.
func siteFor(cfg *config.Config, target string) config.SiteConfig {
	host := config.HostOf(target)
	return cfg.Sites.GetSiteConfig(host)
}

// PropagateStep runs the status propagation pass over stored link data.
type PropagateStep struct {
	store  graph.Store
	logger *slog.Logger
}

// NewPropagateStep creates the propagation step.
func NewPropagateStep(store graph.Store, logger *slog.Logger) *PropagateStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PropagateStep{store: store, logger: logger}
}

// Name returns the step name.
func (s *PropagateStep) Name() string {
	return "propagate"
}

// Do runs propagation and records how many link rows were back-filled.
func (s *PropagateStep) Do(ctx context.Context, result *model.CrawlResult) error {
	propagated, err := graph.NewPropagator(s.store, s.logger).Run(ctx)
	if err != nil {
		return fmt.Errorf("status propagation: %w", err)
	}
	result.PropagatedLinks = propagated.LinksUpdated
	return nil
}

// Summarizer produces the stored-data aggregation the report renders.
// Implemented by database.CrawlDB.
type Summarizer interface {
	Summary(ctx context.Context) (*model.CrawlSummary, error)
}

// ReportStep renders the run's report through the configured writer.
type ReportStep struct {
	writer     report.Writer
	summarizer Summarizer
	logger     *slog.Logger
}

// NewReportStep creates the report step. summarizer may be nil for dry runs;
// the report then covers the in-memory result only.
func NewReportStep(writer report.Writer, summarizer Summarizer, logger *slog.Logger) *ReportStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportStep{
		writer:     writer,
		summarizer: summarizer,
		logger:     logger,
	}
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return "report"
}

// Do renders the report.
func (s *ReportStep) Do(ctx context.Context, result *model.CrawlResult) error {
	rep := &report.Report{
		Target: result.Target,
		Result: result,
	}

	if s.summarizer != nil {
		summary, err := s.summarizer.Summary(ctx)
		if err != nil {
			return fmt.Errorf("aggregate stored data: %w", err)
		}
		rep.Summary = summary
	}

	if _, err := s.writer.Write(rep); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
