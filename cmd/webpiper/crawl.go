package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielmulder/webpiper/internal/config"
	"github.com/danielmulder/webpiper/internal/crawler"
	"github.com/danielmulder/webpiper/internal/database"
	"github.com/danielmulder/webpiper/internal/log"
	"github.com/danielmulder/webpiper/internal/model"
	"github.com/danielmulder/webpiper/internal/pipeline"
	"github.com/danielmulder/webpiper/internal/report"
	"github.com/danielmulder/webpiper/internal/urlutil"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url]",
		Short: "Crawl one or more websites",
		Long: `Crawl fetches a website starting from the given seed URL.

In discovery mode (default) it follows internal links until the frontier
drains or the page cap is reached. In sitemap mode it fetches exactly the
URLs listed in a seed file and records their statuses without expanding links.

The concurrency limit adapts to the server: 429/503 responses halve it and
repeated rejections pause all requests until a backoff window passes.

Examples:
  # Crawl a single site
  webpiper crawl https://example.com

  # Crawl several sites concurrently
  webpiper crawl https://a.example https://b.example

  # Audit a fixed URL list (sitemap mode)
  webpiper crawl --mode sitemap --list urls.txt https://example.com

  # Dry run: crawl without writing to the database
  webpiper crawl --dry-run https://example.com

  # Output a Markdown report to a file
  webpiper crawl --markdown -o report.md https://example.com

Configuration file (.webpiper) example:
  sites:
    example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      maxPages: 500
      crawlDelaySeconds: 2`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().String("mode", config.ModeDiscovery,
		"Run mode: discovery (follow links) or sitemap (fetch listed URLs only)")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of frontier workers")
	cmd.Flags().IntP("concurrency", "n", config.DefaultHardConcurrency,
		"Hard cap on concurrently in-flight requests")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Total timeout for each request")
	cmd.Flags().Int("max-redirects", config.DefaultMaxRedirects,
		"Maximum redirect chain length to follow")
	cmd.Flags().Duration("flush-interval", config.DefaultFlushInterval,
		"How often buffered results are written to the database")
	cmd.Flags().IntP("max-pages", "p", 0,
		"Maximum number of pages to crawl (0 = unlimited)")
	cmd.Flags().Duration("crawl-delay", 0,
		"Minimum delay between requests to the same host (0 = disabled)")
	cmd.Flags().Bool("robots", false,
		"Respect robots.txt rules")
	cmd.Flags().Bool("ignore-nofollow", false,
		"Queue links marked rel=\"nofollow\"")
	cmd.Flags().Bool("ignore-noindex", false,
		"Store pages carrying a noindex robots meta tag")
	cmd.Flags().StringP("user-agent", "A", "",
		"Override the default user-agent string")

	// Seed list (sitemap mode)
	cmd.Flags().StringP("list", "l", "",
		"File of seed URLs, one per line (required for sitemap mode)")

	// Batch crawling flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent crawls when several targets are given")

	// Storage flags
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")
	cmd.Flags().Bool("dry-run", false,
		"Crawl without writing anything to the database")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .webpiper in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

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

	verbose := getVerboseFlag(cmd)
	cfg.Verbose = verbose
	logger := setupLogger(verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown.
	// Cancellation stops the workers; the final buffer flush still runs.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCrawl(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.Mode, err = cmd.Flags().GetString("mode")
	if err != nil {
		return nil, err
	}

	cfg.Workers, err = cmd.Flags().GetInt("workers")
	if err != nil {
		return nil, err
	}

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.MaxRedirects, err = cmd.Flags().GetInt("max-redirects")
	if err != nil {
		return nil, err
	}

	cfg.FlushInterval, err = cmd.Flags().GetDuration("flush-interval")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.CrawlDelay, err = cmd.Flags().GetDuration("crawl-delay")
	if err != nil {
		return nil, err
	}

	cfg.RespectRobotsTxt, err = cmd.Flags().GetBool("robots")
	if err != nil {
		return nil, err
	}

	ignoreNofollow, err := cmd.Flags().GetBool("ignore-nofollow")
	if err != nil {
		return nil, err
	}
	cfg.RespectNofollow = !ignoreNofollow

	ignoreNoindex, err := cmd.Flags().GetBool("ignore-noindex")
	if err != nil {
		return nil, err
	}
	cfg.RespectMetaRobots = !ignoreNoindex

	userAgent, err := cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		cfg.UserAgent = userAgent
	}

	cfg.SeedFile, err = cmd.Flags().GetString("list")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	cfg.SkipSave, err = cmd.Flags().GetBool("dry-run")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from the config file.
	// An explicitly specified file must exist; the default search may come
	// up empty without it being an error.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.Sites, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.Sites = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	// Positional arguments are the seed URLs.
	cfg.Targets = args

	return cfg, nil
}

// setupLogger creates a structured logger based on verbosity setting.
// The redaction handler masks cookies, tokens and auth headers so per-site
// credentials from the config file never reach the log output.
func setupLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := log.NewRedactHandler(slog.NewTextHandler(os.Stderr, opts))
	return slog.New(handler)
}

// runCrawl executes the crawl.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Reject unusable seed URLs before opening any resources.
	for _, target := range cfg.Targets {
		if urlutil.BaseURL(target) == "" {
			return fmt.Errorf("invalid seed URL: %q", target)
		}
	}

	var seeds []string
	if cfg.SeedFile != "" {
		var err error
		seeds, err = readSeedList(cfg.SeedFile)
		if err != nil {
			return fmt.Errorf("failed to read seed list: %w", err)
		}
		logger.Info("seed list loaded", "file", cfg.SeedFile, "urls", len(seeds))
	}

	logger.Info("starting crawl",
		"targets", cfg.Targets,
		"mode", cfg.Mode,
		"workers", cfg.Workers,
		"concurrency", cfg.Concurrency,
		"dryRun", cfg.SkipSave,
	)

	// Open the database unless this is a dry run.
	var db *database.CrawlDB
	if !cfg.SkipSave {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	output, closeOutput, err := reportOutput(cfg)
	if err != nil {
		return err
	}
	defer closeOutput()

	writer := reportWriter(cfg, output)

	if len(cfg.Targets) > 1 && cfg.BatchSize > 1 {
		return runBatchCrawl(ctx, cfg, db, writer, seeds, logger)
	}
	return runSequentialCrawl(ctx, cfg, db, writer, seeds, logger)
}

// runSequentialCrawl crawls targets one at a time with per-site overrides
// applied from the config file.
func runSequentialCrawl(ctx context.Context, cfg *config.Config, db *database.CrawlDB, writer report.Writer, seeds []string, logger *slog.Logger) error {
	for _, target := range cfg.Targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		targetCfg := applySiteOverrides(cfg, target)
		p := createPipelineForTarget(targetCfg, db, writer, seeds, logger)

		result := &model.CrawlResult{Target: target}

		fmt.Printf("Crawling %s...\n", target)
		startTime := time.Now()

		if err := p.Execute(ctx, result); err != nil {
			logger.Error("crawl failed", "target", target, "error", err)
			fmt.Fprintf(os.Stderr, "Crawl error for %s: %v\n", target, err)
			continue
		}

		elapsed := time.Since(startTime)
		fmt.Printf("Crawl completed in %s\n\n", elapsed.Round(time.Millisecond))
	}

	return nil
}

// runBatchCrawl crawls multiple targets concurrently using BatchProcessor.
func runBatchCrawl(ctx context.Context, cfg *config.Config, db *database.CrawlDB, writer report.Writer, seeds []string, logger *slog.Logger) error {
	fmt.Printf("Starting batch crawl of %d targets (concurrency: %d)...\n\n",
		len(cfg.Targets), cfg.BatchSize)

	startTime := time.Now()

	// Batch runs share one config, so per-site overrides from the config
	// file are not applied. Sequential mode (--batch 1) honors them.
	if cfg.Sites != nil && len(cfg.Sites.Sites) > 0 {
		logger.Warn("batch crawling ignores per-site config overrides",
			"siteCount", len(cfg.Sites.Sites))
		fmt.Fprintf(os.Stderr, "Warning: per-site configuration is ignored in batch mode. Use --batch 1 to apply site-specific settings.\n\n")
	}

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			return createPipelineForTarget(cfg, db, writer, seeds, logger)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	results, err := bp.ProcessBatch(ctx, cfg.Targets)
	if err != nil {
		return err
	}

	failed := 0
	for _, result := range results {
		if result != nil && result.Err != nil {
			failed++
		}
	}

	elapsed := time.Since(startTime)
	fmt.Printf("\nBatch crawl completed in %s (%d/%d targets failed)\n",
		elapsed.Round(time.Millisecond), failed, len(results))

	return nil
}

// createPipelineForTarget assembles the crawl/propagate/report pipeline.
// With no database (dry run) the propagation step is skipped and the report
// covers the in-memory run counters only.
func createPipelineForTarget(cfg *config.Config, db *database.CrawlDB, writer report.Writer, seeds []string, logger *slog.Logger) *pipeline.Pipeline {
	p := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	)

	var store crawler.Store
	var summarizer pipeline.Summarizer
	if db != nil {
		store = db
		summarizer = db
	}

	crawlOpts := []pipeline.CrawlStepOption{pipeline.WithCrawlLogger(logger)}
	if len(seeds) > 0 {
		crawlOpts = append(crawlOpts, pipeline.WithCrawlSeeds(seeds))
	}
	p.AddStep(pipeline.NewCrawlStep(cfg, store, crawlOpts...))

	if db != nil {
		p.AddStep(pipeline.NewPropagateStep(db, logger))
	}

	p.AddStep(pipeline.NewReportStep(writer, summarizer, logger))

	return p
}

// applySiteOverrides returns a config copy with the target host's overrides
// from the config file applied. The original config is never mutated.
func applySiteOverrides(cfg *config.Config, target string) *config.Config {
	if cfg.Sites == nil {
		return cfg
	}

	site := cfg.Sites.GetSiteConfig(config.HostOf(target))

	targetCfg := *cfg
	if site.MaxPages > 0 {
		targetCfg.MaxPages = site.MaxPages
	}
	if site.CrawlDelaySeconds > 0 {
		targetCfg.CrawlDelay = time.Duration(site.CrawlDelaySeconds) * time.Second
	}
	if site.UserAgent != "" {
		targetCfg.UserAgent = site.UserAgent
	}
	return &targetCfg
}

// reportWriter selects the report format based on configuration.
func reportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output)
	}
}

// reportOutput opens the report destination: the configured file, or stdout.
// The returned closer is a no-op for stdout.
func reportOutput(cfg *config.Config) (io.Writer, func(), error) {
	if cfg.ReportFile == "" {
		return os.Stdout, func() {}, nil
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// 0600: reports can contain URLs with credentials or session tokens.
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// readSeedList reads seed URLs from a file, one per line.
// Blank lines and lines starting with # are skipped.
func readSeedList(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided seed list path is intentional
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var seeds []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		seeds = append(seeds, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return seeds, nil
}
