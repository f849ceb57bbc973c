package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/danielmulder/webpiper/internal/config"
	"github.com/danielmulder/webpiper/internal/model"
	"github.com/danielmulder/webpiper/internal/urlutil"
)

// FetchService is the fetch surface the controller drives.
// Implemented by fetch.Fetcher; tests substitute fakes.
type FetchService interface {
	Fetch(ctx context.Context, url string) *model.FetchResult
}

// RobotsPolicy answers whether a URL may be fetched.
// Implemented by robots.Cache.
type RobotsPolicy interface {
	CanFetch(ctx context.Context, url string) bool
}

// Controller runs one crawl against one target. It owns the frontier, the
// worker pool and the visited set, and feeds everything the workers produce
// into the buffer manager.
type Controller struct {
	cfg     *config.Config
	fetcher FetchService
	buffer  *BufferManager
	robots  RobotsPolicy
	logger  *slog.Logger

	target string
	base   string
	seeds  []string

	frontier *Frontier
	stop     *Event
	pause    *Event

	mu       sync.Mutex
	visited  map[string]bool
	accepted int
	failures int
	capped   bool
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithControllerLogger sets the logger.
func WithControllerLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithRobots enables robots.txt enforcement.
func WithRobots(policy RobotsPolicy) ControllerOption {
	return func(c *Controller) {
		c.robots = policy
	}
}

// WithSeeds replaces the default root seed with an explicit URL list.
// Used by sitemap mode, where the operator supplies the full set to audit.
func WithSeeds(seeds []string) ControllerOption {
	return func(c *Controller) {
		c.seeds = seeds
	}
}

// NewController creates a Controller for one target.
func NewController(cfg *config.Config, target string, fetcher FetchService, buffer *BufferManager, opts ...ControllerOption) (*Controller, error) {
	base := urlutil.BaseURL(target)
	if base == "" {
		return nil, fmt.Errorf("crawler: cannot derive origin from target %q", target)
	}

	c := &Controller{
		cfg:      cfg,
		fetcher:  fetcher,
		buffer:   buffer,
		logger:   slog.Default(),
		target:   target,
		base:     base,
		frontier: NewFrontier(),
		stop:     NewEvent(),
		pause:    NewEvent(),
		visited:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Pause holds the workers between URLs; Resume releases them.
func (c *Controller) Pause()  { c.pause.Set() }
func (c *Controller) Resume() { c.pause.Clear() }

// Run executes the crawl to completion and returns its result.
// The run ends when the frontier drains, the page cap is reached, or ctx is
// cancelled, whichever comes first.
func (c *Controller) Run(ctx context.Context) (*model.CrawlResult, error) {
	start := time.Now()

	seeds := c.seeds
	if len(seeds) == 0 {
		seeds = []string{c.base + "/"}
	}
	for _, raw := range seeds {
		seed := urlutil.Normalize(c.base, raw)
		c.mu.Lock()
		already := c.visited[seed]
		c.visited[seed] = true
		c.mu.Unlock()
		if already {
			continue
		}
		if err := c.frontier.Enqueue(seed); err != nil {
			return nil, err
		}
	}

	c.logger.Info("crawl starting",
		"target", c.target,
		"mode", c.cfg.Mode,
		"workers", c.cfg.Workers,
		"seeds", c.frontier.Len(),
	)

	auxCtx, cancelAux := context.WithCancel(ctx)
	defer cancelAux()
	go c.buffer.RunPeriodic(auxCtx, c.cfg.FlushInterval)
	go c.reportProgress(auxCtx)

	pool := NewPool(c.cfg.Workers, c.frontier, c, c.stop, c.pause, c.logger)
	pool.Run(ctx)

	// Drained frontier and raised stop event are both terminal; wait for
	// whichever happens first.
	joined := make(chan struct{})
	go func() {
		if err := c.frontier.Join(ctx); err == nil {
			close(joined)
		}
	}()

	select {
	case <-joined:
	case <-c.stop.Done():
	case <-ctx.Done():
	}

	c.stop.Set()
	c.frontier.Close()
	pool.Wait()
	cancelAux()

	c.buffer.FlushSync(context.WithoutCancel(ctx))

	c.mu.Lock()
	result := &model.CrawlResult{
		Target:          c.target,
		PagesCrawled:    c.accepted,
		RequestFailures: c.failures,
		URLsDiscovered:  len(c.visited),
		Capped:          c.capped,
		Duration:        time.Since(start),
	}
	c.mu.Unlock()

	c.logger.Info("crawl finished",
		"target", c.target,
		"pages", result.PagesCrawled,
		"failures", result.RequestFailures,
		"discovered", result.URLsDiscovered,
		"capped", result.Capped,
		"duration", result.Duration.Round(time.Millisecond),
		"pages_per_second", fmt.Sprintf("%.2f", result.PagesPerSecond()),
	)

	return result, ctx.Err()
}

// ProcessURL handles one frontier URL: policy checks, fetch, persistence and
// link expansion. It is called concurrently by the worker pool.
func (c *Controller) ProcessURL(ctx context.Context, url string) error {
	if c.robots != nil && c.cfg.RespectRobotsTxt && !c.robots.CanFetch(ctx, url) {
		c.logger.Debug("blocked by robots.txt", "url", url)
		return nil
	}

	if !urlutil.IsValidLink(url) {
		c.countFailure()
		return fmt.Errorf("invalid url %q", url)
	}

	result := c.fetcher.Fetch(ctx, url)

	// The audit trail records every attempt, accepted or not.
	c.buffer.AddRequest(result.RequestLog())

	if !result.OK() {
		c.countFailure()
		c.logger.Debug("fetch not accepted",
			"url", url,
			"status", result.Status,
			"outcome", result.Outcome.String(),
		)
		return nil
	}

	if c.cfg.RespectMetaRobots && result.Content != "" && HasNoindex(result.Content) {
		c.logger.Debug("page excluded by noindex", "url", url)
		return nil
	}

	if !c.acceptPage() {
		return nil
	}

	c.buffer.AddPage(model.Page{
		URL:         url,
		StatusCode:  result.Status,
		ContentType: result.ContentType,
		Content:     result.Content,
		CrawledAt:   time.Now().UTC(),
	})

	if c.cfg.Mode != config.ModeSitemap && result.Content != "" {
		c.expandLinks(url, result.Content)
	}
	return nil
}

// acceptPage counts a page against the cap. It returns false when the cap
// was already reached; the caller drops the page. The worker that accepts
// the final page raises the stop event.
func (c *Controller) acceptPage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.MaxPages > 0 && c.accepted >= c.cfg.MaxPages {
		return false
	}
	c.accepted++
	if c.cfg.MaxPages > 0 && c.accepted == c.cfg.MaxPages {
		c.capped = true
		c.stop.Set()
		c.logger.Info("page cap reached", "max_pages", c.cfg.MaxPages)
	}
	return true
}

// expandLinks records every anchor on the page and queues the crawlable ones.
func (c *Controller) expandLinks(pageURL, content string) {
	extracted := ExtractLinks(content, pageURL, c.base)

	c.buffer.AddLinks(extracted.Internal)
	c.buffer.AddLinks(extracted.External)

	for _, link := range extracted.Internal {
		if c.cfg.RespectNofollow && link.Nofollow() {
			continue
		}
		if !urlutil.IsCanonical(link.TargetURL, c.base) {
			continue
		}

		c.mu.Lock()
		already := c.visited[link.TargetURL]
		if !already {
			c.visited[link.TargetURL] = true
		}
		c.mu.Unlock()
		if already {
			continue
		}

		if err := c.frontier.Enqueue(link.TargetURL); err != nil {
			return
		}
	}
}

func (c *Controller) countFailure() {
	c.mu.Lock()
	c.failures++
	c.mu.Unlock()
}

// reportProgress logs a status line every few seconds while the crawl runs.
func (c *Controller) reportProgress(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			accepted := c.accepted
			failures := c.failures
			discovered := len(c.visited)
			c.mu.Unlock()

			c.logger.Info("crawl progress",
				"pages", accepted,
				"failures", failures,
				"discovered", discovered,
				"queued", c.frontier.Len(),
				"pending", c.frontier.Pending(),
			)
		}
	}
}
