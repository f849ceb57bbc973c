package robots

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const fetchTimeout = 10 * time.Second

// Cache fetches and caches robots.txt per origin and answers CanFetch
// queries against the cached rules. Safe for concurrent use.
type Cache struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

// entry holds the parsed rules for one origin. The once gate makes
// concurrent first lookups for the same origin fetch robots.txt exactly once.
type entry struct {
	once sync.Once
	data *robotstxt.RobotsData
}

// NewCache creates a Cache that evaluates rules for the given user agent.
func NewCache(userAgent string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		client:    &http.Client{Timeout: fetchTimeout},
		userAgent: userAgent,
		logger:    logger,
		entries:   make(map[string]*entry),
	}
}

// CanFetch reports whether the user agent may fetch rawURL according to the
// target origin's robots.txt. Malformed URLs and retrieval failures allow
// the fetch.
func (c *Cache) CanFetch(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return true
	}
	origin := parsed.Scheme + "://" + parsed.Host

	c.mu.Lock()
	e, ok := c.entries[origin]
	if !ok {
		e = &entry{}
		c.entries[origin] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.data = c.fetch(ctx, origin)
	})

	if e.data == nil {
		return true
	}
	return e.data.TestAgent(parsed.Path, c.userAgent)
}

// fetch retrieves and parses robots.txt for an origin. Any failure returns
// nil, which CanFetch treats as "no restrictions".
func (c *Cache) fetch(ctx context.Context, origin string) *robotstxt.RobotsData {
	robotsURL := origin + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("robots.txt unreachable", "url", robotsURL, "error", err)
		return nil
	}
	defer resp.Body.Close() //nolint:errcheck

	// Only a served robots.txt restricts anything. A 4xx (no file) or 5xx
	// (broken server) both fall through to "no restrictions".
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("robots.txt not served", "url", robotsURL, "status", resp.StatusCode)
		return nil
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		c.logger.Debug("robots.txt parse failed", "url", robotsURL, "error", err)
		return nil
	}

	c.logger.Debug("robots.txt loaded", "url", robotsURL, "status", resp.StatusCode)
	return data
}
