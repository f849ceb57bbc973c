package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// The throttling defaults come from field experience with rate-limiting
// reverse proxies: the breaker trips fast (3 consecutive rejections) and the
// backoff window stays short so a healthy host resumes quickly.
const (
	// DefaultHardConcurrency is the absolute ceiling on in-flight requests.
	// The adaptive limiter starts here and only ever moves down towards the
	// learned smart ceiling; it never exceeds this value.
	DefaultHardConcurrency = 50

	// DefaultWorkers is the number of frontier workers. Workers above the
	// concurrency limit simply block on the gate, so a modest surplus keeps
	// the pipeline full without burning scheduler time.
	DefaultWorkers = 25

	// DefaultTimeout is the per-request total timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultReadTimeout bounds reading a response body after headers arrived.
	DefaultReadTimeout = 15 * time.Second

	// DefaultMaxRedirects bounds the length of a followed redirect chain.
	DefaultMaxRedirects = 10

	// DefaultRedirectTimeout is the per-hop timeout for the lightweight HEAD
	// requests used to walk redirect chains.
	DefaultRedirectTimeout = 5 * time.Second

	// DefaultFlushInterval is how often the buffer manager writes accumulated
	// pages, links and request logs to storage.
	DefaultFlushInterval = 10 * time.Second

	// DefaultRateLimitThreshold is the number of consecutive 429/503 signals
	// before the circuit breaker trips. The concurrency limit is already
	// halved on the first signal; the breaker is the escalation path.
	DefaultRateLimitThreshold = 3

	// DefaultInitialBackoff is the first breaker sleep. Each trip grows the
	// next sleep by 1.5x up to DefaultMaxBackoff; successes decay it again.
	DefaultInitialBackoff = 3 * time.Second

	// DefaultMaxBackoff caps the breaker sleep.
	DefaultMaxBackoff = 12 * time.Second

	// DefaultUpDamping is the probability that a single 200 response raises
	// the concurrency limit by one. Additive increase has to be slow relative
	// to the multiplicative decrease or the limit oscillates.
	DefaultUpDamping = 0.025

	// DefaultMaxBodySize limits how much of a response body is read.
	// 5MB covers real-world HTML while bounding memory per request.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultBatchSize is the number of targets crawled concurrently when
	// several seeds are given. Each run already fans out into many requests,
	// so this stays small.
	DefaultBatchSize = 3

	// AppName is used for XDG directory paths and the config file name.
	AppName = "webpiper"

	// ModeDiscovery follows discovered links; ModeSitemap fetches only the
	// seeded URLs and leaves status reconciliation to the propagation pass.
	ModeDiscovery = "discovery"
	ModeSitemap   = "sitemap"
)

// Config holds all options for a crawl run. It is built once from CLI flags
// and the optional config file, then passed explicitly into every component
// constructor; nothing reads ambient global state.
type Config struct {
	// Targets are the seed URLs, one crawl run per target.
	Targets []string

	// Mode selects the run mode: ModeDiscovery (default) or ModeSitemap.
	Mode string

	// Workers is the size of the frontier worker pool.
	Workers int

	// Concurrency is the hard cap on concurrently in-flight HTTP requests.
	// The adaptive limiter tunes the effective limit below this value.
	Concurrency int

	// Timeout is the total per-request timeout.
	Timeout time.Duration

	// ReadTimeout bounds reading a response body.
	ReadTimeout time.Duration

	// MaxRedirects bounds followed redirect chains.
	MaxRedirects int

	// RedirectTimeout is the per-hop timeout while walking a redirect chain.
	RedirectTimeout time.Duration

	// FlushInterval is the period of the background buffer flush.
	FlushInterval time.Duration

	// RateLimitThreshold is the consecutive 429/503 count that trips the
	// circuit breaker.
	RateLimitThreshold int

	// InitialBackoff and MaxBackoff bound the breaker's sleep window.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// UpDamping is the per-success probability of raising the limit by one.
	UpDamping float64

	// MaxPages optionally caps the number of pages accepted in one run.
	// Zero means unlimited: the run ends when the frontier drains.
	MaxPages int

	// MaxBodySize is the maximum number of body bytes read per response.
	MaxBodySize int64

	// BatchSize is the number of targets crawled concurrently.
	BatchSize int

	// SeedFile is a file of seed URLs, one per line. Required in sitemap
	// mode; the listed URLs are fetched verbatim with no link expansion.
	SeedFile string

	// CrawlDelay enables the per-host politeness limiter: at most one request
	// per CrawlDelay per host. Zero disables the limiter entirely.
	CrawlDelay time.Duration

	// RespectRobotsTxt gates fetching behind the target's robots.txt rules.
	RespectRobotsTxt bool

	// RespectNofollow stops rel="nofollow" links from being re-queued.
	// The link row is still recorded either way.
	RespectNofollow bool

	// RespectMetaRobots skips pages carrying a noindex robots meta tag.
	RespectMetaRobots bool

	// UserAgent is sent with every request and used for robots.txt evaluation.
	UserAgent string

	// DBDir is the directory holding the SQLite database.
	// Defaults to the XDG data directory.
	DBDir string

	// SkipSave runs the crawl without persisting anything (dry run).
	SkipSave bool

	// Verbose switches logging to debug level.
	Verbose bool

	// JSONReport / MarkdownReport select the report output format; the
	// default is a human-readable plain summary. Mutually exclusive.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// ConfigFilePath is an explicit config file location; empty means search
	// the working directory and then the home directory.
	ConfigFilePath string

	// Sites holds per-site overrides loaded from the config file.
	Sites *File
}

// NewConfig returns a Config populated with the documented defaults.
// Many defaults are non-zero, so relying on zero values is not an option;
// the constructor doubles as the canonical list of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Mode:               ModeDiscovery,
		Workers:            DefaultWorkers,
		Concurrency:        DefaultHardConcurrency,
		Timeout:            DefaultTimeout,
		ReadTimeout:        DefaultReadTimeout,
		MaxRedirects:       DefaultMaxRedirects,
		RedirectTimeout:    DefaultRedirectTimeout,
		FlushInterval:      DefaultFlushInterval,
		RateLimitThreshold: DefaultRateLimitThreshold,
		InitialBackoff:     DefaultInitialBackoff,
		MaxBackoff:         DefaultMaxBackoff,
		UpDamping:          DefaultUpDamping,
		MaxBodySize:        DefaultMaxBodySize,
		BatchSize:          DefaultBatchSize,
		RespectNofollow:    true,
		RespectMetaRobots:  true,
		UserAgent:          DefaultUserAgent(),
		DBDir:              XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for webpiper.
// On Linux: ~/.local/share/webpiper.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// DefaultUserAgent builds a generic Chrome user-agent string for the host OS.
// A browser-like agent avoids the trivial bot blocks that reject unknown
// agents outright while the string stays honest about nothing in particular.
func DefaultUserAgent() string {
	var osPart string
	switch runtime.GOOS {
	case "windows":
		osPart = "Windows NT 10.0; Win64; x64"
	case "darwin":
		osPart = "Macintosh; Intel Mac OS X 10_15_7"
	case "linux":
		osPart = "X11; Linux x86_64"
	default:
		osPart = "X11; Linux x86_64"
	}
	return fmt.Sprintf(
		"Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		osPart,
	)
}

// Validate checks the configuration and returns the first problem found.
// It runs once after flag parsing so every component downstream can assume
// a well-formed config.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.Mode != ModeDiscovery && c.Mode != ModeSitemap {
		return ErrInvalidMode
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxRedirects < 0 {
		return ErrInvalidMaxRedirects
	}
	if c.FlushInterval <= 0 {
		return ErrInvalidFlushInterval
	}
	if c.RateLimitThreshold <= 0 {
		return ErrInvalidRateLimitThreshold
	}
	if c.InitialBackoff <= 0 || c.MaxBackoff < c.InitialBackoff {
		return ErrInvalidBackoff
	}
	if c.UpDamping <= 0 || c.UpDamping > 1 {
		return ErrInvalidUpDamping
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.Mode == ModeSitemap && c.SeedFile == "" {
		return ErrSitemapNeedsSeedFile
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
