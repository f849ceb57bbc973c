package config

import "errors"

// Configuration validation errors.
// Package-level sentinels rather than ad-hoc errors so callers can branch
// with errors.Is while the messages stay human-readable.
var (
	// ErrNoTarget is returned when no seed URL is given.
	ErrNoTarget = errors.New("no target specified: provide a seed URL or use --list")

	// ErrInvalidMode is returned for run modes other than discovery/sitemap.
	ErrInvalidMode = errors.New("invalid mode: must be \"discovery\" or \"sitemap\"")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidConcurrency is returned when the hard concurrency cap is not
	// positive. A cap of zero would mean no request can ever acquire a slot.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxRedirects is returned for a negative redirect bound.
	ErrInvalidMaxRedirects = errors.New("invalid max redirects: must be non-negative")

	// ErrInvalidFlushInterval is returned when the flush period is not positive.
	ErrInvalidFlushInterval = errors.New("invalid flush interval: must be positive")

	// ErrInvalidRateLimitThreshold is returned when the breaker threshold is
	// not positive; a zero threshold would trip the breaker permanently.
	ErrInvalidRateLimitThreshold = errors.New("invalid rate limit threshold: must be positive")

	// ErrInvalidBackoff is returned when the backoff window is empty or inverted.
	ErrInvalidBackoff = errors.New("invalid backoff: initial must be positive and not exceed max")

	// ErrInvalidUpDamping is returned when the additive-increase probability
	// is outside (0, 1].
	ErrInvalidUpDamping = errors.New("invalid up damping: must be in (0, 1]")

	// ErrInvalidMaxPages is returned for a negative page cap.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative (0 = unlimited)")

	// ErrInvalidCrawlDelay is returned for a negative politeness delay.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidBatchSize is returned when the batch concurrency is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrSitemapNeedsSeedFile is returned when sitemap mode is selected
	// without a seed list file.
	ErrSitemapNeedsSeedFile = errors.New("sitemap mode requires a seed list: use --list")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are requested.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
