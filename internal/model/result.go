package model

import "time"

// CrawlResult accumulates the outcome of one pipeline run against one target.
// Pipeline steps fill it in as they execute; the report step renders it.
type CrawlResult struct {
	// Target is the seed URL the run started from.
	Target string

	// PagesCrawled is the number of pages accepted and buffered.
	PagesCrawled int

	// RequestFailures counts fetch attempts that did not yield an accepted page.
	RequestFailures int

	// URLsDiscovered is the size of the visited set at the end of the run.
	URLsDiscovered int

	// Capped reports whether the run stopped because the page cap was reached
	// rather than because the frontier drained.
	Capped bool

	// Duration is the wall-clock crawl time.
	Duration time.Duration

	// PropagatedLinks is the number of link rows whose status the propagation
	// pass back-filled.
	PropagatedLinks int

	// PerformedSteps lists the pipeline steps that ran, in order.
	PerformedSteps []string

	// Err records a step failure when the pipeline continues past errors.
	Err error
}

// PagesPerSecond returns the crawl throughput, zero-safe.
func (r *CrawlResult) PagesPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.PagesCrawled) / r.Duration.Seconds()
}

// CrawlSummary is the read-only aggregation the report command renders.
// It is produced from the stored tables, never from in-memory crawl state.
type CrawlSummary struct {
	// Pages is the number of stored pages.
	Pages int

	// InternalLinks and ExternalLinks count stored link rows by kind.
	InternalLinks int
	ExternalLinks int

	// Requests is the number of audit rows.
	Requests int

	// StatusCounts maps status code (including negative sentinels) to the
	// number of requests that produced it.
	StatusCounts map[int]int

	// BrokenLinks counts internal links whose back-filled status is >= 400.
	BrokenLinks int

	// AvgElapsed is the mean request duration in seconds.
	AvgElapsed float64

	// GeneratedAt is when the summary was computed.
	GeneratedAt time.Time
}
