package model

import (
	"strings"
	"time"
)

// Page is one successfully fetched and accepted page.
// Exactly one Page is created per accepted URL per crawl run; it is buffered
// in memory and cleared when the buffer manager flushes it to storage.
type Page struct {
	// URL is the normalized URL the page was fetched from.
	URL string

	// StatusCode is the HTTP status of the fetch (always 200 for stored pages;
	// the propagation pass may later back-fill worse statuses onto links).
	StatusCode int

	// ContentType is the Content-Type response header value.
	ContentType string

	// Content is the page body. Empty for accepted non-HTML assets whose body
	// was deliberately discarded.
	Content string

	// CrawledAt is when the fetch completed.
	CrawledAt time.Time
}

// Link is one anchor discovered on an accepted page. A Link row is recorded
// for every anchor regardless of whether its target will ever be crawled;
// nofollow and non-canonical targets are recorded but not re-queued.
type Link struct {
	// SourceURL is the page the anchor was found on.
	SourceURL string

	// TargetURL is the resolved, normalized anchor target.
	TargetURL string

	// Anchor is the anchor text, whitespace-trimmed.
	Anchor string

	// Rel is the anchor's rel attribute ("nofollow", "noopener", ...).
	Rel string

	// IsExternal marks links whose target lives on a different host.
	IsExternal bool

	// StatusCode starts at zero and is back-filled by the status
	// propagation pass after the crawl.
	StatusCode int
}

// Nofollow reports whether the link carries rel="nofollow".
func (l Link) Nofollow() bool {
	return strings.Contains(strings.ToLower(l.Rel), "nofollow")
}

// RequestLog is the append-only audit record of one fetch attempt,
// successful or not. It is independent of whether the page was accepted.
type RequestLog struct {
	// URL is the requested URL.
	URL string

	// StatusCode is the HTTP status, or a negative sentinel for
	// transport-level failures (see Status* constants).
	StatusCode int

	// Headers are the response headers, if a response was received.
	Headers map[string][]string

	// ElapsedTime is the total wall-clock duration of the attempt in seconds.
	ElapsedTime float64

	// Timers holds per-phase durations in milliseconds
	// (initial_request, read_content, follow_redirects, total_elapsed).
	Timers map[string]float64

	// RedirectChain is the ordered list of redirect hops that were followed.
	RedirectChain []RedirectHop

	// CreatedAt is when the attempt was made.
	CreatedAt time.Time
}
