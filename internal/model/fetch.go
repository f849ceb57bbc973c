package model

import "time"

// Sentinel status codes for non-HTTP failure modes. They are negative so they
// can never collide with a real HTTP status, and they are what gets persisted
// in the requests table for failed attempts.
const (
	// StatusTransportError marks timeouts and connection-level failures.
	StatusTransportError = -1

	// StatusInternalError marks unexpected failures inside the fetch path
	// (request construction, body decoding, and similar).
	StatusInternalError = -2

	// StatusContentRejected marks 200 responses whose Content-Type is not on
	// the acceptance list. The response is recorded but the body is never read.
	StatusContentRejected = -10
)

// Outcome tags a FetchResult so callers can branch on what kind of result
// they are holding without inspecting sentinel values.
type Outcome int

const (
	// OutcomeHTTP means a real HTTP response was received; Status holds the
	// HTTP status code (including 4xx/5xx).
	OutcomeHTTP Outcome = iota

	// OutcomeTransportError means the request never produced a response.
	OutcomeTransportError

	// OutcomeInternalError means the fetch path itself failed.
	OutcomeInternalError

	// OutcomeContentRejected means a 200 response carried a disallowed
	// Content-Type and its body was discarded.
	OutcomeContentRejected
)

// String returns a short human-readable tag for logging.
func (o Outcome) String() string {
	switch o {
	case OutcomeHTTP:
		return "http"
	case OutcomeTransportError:
		return "transport_error"
	case OutcomeInternalError:
		return "internal_error"
	case OutcomeContentRejected:
		return "content_rejected"
	default:
		return "unknown"
	}
}

// RedirectHop is one step in a followed redirect chain.
type RedirectHop struct {
	// Source is the URL that issued the redirect.
	Source string

	// Target is the resolved Location the redirect points at.
	// Empty for the terminating hop.
	Target string

	// Status is the HTTP status observed at Source.
	Status int

	// Err records a failure that ended the chain early (loop, timeout).
	Err string
}

// FetchResult is the outcome of one fetch attempt.
//
// Status carries either an HTTP status code (Outcome == OutcomeHTTP) or one of
// the negative sentinels above; Outcome disambiguates the two spaces so the
// sentinel encoding only matters at the persistence boundary.
type FetchResult struct {
	// URL is the URL that was requested.
	URL string

	// Outcome tags which kind of result this is.
	Outcome Outcome

	// Status is the HTTP status code or a negative sentinel.
	Status int

	// Headers are the response headers, nil when no response arrived.
	Headers map[string][]string

	// ContentType is the response Content-Type, lowercased.
	ContentType string

	// Content is the body for accepted HTML responses; empty otherwise.
	Content string

	// RedirectChain lists followed redirect hops for 3xx responses.
	RedirectChain []RedirectHop

	// Timers holds per-phase timings in milliseconds.
	Timers map[string]float64

	// ElapsedTime is the total attempt duration in seconds.
	ElapsedTime float64

	// Err holds the underlying error for non-HTTP outcomes.
	Err error
}

// OK reports whether the result is a 200 HTTP response.
func (r *FetchResult) OK() bool {
	return r.Outcome == OutcomeHTTP && r.Status == 200
}

// RequestLog converts the result into its audit-trail row.
func (r *FetchResult) RequestLog() RequestLog {
	return RequestLog{
		URL:           r.URL,
		StatusCode:    r.Status,
		Headers:       r.Headers,
		ElapsedTime:   r.ElapsedTime,
		Timers:        r.Timers,
		RedirectChain: r.RedirectChain,
		CreatedAt:     time.Now().UTC(),
	}
}

// ConcurrencyState is a snapshot of the adaptive fetcher's gate, exposed for
// logging and tests. Invariant: 0 < Limit <= SmartCap <= HardCap.
type ConcurrencyState struct {
	// Limit is the current dynamic concurrency limit.
	Limit int

	// Active is the number of requests currently holding a slot.
	Active int

	// SmartCap is the learned ceiling derived from past failure points.
	SmartCap int

	// HardCap is the absolute configured ceiling.
	HardCap int

	// FailureHistory lists the concurrency levels at which the remote host
	// started rejecting, oldest first.
	FailureHistory []int
}

// CircuitState is a snapshot of the circuit breaker.
type CircuitState struct {
	// Open reports whether the breaker is currently tripped.
	Open bool

	// ConsecutiveRateLimits counts 429/503 signals since the last success.
	ConsecutiveRateLimits int

	// Backoff is the sleep the next trip will incur.
	Backoff time.Duration
}
