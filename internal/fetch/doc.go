// Package fetch implements the adaptive HTTP fetch service.
//
// # Architecture
//
// Every request passes through a concurrency gate before it is issued. The
// gate's limit is not fixed: it follows an AIMD control loop (additive
// increase, multiplicative decrease) driven by server feedback. A 200 raises
// the limit by one with small probability; a 429/503 halves it immediately
// and records the concurrency level at which the host started rejecting.
// The mean of those failure points becomes the "smart ceiling" - a learned
// upper bound below the configured hard cap that the limit will not climb
// past again.
//
// Sustained rejection escalates to a circuit breaker: after a threshold of
// consecutive 429/503 signals all slot acquisition suspends for an
// exponentially growing backoff, then traffic resumes and the counter resets.
// Only one breaker trip runs at a time; concurrent rate-limit signals while a
// trip is in progress are deliberately dropped to prevent a stampede of
// redundant trips.
//
// Redirect chains are walked with lightweight HEAD requests, bounded in
// length and cycle-checked. Response bodies are only read for allow-listed
// content types; other 200 responses are accepted without a body or rejected
// with a sentinel status depending on the type.
//
// Backpressure is structural: a worker that cannot acquire a slot simply does
// not issue its request, so outbound connection pressure is bounded by the
// current limit rather than by frontier size.
package fetch
