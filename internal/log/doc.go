// Package log provides slog handler plumbing for the crawler.
//
// The crawler routinely logs response headers and request metadata; the
// RedactHandler in this package masks credential-bearing values (cookies,
// authorization tokens, API keys) before they reach the underlying handler,
// so a verbose crawl log can be shared without scrubbing it first.
package log
