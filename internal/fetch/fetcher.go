package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/danielmulder/webpiper/internal/config"
	"github.com/danielmulder/webpiper/internal/model"
)

// acceptedAssetTypes are non-HTML content types that are recorded as valid
// pages without reading the body.
var acceptedAssetTypes = []string{
	"application/pdf",
	"application/xml",
	"text/xml",
	"application/json",
	"application/octet-stream",
}

// jitterThreshold is the concurrency limit below which request starts are
// jittered. At very low limits, requests released together tend to arrive
// in a burst that re-triggers the rate limiter that caused the low limit.
const jitterThreshold = 5

// Fetcher issues HTTP requests through the adaptive concurrency gate.
// It is safe for concurrent use; one Fetcher serves a whole crawl run.
type Fetcher struct {
	cfg *config.Config

	// client issues the primary GET requests; headClient walks redirect
	// chains with a tighter per-hop timeout. Neither follows redirects on
	// its own.
	client     *http.Client
	headClient *http.Client

	gate      *gate
	limiter   *hostLimiter
	logger    *slog.Logger
	userAgent string
	cookie    string
	headers   map[string]string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithSiteConfig applies per-site overrides: user agent, cookie and
// extra request headers.
func WithSiteConfig(sc config.SiteConfig) Option {
	return func(f *Fetcher) {
		if sc.UserAgent != "" {
			f.userAgent = sc.UserAgent
		}
		f.cookie = sc.Cookie
		f.headers = sc.Headers
	}
}

// WithClient replaces both HTTP clients. Used by tests to control transport
// behavior; the replacement must not follow redirects automatically.
func WithClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
		f.headClient = client
	}
}

// NewFetcher creates a Fetcher from the given configuration.
func NewFetcher(cfg *config.Config, opts ...Option) *Fetcher {
	// Redirects are walked manually with HEAD requests so every hop gets
	// recorded; neither client may follow them on its own.
	noFollow := func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	f := &Fetcher{
		cfg: cfg,
		client: &http.Client{
			Timeout:       cfg.Timeout,
			CheckRedirect: noFollow,
		},
		headClient: &http.Client{
			Timeout:       cfg.RedirectTimeout,
			CheckRedirect: noFollow,
		},
		gate:      newGate(cfg, slog.Default()),
		limiter:   newHostLimiter(cfg.CrawlDelay),
		logger:    slog.Default(),
		userAgent: cfg.UserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.gate.logger = f.logger
	return f
}

// Fetch requests a single URL and classifies the outcome. It blocks until the
// concurrency gate grants a slot; backpressure is the point, not a bug.
//
// The returned result always carries a status: an HTTP code, or a negative
// sentinel for transport errors, internal errors and rejected content types.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) *model.FetchResult {
	start := time.Now()
	timers := make(map[string]float64)

	result := func(r *model.FetchResult) *model.FetchResult {
		r.URL = rawURL
		r.Timers = timers
		r.ElapsedTime = time.Since(start).Seconds()
		timers["total_elapsed"] = float64(time.Since(start).Milliseconds())
		return r
	}

	if err := f.gate.Acquire(ctx); err != nil {
		return result(&model.FetchResult{
			Outcome: model.OutcomeInternalError,
			Status:  model.StatusInternalError,
			Err:     err,
		})
	}
	defer f.gate.Release()

	// When the limit has collapsed, desynchronize the survivors.
	if f.gate.Limit() < jitterThreshold {
		jitter := time.Duration(100+rand.IntN(400)) * time.Millisecond
		select {
		case <-ctx.Done():
		case <-time.After(jitter):
		}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return result(&model.FetchResult{
			Outcome: model.OutcomeInternalError,
			Status:  model.StatusInternalError,
			Err:     fmt.Errorf("parse url: %w", err),
		})
	}

	if err := f.limiter.Wait(ctx, parsed.Host); err != nil {
		return result(&model.FetchResult{
			Outcome: model.OutcomeInternalError,
			Status:  model.StatusInternalError,
			Err:     err,
		})
	}

	reqStart := time.Now()
	resp, err := f.do(ctx, f.client, http.MethodGet, rawURL)
	timers["initial_request"] = float64(time.Since(reqStart).Milliseconds())
	if err != nil {
		f.logger.Debug("transport error", "url", rawURL, "error", err)
		return result(&model.FetchResult{
			Outcome: model.OutcomeTransportError,
			Status:  model.StatusTransportError,
			Err:     err,
		})
	}
	defer resp.Body.Close() //nolint:errcheck

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode == http.StatusServiceUnavailable:
		// The backoff sleep must not hold up this worker.
		go f.gate.OnRateLimited(ctx)
		return result(&model.FetchResult{
			Outcome:     model.OutcomeHTTP,
			Status:      resp.StatusCode,
			Headers:     resp.Header,
			ContentType: contentType,
		})

	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		chainStart := time.Now()
		chain := f.followRedirects(ctx, resp, parsed)
		timers["follow_redirects"] = float64(time.Since(chainStart).Milliseconds())
		return result(&model.FetchResult{
			Outcome:       model.OutcomeHTTP,
			Status:        resp.StatusCode,
			Headers:       resp.Header,
			ContentType:   contentType,
			RedirectChain: chain,
		})

	case resp.StatusCode == http.StatusOK:
		f.gate.OnSuccess()
		return result(f.acceptContent(resp, contentType, timers))

	default:
		return result(&model.FetchResult{
			Outcome:     model.OutcomeHTTP,
			Status:      resp.StatusCode,
			Headers:     resp.Header,
			ContentType: contentType,
		})
	}
}

// acceptContent decides what to do with a 200 response based on its
// Content-Type: read HTML bodies, accept listed asset types bodiless, and
// reject everything else with a sentinel status.
func (f *Fetcher) acceptContent(resp *http.Response, contentType string, timers map[string]float64) *model.FetchResult {
	if strings.Contains(contentType, "text/html") {
		readStart := time.Now()
		body, err := f.readBody(resp)
		timers["read_content"] = float64(time.Since(readStart).Milliseconds())
		if err != nil {
			return &model.FetchResult{
				Outcome:     model.OutcomeInternalError,
				Status:      model.StatusInternalError,
				Headers:     resp.Header,
				ContentType: contentType,
				Err:         fmt.Errorf("read body: %w", err),
			}
		}
		return &model.FetchResult{
			Outcome:     model.OutcomeHTTP,
			Status:      http.StatusOK,
			Headers:     resp.Header,
			ContentType: contentType,
			Content:     body,
		}
	}

	for _, accepted := range acceptedAssetTypes {
		if strings.Contains(contentType, accepted) {
			return &model.FetchResult{
				Outcome:     model.OutcomeHTTP,
				Status:      http.StatusOK,
				Headers:     resp.Header,
				ContentType: contentType,
			}
		}
	}

	f.logger.Debug("content type rejected",
		"url", resp.Request.URL.String(),
		"content_type", contentType,
	)
	return &model.FetchResult{
		Outcome:     model.OutcomeContentRejected,
		Status:      model.StatusContentRejected,
		Headers:     resp.Header,
		ContentType: contentType,
	}
}

// readBody reads up to MaxBodySize bytes within ReadTimeout. The timer closes
// the body to unblock a stalled read; the fetch fails with a read error
// rather than hanging on a server that trickles bytes forever.
func (f *Fetcher) readBody(resp *http.Response) (string, error) {
	timer := time.AfterFunc(f.cfg.ReadTimeout, func() {
		resp.Body.Close() //nolint:errcheck
	})
	defer timer.Stop()

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodySize))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// followRedirects walks a redirect chain hop by hop with HEAD requests.
// Every hop is recorded, including the terminal one; loops and missing
// Location headers end the chain with an error hop. Each hop waits out an
// open circuit breaker first.
func (f *Fetcher) followRedirects(ctx context.Context, first *http.Response, base *url.URL) []model.RedirectHop {
	chain := make([]model.RedirectHop, 0, 4)
	seen := map[string]bool{base.String(): true}

	current := base
	status := first.StatusCode
	location := first.Header.Get("Location")

	for hop := 0; hop < f.cfg.MaxRedirects; hop++ {
		if location == "" {
			chain = append(chain, model.RedirectHop{
				Source: current.String(),
				Status: status,
				Err:    "redirect without Location header",
			})
			return chain
		}

		target, err := current.Parse(location)
		if err != nil {
			chain = append(chain, model.RedirectHop{
				Source: current.String(),
				Status: status,
				Err:    fmt.Sprintf("invalid Location %q", location),
			})
			return chain
		}

		if seen[target.String()] {
			chain = append(chain, model.RedirectHop{
				Source: current.String(),
				Target: target.String(),
				Status: status,
				Err:    "redirect loop",
			})
			return chain
		}
		seen[target.String()] = true

		chain = append(chain, model.RedirectHop{
			Source: current.String(),
			Target: target.String(),
			Status: status,
		})

		if err := f.gate.AwaitClosed(ctx); err != nil {
			return chain
		}

		resp, err := f.do(ctx, f.headClient, http.MethodHead, target.String())
		if err != nil {
			chain = append(chain, model.RedirectHop{
				Source: target.String(),
				Status: model.StatusTransportError,
				Err:    err.Error(),
			})
			return chain
		}
		resp.Body.Close() //nolint:errcheck

		if resp.StatusCode < 300 || resp.StatusCode >= 400 {
			// Terminal hop: where the chain actually lands.
			chain = append(chain, model.RedirectHop{
				Source: target.String(),
				Status: resp.StatusCode,
			})
			return chain
		}

		current = target
		status = resp.StatusCode
		location = resp.Header.Get("Location")
	}

	chain = append(chain, model.RedirectHop{
		Source: current.String(),
		Status: status,
		Err:    fmt.Sprintf("redirect chain exceeded %d hops", f.cfg.MaxRedirects),
	})
	return chain
}

// do issues one request with the fetcher's identity headers applied.
func (f *Fetcher) do(ctx context.Context, client *http.Client, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if f.cookie != "" {
		req.Header.Set("Cookie", f.cookie)
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	return client.Do(req)
}

// ConcurrencyState returns a snapshot of the adaptive limiter.
func (f *Fetcher) ConcurrencyState() model.ConcurrencyState {
	return f.gate.ConcurrencySnapshot()
}

// CircuitState returns a snapshot of the circuit breaker.
func (f *Fetcher) CircuitState() model.CircuitState {
	return f.gate.CircuitSnapshot()
}

// Close shuts the gate; blocked and future Acquire calls fail fast.
func (f *Fetcher) Close() {
	f.gate.Close()
}
