package fetch

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/danielmulder/webpiper/internal/config"
	"github.com/danielmulder/webpiper/internal/model"
)

// ErrGateClosed is returned by Acquire after the fetcher has been shut down.
var ErrGateClosed = errors.New("fetch: concurrency gate closed")

// backoffFloor is the lowest value the breaker backoff can decay to.
// Successes shrink the backoff, but never below this.
const backoffFloor = 2 * time.Second

// smartCapFloor is the lowest learned ceiling. Even a host that rejected us
// at concurrency 1 gets a few slots to probe with once it recovers.
const smartCapFloor = 3

// gate is the self-tuning concurrency limiter plus circuit breaker.
//
// All mutable state is guarded by mu; waiters block on cond and re-check
// their predicate (and context) on every wakeup. A waiter that abandons the
// wait because its context was cancelled signals the cond again: Release
// wakes exactly one waiter, and that wakeup must reach a live one.
type gate struct {
	mu   sync.Mutex
	cond *sync.Cond

	active   int
	limit    int
	smartCap int
	hardCap  int
	history  []int

	breakerOpen bool
	consecutive int
	threshold   int
	backoff     time.Duration
	maxBackoff  time.Duration
	damping     float64

	closed bool

	// tripMu serializes breaker trips. TryLock-guarded so that rate-limit
	// signals arriving during a trip are dropped instead of queueing up.
	tripMu sync.Mutex

	logger *slog.Logger
}

func newGate(cfg *config.Config, logger *slog.Logger) *gate {
	g := &gate{
		limit:      cfg.Concurrency,
		smartCap:   cfg.Concurrency,
		hardCap:    cfg.Concurrency,
		threshold:  cfg.RateLimitThreshold,
		backoff:    cfg.InitialBackoff,
		maxBackoff: cfg.MaxBackoff,
		damping:    cfg.UpDamping,
		logger:     logger,
	}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Acquire blocks until a slot is free within the dynamic limit and the
// circuit breaker is closed, then takes the slot.
func (g *gate) Acquire(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		if g.closed {
			return ErrGateClosed
		}
		if err := ctx.Err(); err != nil {
			// This waiter may have consumed a Release wakeup. Hand it on
			// so another waiter is not stranded.
			g.cond.Signal()
			return err
		}
		if g.active < g.limit && !g.breakerOpen {
			break
		}
		g.cond.Wait()
	}
	g.active++
	return nil
}

// Release frees a slot and wakes one waiter.
func (g *gate) Release() {
	g.mu.Lock()
	g.active--
	g.mu.Unlock()
	g.cond.Signal()
}

// AwaitClosed blocks while the circuit breaker is open. The redirect walker
// uses it so chain hops do not hammer a host that just rejected us.
func (g *gate) AwaitClosed(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for g.breakerOpen {
		if g.closed {
			return ErrGateClosed
		}
		if err := ctx.Err(); err != nil {
			g.cond.Signal()
			return err
		}
		g.cond.Wait()
	}
	return nil
}

// OnSuccess records a 200 response: the consecutive rate-limit counter
// resets, the breaker backoff decays, and - with small probability, only
// when the limit is actually saturated - the limit rises by one towards the
// smart ceiling.
func (g *gate) OnSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.consecutive = 0
	decayed := time.Duration(float64(g.backoff) * 0.9)
	if decayed < backoffFloor {
		decayed = backoffFloor
	}
	g.backoff = decayed

	if g.active < g.limit {
		// Not saturated; raising the limit would be untested headroom.
		return
	}
	if g.limit < g.smartCap && rand.Float64() < g.damping {
		g.limit++
		g.logger.Debug("throttling up",
			"limit", g.limit,
			"smart_cap", g.smartCap,
		)
	}
}

// OnRateLimited handles a 429/503 signal. The concurrency limit is halved on
// the first sign of trouble; only sustained rejection trips the breaker,
// which suspends all acquisition for the current backoff. Call it in its own
// goroutine: the backoff sleep must not block the fetch that observed the
// signal.
func (g *gate) OnRateLimited(ctx context.Context) {
	if !g.tripMu.TryLock() {
		return
	}
	defer g.tripMu.Unlock()

	g.mu.Lock()
	if g.breakerOpen || g.closed {
		g.mu.Unlock()
		return
	}

	oldLimit := g.limit
	g.learnCeiling(oldLimit)
	g.limit = oldLimit / 2
	if g.limit < 1 {
		g.limit = 1
	}
	if g.limit > g.smartCap {
		g.limit = g.smartCap
	}
	if oldLimit != g.limit {
		g.logger.Warn("throttling down",
			"old_limit", oldLimit,
			"limit", g.limit,
			"smart_cap", g.smartCap,
		)
	}

	g.consecutive++
	if g.consecutive < g.threshold {
		g.mu.Unlock()
		return
	}

	g.breakerOpen = true
	wait := g.backoff
	grown := time.Duration(float64(g.backoff) * 1.5)
	if grown > g.maxBackoff {
		grown = g.maxBackoff
	}
	g.backoff = grown
	active := g.active
	g.mu.Unlock()

	g.logger.Warn("circuit breaker tripped",
		"backoff", wait,
		"active_requests", active,
	)

	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}

	g.mu.Lock()
	g.consecutive = 0
	g.breakerOpen = false
	g.mu.Unlock()
	g.cond.Broadcast()

	g.logger.Info("circuit breaker reset")
}

// learnCeiling folds a new failure point into the running average and
// derives the smart ceiling from it. Caller holds mu.
//
// The history has no decay: old trip points keep weighing on the average.
// Whether transient congestion should eventually be forgotten is a policy
// choice; this keeps the conservative behavior.
func (g *gate) learnCeiling(crashPoint int) {
	g.history = append(g.history, crashPoint)

	sum := 0
	for _, p := range g.history {
		sum += p
	}
	cap := sum / len(g.history)
	if cap < smartCapFloor {
		cap = smartCapFloor
	}
	if cap > g.hardCap {
		cap = g.hardCap
	}
	g.smartCap = cap

	g.logger.Warn("smart ceiling updated",
		"crash_point", crashPoint,
		"smart_cap", g.smartCap,
		"failures", len(g.history),
	)
}

// Limit returns the current dynamic limit.
func (g *gate) Limit() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.limit
}

// Close permanently shuts the gate and wakes every waiter.
func (g *gate) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.cond.Broadcast()
}

// ConcurrencySnapshot returns a copy of the limiter state for logs and tests.
func (g *gate) ConcurrencySnapshot() model.ConcurrencyState {
	g.mu.Lock()
	defer g.mu.Unlock()
	history := make([]int, len(g.history))
	copy(history, g.history)
	return model.ConcurrencyState{
		Limit:          g.limit,
		Active:         g.active,
		SmartCap:       g.smartCap,
		HardCap:        g.hardCap,
		FailureHistory: history,
	}
}

// CircuitSnapshot returns a copy of the breaker state.
func (g *gate) CircuitSnapshot() model.CircuitState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return model.CircuitState{
		Open:                  g.breakerOpen,
		ConsecutiveRateLimits: g.consecutive,
		Backoff:               g.backoff,
	}
}
