package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Processor handles one dequeued URL. Implemented by the Controller; split
// out so the pool can be tested without a full crawl stack.
type Processor interface {
	ProcessURL(ctx context.Context, url string) error
}

// Pool runs a fixed set of workers that drain a frontier through a Processor.
//
// A worker checks the stop event before every URL and exits when it is set.
// Pause holds workers between URLs without losing queued work. A panic while
// processing is confined to that one URL; the worker logs it, marks the task
// done and moves on.
type Pool struct {
	frontier *Frontier
	proc     Processor
	workers  int
	stop     *Event
	pause    *Event
	logger   *slog.Logger

	wg sync.WaitGroup
}

// NewPool creates a pool of n workers. The pool does not start until Run.
func NewPool(n int, frontier *Frontier, proc Processor, stop, pause *Event, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		frontier: frontier,
		proc:     proc,
		workers:  n,
		stop:     stop,
		pause:    pause,
		logger:   logger,
	}
}

// Run starts the workers and returns immediately. Wait blocks until they
// have all exited.
func (p *Pool) Run(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.work(ctx, id)
		}(i)
	}
}

// Wait blocks until all workers have exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) work(ctx context.Context, id int) {
	logger := p.logger.With("worker", id)

	for {
		if p.stop.IsSet() || ctx.Err() != nil {
			return
		}

		if p.pause.IsSet() {
			// Pause is an operator action, not a hot path; polling is fine.
			select {
			case <-ctx.Done():
				return
			case <-p.stop.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
			continue
		}

		url, err := p.frontier.Dequeue(ctx)
		if err != nil {
			if !errors.Is(err, ErrFrontierClosed) && !errors.Is(err, context.Canceled) {
				logger.Error("dequeue failed", "error", err)
			}
			return
		}

		p.process(ctx, logger, url)
		p.frontier.TaskDone()
	}
}

// process runs one URL with panic isolation.
func (p *Pool) process(ctx context.Context, logger *slog.Logger, url string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("worker panic recovered",
				"url", url,
				"panic", fmt.Sprintf("%v", r),
			)
		}
	}()

	if err := p.proc.ProcessURL(ctx, url); err != nil {
		logger.Debug("url processing failed", "url", url, "error", err)
	}
}
