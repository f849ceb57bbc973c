package crawler

import (
	"context"
	"errors"
	"sync"
)

// ErrFrontierClosed is returned by Enqueue and Dequeue after Close.
var ErrFrontierClosed = errors.New("crawler: frontier closed")

// Frontier is a FIFO work queue with pending-task accounting.
//
// pending counts URLs that have been enqueued but not yet marked done; it is
// decremented by TaskDone, not by Dequeue, so a URL stays "pending" while a
// worker processes it. Join blocks until pending reaches zero.
type Frontier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []string
	pending int
	closed  bool
}

// NewFrontier creates an empty frontier.
func NewFrontier() *Frontier {
	f := &Frontier{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Enqueue appends a URL and increments the pending count.
func (f *Frontier) Enqueue(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrFrontierClosed
	}
	f.queue = append(f.queue, url)
	f.pending++
	f.cond.Broadcast()
	return nil
}

// Dequeue removes and returns the oldest URL, blocking until one is
// available, the frontier is closed, or ctx is cancelled.
func (f *Frontier) Dequeue(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.queue) == 0 {
		if f.closed {
			return "", ErrFrontierClosed
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		f.cond.Wait()
	}

	url := f.queue[0]
	f.queue = f.queue[1:]
	return url, nil
}

// TaskDone marks one dequeued URL as fully processed. Every Enqueue must be
// balanced by exactly one TaskDone; going negative is a caller bug and panics
// rather than deadlocking Join.
func (f *Frontier) TaskDone() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pending--
	if f.pending < 0 {
		panic("crawler: TaskDone called more times than Enqueue")
	}
	if f.pending == 0 {
		f.cond.Broadcast()
	}
}

// Join blocks until all enqueued URLs have been marked done or ctx is
// cancelled.
func (f *Frontier) Join(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for f.pending > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.closed {
			return nil
		}
		f.cond.Wait()
	}
	return nil
}

// Pending returns the current pending count.
func (f *Frontier) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

// Len returns the number of queued, not yet dequeued URLs.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Close wakes all blocked Dequeue and Join callers. Queued URLs are dropped.
func (f *Frontier) Close() {
	f.mu.Lock()
	f.closed = true
	f.queue = nil
	f.mu.Unlock()
	f.cond.Broadcast()
}
