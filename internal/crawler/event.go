package crawler

import "sync"

// Event is a resettable one-to-many signal flag. Workers poll it between
// URLs to honor stop and pause requests; Wait blocks until the flag is set.
type Event struct {
	mu  sync.Mutex
	ch  chan struct{}
	set bool
}

// NewEvent creates an Event in the cleared state.
func NewEvent() *Event {
	return &Event{ch: make(chan struct{})}
}

// Set raises the flag and releases all current and future Wait calls.
func (e *Event) Set() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.set {
		e.set = true
		close(e.ch)
	}
}

// Clear lowers the flag again.
func (e *Event) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.set {
		e.set = false
		e.ch = make(chan struct{})
	}
}

// IsSet reports whether the flag is raised.
func (e *Event) IsSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set
}

// Done returns a channel that is closed while the flag is raised.
// The channel is only valid until the next Clear.
func (e *Event) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ch
}
