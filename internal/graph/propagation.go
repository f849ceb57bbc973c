package graph

import "log/slog"

// Graph is the transient propagation structure: internal link edges plus the
// per-URL status map. Built fresh for one propagation run and discarded.
// Not safe for concurrent use; it has a single owner by construction.
type Graph struct {
	edges    map[string]map[string]struct{}
	statuses map[string]int
	logger   *slog.Logger
}

// New creates an empty propagation graph.
func New(logger *slog.Logger) *Graph {
	if logger == nil {
		logger = slog.Default()
	}
	return &Graph{
		edges:    make(map[string]map[string]struct{}),
		statuses: make(map[string]int),
		logger:   logger,
	}
}

// AddEdge records an internal link from source to target. Both endpoints get
// a status placeholder so the worklist can reach them.
func (g *Graph) AddEdge(source, target string) {
	if g.edges[source] == nil {
		g.edges[source] = make(map[string]struct{})
	}
	g.edges[source][target] = struct{}{}

	if _, ok := g.statuses[source]; !ok {
		g.statuses[source] = 0
	}
	if _, ok := g.statuses[target]; !ok {
		g.statuses[target] = 0
	}
}

// SetStatus seeds an observed status for a URL. Non-positive statuses
// (transport sentinels) only reserve the node; they never overwrite a real
// HTTP code. A higher code replaces a lower one, so seeding order does not
// matter.
func (g *Graph) SetStatus(url string, status int) {
	if status <= 0 {
		if _, ok := g.statuses[url]; !ok {
			g.statuses[url] = 0
		}
		return
	}
	if status > g.statuses[url] {
		g.statuses[url] = status
	}
}

// SeedFallback seeds a status only for URLs with no observed status yet.
// Used for page-table statuses, which lose to direct request observations.
func (g *Graph) SeedFallback(url string, status int) {
	if status <= 0 {
		return
	}
	if g.statuses[url] == 0 {
		g.statuses[url] = status
	}
}

// Propagate pushes statuses along edges until the graph converges: every
// node ends up carrying the highest status reachable from it via the seeded
// sources. Returns the number of nodes whose status was raised.
//
// Termination: statuses only ever increase and are bounded, so each node can
// be re-enqueued at most a bounded number of times. The iteration cap is a
// guard against a bug, not part of the algorithm.
func (g *Graph) Propagate() int {
	queue := make([]string, 0, len(g.statuses))
	inQueue := make(map[string]bool, len(g.statuses))
	for url, status := range g.statuses {
		if status > 0 {
			queue = append(queue, url)
			inQueue[url] = true
		}
	}

	maxIterations := 2*len(g.statuses) + 1000
	iterations := 0
	raised := make(map[string]bool)

	for len(queue) > 0 {
		iterations++
		if iterations > maxIterations {
			g.logger.Warn("propagation iteration cap hit",
				"iterations", iterations,
				"nodes", len(g.statuses),
			)
			break
		}

		url := queue[0]
		queue = queue[1:]
		inQueue[url] = false

		status := g.statuses[url]
		for target := range g.edges[url] {
			if status <= g.statuses[target] {
				continue
			}
			g.statuses[target] = status
			raised[target] = true
			if !inQueue[target] {
				queue = append(queue, target)
				inQueue[target] = true
			}
		}
	}

	return len(raised)
}

// Statuses returns the converged status map. The caller must not mutate it
// while continuing to use the graph.
func (g *Graph) Statuses() map[string]int {
	return g.statuses
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.statuses)
}
