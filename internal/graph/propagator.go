package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Store is the persistence surface the propagator reads from and writes to.
// Implemented by database.CrawlDB.
type Store interface {
	// LoadInternalLinkEdges returns (source, target) pairs for stored
	// internal links.
	LoadInternalLinkEdges(ctx context.Context) ([][2]string, error)

	// LoadRequestStatuses returns the last observed request status per URL.
	LoadRequestStatuses(ctx context.Context) (map[string]int, error)

	// LoadPageStatuses returns the stored page status per URL.
	LoadPageStatuses(ctx context.Context) (map[string]int, error)

	// UpdateLinkStatuses back-fills the given statuses onto link rows by
	// target URL and returns the number of rows updated.
	UpdateLinkStatuses(ctx context.Context, statuses map[string]int) (int, error)
}

// Result summarizes one propagation run.
type Result struct {
	Nodes        int
	Edges        int
	Raised       int
	LinksUpdated int
	Duration     time.Duration
}

// Propagator runs the status propagation pass against stored crawl data.
type Propagator struct {
	store  Store
	logger *slog.Logger
}

// NewPropagator creates a Propagator over the given store.
func NewPropagator(store Store, logger *slog.Logger) *Propagator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Propagator{store: store, logger: logger}
}

// Run loads the stored link graph, propagates statuses across it and writes
// the converged statuses back onto the link rows.
func (p *Propagator) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	edges, err := p.store.LoadInternalLinkEdges(ctx)
	if err != nil {
		return nil, fmt.Errorf("load link edges: %w", err)
	}
	requestStatuses, err := p.store.LoadRequestStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("load request statuses: %w", err)
	}
	pageStatuses, err := p.store.LoadPageStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("load page statuses: %w", err)
	}

	g := New(p.logger)
	for _, edge := range edges {
		g.AddEdge(edge[0], edge[1])
	}
	for url, status := range requestStatuses {
		g.SetStatus(url, status)
	}
	// Page statuses only fill gaps; a direct request observation wins.
	for url, status := range pageStatuses {
		g.SeedFallback(url, status)
	}

	raised := g.Propagate()

	final := make(map[string]int, g.Len())
	for url, status := range g.Statuses() {
		if status > 0 {
			final[url] = status
		}
	}

	updated, err := p.store.UpdateLinkStatuses(ctx, final)
	if err != nil {
		return nil, fmt.Errorf("update link statuses: %w", err)
	}

	result := &Result{
		Nodes:        g.Len(),
		Edges:        len(edges),
		Raised:       raised,
		LinksUpdated: updated,
		Duration:     time.Since(start),
	}

	p.logger.Info("status propagation finished",
		"nodes", result.Nodes,
		"edges", result.Edges,
		"raised", result.Raised,
		"links_updated", result.LinksUpdated,
		"duration", result.Duration.Round(time.Millisecond),
	)
	return result, nil
}
