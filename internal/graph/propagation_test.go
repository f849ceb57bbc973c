package graph

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPropagateErrorChain(t *testing.T) {
	t.Parallel()

	g := New(discardLogger())
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	g.SetStatus("A", 500)

	g.Propagate()

	statuses := g.Statuses()
	if statuses["B"] != 500 {
		t.Errorf("B = %d, want 500 inherited from A", statuses["B"])
	}
	if statuses["C"] != 500 {
		t.Errorf("C = %d, want 500 inherited through B", statuses["C"])
	}
}

func TestPropagateHigherStatusWins(t *testing.T) {
	t.Parallel()

	g := New(discardLogger())
	g.AddEdge("A", "C")
	g.AddEdge("B", "C")
	g.SetStatus("A", 301)
	g.SetStatus("B", 404)
	g.SetStatus("C", 200)

	g.Propagate()

	if got := g.Statuses()["C"]; got != 404 {
		t.Errorf("C = %d, want 404 (highest incoming status)", got)
	}
}

func TestPropagateLeavesHealthyGraphAlone(t *testing.T) {
	t.Parallel()

	g := New(discardLogger())
	g.AddEdge("A", "B")
	g.SetStatus("A", 200)
	g.SetStatus("B", 200)

	if raised := g.Propagate(); raised != 0 {
		t.Errorf("Propagate() raised %d nodes in an all-200 graph, want 0", raised)
	}
}

func TestPropagateIdempotent(t *testing.T) {
	t.Parallel()

	g := New(discardLogger())
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	g.AddEdge("C", "A")
	g.SetStatus("A", 500)
	g.SetStatus("C", 301)

	g.Propagate()
	first := maps.Clone(g.Statuses())

	raised := g.Propagate()

	if raised != 0 {
		t.Errorf("second Propagate() raised %d nodes, want 0", raised)
	}
	if !maps.Equal(first, g.Statuses()) {
		t.Errorf("statuses changed on re-run: %v then %v", first, g.Statuses())
	}
}

func TestPropagateCycleTerminates(t *testing.T) {
	t.Parallel()

	g := New(discardLogger())
	g.AddEdge("A", "B")
	g.AddEdge("B", "A")
	g.SetStatus("A", 500)

	g.Propagate()

	if got := g.Statuses()["B"]; got != 500 {
		t.Errorf("B = %d, want 500", got)
	}
}

func TestSetStatusIgnoresSentinels(t *testing.T) {
	t.Parallel()

	g := New(discardLogger())
	g.SetStatus("A", 200)
	g.SetStatus("A", -1)

	if got := g.Statuses()["A"]; got != 200 {
		t.Errorf("A = %d, want 200 (sentinel must not overwrite)", got)
	}
}

func TestSeedFallbackDoesNotOverride(t *testing.T) {
	t.Parallel()

	g := New(discardLogger())
	g.SetStatus("A", 301)
	g.SeedFallback("A", 200)
	g.SeedFallback("B", 200)

	if got := g.Statuses()["A"]; got != 301 {
		t.Errorf("A = %d, want 301 (request status takes precedence)", got)
	}
	if got := g.Statuses()["B"]; got != 200 {
		t.Errorf("B = %d, want 200 from fallback", got)
	}
}

type fakeGraphStore struct {
	edges    [][2]string
	requests map[string]int
	pages    map[string]int

	written map[string]int
}

func (s *fakeGraphStore) LoadInternalLinkEdges(ctx context.Context) ([][2]string, error) {
	return s.edges, nil
}

func (s *fakeGraphStore) LoadRequestStatuses(ctx context.Context) (map[string]int, error) {
	return s.requests, nil
}

func (s *fakeGraphStore) LoadPageStatuses(ctx context.Context) (map[string]int, error) {
	return s.pages, nil
}

func (s *fakeGraphStore) UpdateLinkStatuses(ctx context.Context, statuses map[string]int) (int, error) {
	s.written = statuses
	return len(statuses), nil
}

func TestPropagatorRun(t *testing.T) {
	t.Parallel()

	store := &fakeGraphStore{
		edges: [][2]string{
			{"http://s.test/", "http://s.test/a"},
			{"http://s.test/a", "http://s.test/b"},
		},
		requests: map[string]int{
			"http://s.test/":  200,
			"http://s.test/a": 500,
		},
		pages: map[string]int{
			"http://s.test/": 200,
		},
	}

	p := NewPropagator(store, discardLogger())
	result, err := p.Run(t.Context())
	if err != nil {
		t.Fatalf("Run(): %v", err)
	}

	if store.written["http://s.test/b"] != 500 {
		t.Errorf("b = %d, want 500 inherited from a", store.written["http://s.test/b"])
	}
	if result.Nodes != 3 {
		t.Errorf("Nodes = %d, want 3", result.Nodes)
	}
	if result.Edges != 2 {
		t.Errorf("Edges = %d, want 2", result.Edges)
	}
	if result.Raised != 1 {
		t.Errorf("Raised = %d, want 1", result.Raised)
	}
}
