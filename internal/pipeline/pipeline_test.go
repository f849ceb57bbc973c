package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/danielmulder/webpiper/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingStep is a test step that records its execution order and can
// optionally fail.
type recordingStep struct {
	name string
	err  error
	log  *[]string
}

func (s *recordingStep) Name() string { return s.name }

func (s *recordingStep) Do(ctx context.Context, result *model.CrawlResult) error {
	*s.log = append(*s.log, s.name)
	return s.err
}

func TestPipelineExecutesStepsInOrder(t *testing.T) {
	t.Parallel()

	var order []string
	p := New(WithLogger(discardLogger()))
	p.AddSteps(
		&recordingStep{name: "first", log: &order},
		&recordingStep{name: "second", log: &order},
		&recordingStep{name: "third", log: &order},
	)

	result := &model.CrawlResult{Target: "http://site.test"}
	if err := p.Execute(t.Context(), result); err != nil {
		t.Fatalf("Execute(): %v", err)
	}

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("executed %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
	if len(result.PerformedSteps) != 3 {
		t.Errorf("PerformedSteps = %v, want 3 entries", result.PerformedSteps)
	}
}

func TestPipelineStopsOnError(t *testing.T) {
	t.Parallel()

	var order []string
	stepErr := errors.New("crawl failed")

	p := New(WithLogger(discardLogger()))
	p.AddSteps(
		&recordingStep{name: "first", err: stepErr, log: &order},
		&recordingStep{name: "second", log: &order},
	)

	result := &model.CrawlResult{}
	err := p.Execute(t.Context(), result)

	if !errors.Is(err, stepErr) {
		t.Fatalf("Execute() error = %v, want %v", err, stepErr)
	}
	if len(order) != 1 {
		t.Errorf("executed %v, want only the failing step", order)
	}
	if !errors.Is(result.Err, stepErr) {
		t.Errorf("result.Err = %v, want step error recorded", result.Err)
	}
}

func TestPipelineContinueOnError(t *testing.T) {
	t.Parallel()

	var order []string
	p := New(WithLogger(discardLogger()), WithContinueOnError(true))
	p.AddSteps(
		&recordingStep{name: "first", err: errors.New("soft failure"), log: &order},
		&recordingStep{name: "second", log: &order},
	)

	result := &model.CrawlResult{}
	if err := p.Execute(t.Context(), result); err != nil {
		t.Fatalf("Execute(): %v", err)
	}
	if len(order) != 2 {
		t.Errorf("executed %v, want both steps", order)
	}
	if result.Err == nil {
		t.Error("result.Err = nil, want soft failure recorded")
	}
}

func TestPipelineRespectsCancellation(t *testing.T) {
	t.Parallel()

	var order []string
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(WithLogger(discardLogger()))
	p.AddStep(&recordingStep{name: "never", log: &order})

	err := p.Execute(ctx, &model.CrawlResult{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v, want context.Canceled", err)
	}
	if len(order) != 0 {
		t.Errorf("executed %v after cancellation, want none", order)
	}
}

func TestPipelineStepNames(t *testing.T) {
	t.Parallel()

	var order []string
	p := New(WithLogger(discardLogger()))
	p.AddSteps(
		&recordingStep{name: "crawl", log: &order},
		&recordingStep{name: "report", log: &order},
	)

	names := p.StepNames()
	if p.StepCount() != 2 || names[0] != "crawl" || names[1] != "report" {
		t.Errorf("StepNames() = %v", names)
	}
}

func TestBatchProcessorRunsAllTargets(t *testing.T) {
	t.Parallel()

	var order []string
	factory := func() *Pipeline {
		p := New(WithLogger(discardLogger()))
		p.AddStep(&recordingStep{name: "crawl", log: &order})
		return p
	}

	bp := NewBatchProcessor(factory,
		WithBatchLogger(discardLogger()),
		WithConcurrency(1),
	)

	targets := []string{"http://a.test", "http://b.test", "http://c.test"}
	results, err := bp.ProcessBatch(t.Context(), targets)
	if err != nil {
		t.Fatalf("ProcessBatch(): %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	for i, result := range results {
		if result == nil {
			t.Fatalf("results[%d] = nil", i)
		}
		if result.Target != targets[i] {
			t.Errorf("results[%d].Target = %q, want %q (order preserved)", i, result.Target, targets[i])
		}
	}
}

func TestBatchProcessorContinuesPastFailures(t *testing.T) {
	t.Parallel()

	var order []string
	var calls int
	factory := func() *Pipeline {
		calls++
		p := New(WithLogger(discardLogger()))
		if calls == 1 {
			p.AddStep(&recordingStep{name: "crawl", err: errors.New("boom"), log: &order})
		} else {
			p.AddStep(&recordingStep{name: "crawl", log: &order})
		}
		return p
	}

	bp := NewBatchProcessor(factory,
		WithBatchLogger(discardLogger()),
		WithConcurrency(1),
	)

	results, err := bp.ProcessBatch(t.Context(), []string{"http://a.test", "http://b.test"})
	if err != nil {
		t.Fatalf("ProcessBatch(): %v", err)
	}

	if results[0].Err == nil {
		t.Error("results[0].Err = nil, want recorded failure")
	}
	if results[1].Err != nil {
		t.Errorf("results[1].Err = %v, want nil", results[1].Err)
	}
}
