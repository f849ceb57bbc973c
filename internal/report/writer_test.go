package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/danielmulder/webpiper/internal/model"
)

func testReport() *Report {
	return &Report{
		Target: "http://site.test",
		Result: &model.CrawlResult{
			Target:          "http://site.test",
			PagesCrawled:    12,
			RequestFailures: 2,
			URLsDiscovered:  20,
			Capped:          false,
			Duration:        3 * time.Second,
		},
		Summary: &model.CrawlSummary{
			Pages:         12,
			InternalLinks: 30,
			ExternalLinks: 5,
			Requests:      14,
			StatusCounts: map[int]int{
				200: 12,
				404: 1,
				-1:  1,
			},
			BrokenLinks: 1,
			AvgElapsed:  0.25,
			GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n, err := NewSimpleWriter(&buf).Write(testReport())
	if err != nil {
		t.Fatalf("Write(): %v", err)
	}
	if n != buf.Len() {
		t.Errorf("Write() = %d bytes, buffer has %d", n, buf.Len())
	}

	out := buf.String()
	for _, want := range []string{
		"http://site.test",
		"Pages crawled:    12",
		"Request failures: 2",
		"Broken links:   1",
		"transport error",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewJSONWriter(&buf).Write(testReport()); err != nil {
		t.Fatalf("Write(): %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}

	run, ok := decoded["run"].(map[string]any)
	if !ok {
		t.Fatalf("run section missing: %v", decoded)
	}
	if run["pages_crawled"] != float64(12) {
		t.Errorf("pages_crawled = %v, want 12", run["pages_crawled"])
	}

	summary, ok := decoded["summary"].(map[string]any)
	if !ok {
		t.Fatalf("summary section missing: %v", decoded)
	}
	counts, ok := summary["status_counts"].(map[string]any)
	if !ok {
		t.Fatalf("status_counts missing: %v", summary)
	}
	if counts["transport_error"] != float64(1) {
		t.Errorf("transport_error count = %v, want 1", counts["transport_error"])
	}
}

func TestJSONWriterPrettyPrint(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(testReport()); err != nil {
		t.Fatalf("Write(): %v", err)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("pretty-printed output has no indentation")
	}
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(testReport()); err != nil {
		t.Fatalf("Write(): %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# Crawl Report",
		"## Run",
		"## Stored Data",
		"## Status Codes",
		"mermaid",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestMarkdownWriterReportsError(t *testing.T) {
	t.Parallel()

	report := testReport()
	report.Result.Err = errors.New("propagation failed")

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
		t.Fatalf("Write(): %v", err)
	}
	if !strings.Contains(buf.String(), "propagation failed") {
		t.Error("error not surfaced in markdown output")
	}
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	mw := NewMultiWriter(NewSimpleWriter(&a), NewSimpleWriter(&b))
	if _, err := mw.Write(testReport()); err != nil {
		t.Fatalf("Write(): %v", err)
	}

	if a.Len() == 0 || b.Len() == 0 {
		t.Error("MultiWriter did not write to all destinations")
	}
	if a.String() != b.String() {
		t.Error("MultiWriter outputs differ")
	}
}

func TestWritersHandleSummaryOnlyReport(t *testing.T) {
	t.Parallel()

	report := testReport()
	report.Result = nil

	writers := map[string]Writer{
		"simple":   NewSimpleWriter(&bytes.Buffer{}),
		"json":     NewJSONWriter(&bytes.Buffer{}),
		"markdown": NewMarkdownWriter(&bytes.Buffer{}),
	}
	for name, w := range writers {
		if _, err := w.Write(report); err != nil {
			t.Errorf("%s Write() with nil Result: %v", name, err)
		}
	}
}
