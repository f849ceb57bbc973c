package report

import (
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/danielmulder/webpiper/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because:
// 1. It's part of the standard library (no extra dependencies)
// 2. It's sufficient for our needs
// 3. It provides consistent behavior across Go versions
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables pretty-printed JSON output.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// jsonReport is the serialized shape. The in-memory types carry
// non-marshalable fields (error values), so the writer maps them explicitly.
type jsonReport struct {
	Target  string       `json:"target,omitempty"`
	Run     *jsonRun     `json:"run,omitempty"`
	Summary *jsonSummary `json:"summary,omitempty"`
}

type jsonRun struct {
	PagesCrawled    int     `json:"pages_crawled"`
	RequestFailures int     `json:"request_failures"`
	URLsDiscovered  int     `json:"urls_discovered"`
	Capped          bool    `json:"capped"`
	DurationSeconds float64 `json:"duration_seconds"`
	PagesPerSecond  float64 `json:"pages_per_second"`
	PropagatedLinks int     `json:"propagated_links,omitempty"`
	Error           string  `json:"error,omitempty"`
}

type jsonSummary struct {
	Pages         int            `json:"pages"`
	InternalLinks int            `json:"internal_links"`
	ExternalLinks int            `json:"external_links"`
	BrokenLinks   int            `json:"broken_links"`
	Requests      int            `json:"requests"`
	StatusCounts  map[string]int `json:"status_counts"`
	AvgElapsed    float64        `json:"avg_elapsed_seconds"`
	GeneratedAt   time.Time      `json:"generated_at"`
}

// Write outputs the report as JSON.
func (w *JSONWriter) Write(report *Report) (int, error) {
	out := jsonReport{Target: report.Target}

	if r := report.Result; r != nil {
		run := &jsonRun{
			PagesCrawled:    r.PagesCrawled,
			RequestFailures: r.RequestFailures,
			URLsDiscovered:  r.URLsDiscovered,
			Capped:          r.Capped,
			DurationSeconds: r.Duration.Seconds(),
			PagesPerSecond:  r.PagesPerSecond(),
			PropagatedLinks: r.PropagatedLinks,
		}
		if r.Err != nil {
			run.Error = r.Err.Error()
		}
		out.Run = run
	}

	if s := report.Summary; s != nil {
		out.Summary = &jsonSummary{
			Pages:         s.Pages,
			InternalLinks: s.InternalLinks,
			ExternalLinks: s.ExternalLinks,
			BrokenLinks:   s.BrokenLinks,
			Requests:      s.Requests,
			StatusCounts:  statusKeys(s.StatusCounts),
			AvgElapsed:    s.AvgElapsed,
			GeneratedAt:   s.GeneratedAt,
		}
	}

	var data []byte
	var err error
	if w.indent {
		data, err = json.MarshalIndent(out, "", "  ")
	} else {
		data, err = json.Marshal(out)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')

	return w.output.Write(data)
}

// statusKeys converts int status keys to strings; JSON object keys must be
// strings and "-1" round-trips better than a lossy re-encode.
func statusKeys(counts map[int]int) map[string]int {
	out := make(map[string]int, len(counts))
	for code, n := range counts {
		out[jsonStatusLabel(code)] = n
	}
	return out
}

func jsonStatusLabel(code int) string {
	switch code {
	case model.StatusTransportError:
		return "transport_error"
	case model.StatusInternalError:
		return "internal_error"
	case model.StatusContentRejected:
		return "content_rejected"
	default:
		return strconv.Itoa(code)
	}
}
