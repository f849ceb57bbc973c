package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/danielmulder/webpiper/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer) *SimpleWriter {
	return &SimpleWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *Report) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	if report.Result != nil {
		w.writeRun(&sb, report.Result)
	}
	if report.Summary != nil {
		w.writeSummary(&sb, report.Summary)
	}

	return fmt.Fprint(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *Report) {
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	sb.WriteString("Crawl Report")
	if report.Target != "" {
		sb.WriteString(": " + report.Target)
	}
	sb.WriteString("\n" + strings.Repeat("=", 60) + "\n\n")
}

func (w *SimpleWriter) writeRun(sb *strings.Builder, result *model.CrawlResult) {
	sb.WriteString("Run\n---\n")
	fmt.Fprintf(sb, "  Pages crawled:    %d\n", result.PagesCrawled)
	fmt.Fprintf(sb, "  Request failures: %d\n", result.RequestFailures)
	fmt.Fprintf(sb, "  URLs discovered:  %d\n", result.URLsDiscovered)
	fmt.Fprintf(sb, "  Duration:         %s\n", result.Duration.Round(10*time.Millisecond))
	fmt.Fprintf(sb, "  Throughput:       %.2f pages/s\n", result.PagesPerSecond())
	if result.Capped {
		sb.WriteString("  Stopped at the configured page cap.\n")
	}
	if result.PropagatedLinks > 0 {
		fmt.Fprintf(sb, "  Propagated links: %d\n", result.PropagatedLinks)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, summary *model.CrawlSummary) {
	sb.WriteString("Stored Data\n-----------\n")
	fmt.Fprintf(sb, "  Pages:          %d\n", summary.Pages)
	fmt.Fprintf(sb, "  Internal links: %d\n", summary.InternalLinks)
	fmt.Fprintf(sb, "  External links: %d\n", summary.ExternalLinks)
	fmt.Fprintf(sb, "  Broken links:   %d\n", summary.BrokenLinks)
	fmt.Fprintf(sb, "  Requests:       %d\n", summary.Requests)
	fmt.Fprintf(sb, "  Avg elapsed:    %.3fs\n", summary.AvgElapsed)

	if len(summary.StatusCounts) > 0 {
		sb.WriteString("\nStatus Codes\n------------\n")
		codes := make([]int, 0, len(summary.StatusCounts))
		for code := range summary.StatusCounts {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		for _, code := range codes {
			fmt.Fprintf(sb, "  %s%d\n", padStatus(code), summary.StatusCounts[code])
		}
	}
	sb.WriteString("\n")
}

// padStatus formats a status code left-aligned in a fixed column, labeling
// the negative sentinels so the report stays readable.
func padStatus(code int) string {
	label := fmt.Sprintf("%d", code)
	switch code {
	case model.StatusTransportError:
		label = "transport error"
	case model.StatusInternalError:
		label = "internal error"
	case model.StatusContentRejected:
		label = "content rejected"
	}
	return fmt.Sprintf("%-18s", label+":")
}
