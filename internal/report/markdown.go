package report

import (
	"io"
	"sort"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/danielmulder/webpiper/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	if report.Result != nil {
		w.writeRun(md, report.Result)
	}
	if report.Summary != nil {
		w.writeSummary(md, report.Summary)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *Report) {
	md.H1("Crawl Report")
	md.PlainText("")
	if report.Target != "" {
		md.PlainTextf("Target: `%s`", report.Target)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeRun(md *markdown.Markdown, result *model.CrawlResult) {
	md.H2("Run")
	md.PlainText("")

	status := "✅ Complete"
	if result.Capped {
		status = "⚠️ Stopped at page cap"
	}
	if result.Err != nil {
		status = "❌ Error - " + result.Err.Error()
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Pages crawled", strconv.Itoa(result.PagesCrawled)},
			{"Request failures", strconv.Itoa(result.RequestFailures)},
			{"URLs discovered", strconv.Itoa(result.URLsDiscovered)},
			{"Duration", result.Duration.String()},
			{"Throughput", strconv.FormatFloat(result.PagesPerSecond(), 'f', 2, 64) + " pages/s"},
			{"Status", status},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, summary *model.CrawlSummary) {
	md.H2("Stored Data")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Pages", strconv.Itoa(summary.Pages)},
			{"Internal links", strconv.Itoa(summary.InternalLinks)},
			{"External links", strconv.Itoa(summary.ExternalLinks)},
			{"Broken links", strconv.Itoa(summary.BrokenLinks)},
			{"Requests", strconv.Itoa(summary.Requests)},
		},
	})
	md.PlainText("")

	if summary.BrokenLinks > 0 {
		md.Warningf("%d internal link(s) point at pages with status 400 or worse.", summary.BrokenLinks)
	} else {
		md.Tip("No broken internal links detected.")
	}
	md.PlainText("")

	w.writeStatusCounts(md, summary.StatusCounts)
}

func (w *MarkdownWriter) writeStatusCounts(md *markdown.Markdown, counts map[int]int) {
	if len(counts) == 0 {
		return
	}

	md.H2("Status Codes")
	md.PlainText("")

	codes := make([]int, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	rows := make([][]string, 0, len(codes))
	for _, code := range codes {
		rows = append(rows, []string{jsonStatusLabel(code), strconv.Itoa(counts[code])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Status", "Requests"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, codes, counts)
}

// writePieChart writes a mermaid pie chart of the status distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, codes []int, counts map[int]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Request Status Distribution"),
		piechart.WithShowData(true),
	)
	for _, code := range codes {
		if counts[code] > 0 {
			chart.LabelAndIntValue(jsonStatusLabel(code), uint64(counts[code]))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by webpiper*")
}
