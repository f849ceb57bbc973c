// Package report renders crawl results and stored-data summaries.
//
// Three output formats are supported:
//   - Simple: human-readable text for terminal display
//   - JSON: machine-readable output for tool integration
//   - Markdown: documentation-friendly output with tables
//
// All writers implement the same Writer interface, and MultiWriter fans a
// report out to several destinations (typically terminal plus file).
package report
