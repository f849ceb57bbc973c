// Package main provides the entry point for the webpiper CLI.
//
// Webpiper is an adaptive site crawler. It discovers and fetches pages with a
// self-tuning concurrency limit, records pages, links and request audits in a
// local SQLite database, and back-fills link statuses from the request log.
//
// Usage:
//
//	webpiper crawl https://example.com
//	webpiper crawl --mode sitemap --list urls.txt https://example.com
//
// See --help for all available options.
package main

// main is the entry point for webpiper.
func main() {
	Execute()
}
