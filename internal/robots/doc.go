// Package robots evaluates robots.txt rules for crawl targets.
//
// Rules are fetched once per origin and cached for the lifetime of the run.
// Evaluation fails open: when robots.txt cannot be retrieved or parsed, the
// crawl proceeds, because an unreachable robots.txt must not silence a crawl
// that the operator explicitly requested.
package robots
