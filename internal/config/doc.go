// Package config provides configuration structures and utilities for webpiper.
// It defines the crawl engine tunables, the per-site override file format,
// and report generation preferences.
package config
