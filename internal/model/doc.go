// Package model defines the data types shared across the crawl engine.
//
// The types mirror the three logical storage tables (pages, links, requests)
// plus the in-flight fetch result. Components communicate through these types
// rather than loosely-typed maps so that transport-level error sentinels can
// never be confused with real HTTP status codes.
package model
