// Package database provides SQLite-based storage for crawl data.
//
// This package implements the CrawlDB, which stores:
//   - Pages accepted during a crawl
//   - Link rows for every anchor discovered on those pages
//   - Request logs, the append-only audit trail of every fetch attempt
//
// Design decision: We use SQLite (via modernc.org/sqlite) because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
//
// The crawl engine itself only requires the batch-insert contract; the query
// methods serve the propagation pass and the report command.
package database
