// Package crawler implements the crawl engine: the URL frontier, the worker
// pool that drains it, link extraction and classification, write buffering,
// and the controller that ties them to the fetch service.
//
// The frontier tracks pending work the way a counting queue does: every
// enqueued URL must be balanced by exactly one TaskDone call, whether the
// visit succeeded, failed or was skipped. Join returns when the count hits
// zero, which is the natural termination signal for an unbounded discovery
// crawl. Bounded crawls terminate through the stop event instead, raised by
// the first worker that accepts the final page.
//
// All persistence goes through the buffer manager, which accumulates pages,
// links and request logs in memory and flushes them to storage in batches,
// so the hot crawl path never waits on the database.
package crawler
