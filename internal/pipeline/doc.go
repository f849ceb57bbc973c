// Package pipeline provides a framework for executing crawl stages in
// sequence.
//
// A run against one target passes through up to three stages: the crawl
// itself, the status propagation pass over the stored link graph, and report
// generation. Each stage is a Step that receives the accumulated CrawlResult
// and can modify it.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows easy addition/removal of steps without modifying core logic
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context for long-running crawls
//
// The pipeline supports both individual runs and batch processing of several
// targets with concurrency control using errgroup.
package pipeline
