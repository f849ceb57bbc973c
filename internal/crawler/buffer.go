package crawler

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/danielmulder/webpiper/internal/model"
)

// Store is the persistence surface the buffer manager writes to.
// Implemented by database.CrawlDB.
type Store interface {
	BatchInsert(ctx context.Context, table string, rows [][]any) error
}

// BufferManager accumulates crawl output in memory and flushes it to the
// store in batches. Adds are cheap mutex-guarded appends; flushes snapshot
// and clear the buffers, then write in the background so the crawl never
// waits on the database.
type BufferManager struct {
	store    Store
	logger   *slog.Logger
	skipSave bool

	mu       sync.Mutex
	pages    []model.Page
	links    []model.Link
	requests []model.RequestLog

	// flushMu makes flushes single-flight: a periodic flush that fires while
	// a previous one is still snapshotting is skipped, not queued.
	flushMu sync.Mutex

	writes sync.WaitGroup
}

// NewBufferManager creates a buffer manager writing to store.
// When skipSave is set, flushes discard the buffered data.
func NewBufferManager(store Store, skipSave bool, logger *slog.Logger) *BufferManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &BufferManager{
		store:    store,
		logger:   logger,
		skipSave: skipSave,
	}
}

// AddPage buffers a crawled page.
func (b *BufferManager) AddPage(p model.Page) {
	b.mu.Lock()
	b.pages = append(b.pages, p)
	b.mu.Unlock()
}

// AddLinks buffers a batch of extracted links.
func (b *BufferManager) AddLinks(links []model.Link) {
	if len(links) == 0 {
		return
	}
	b.mu.Lock()
	b.links = append(b.links, links...)
	b.mu.Unlock()
}

// AddRequest buffers a request log row.
func (b *BufferManager) AddRequest(r model.RequestLog) {
	b.mu.Lock()
	b.requests = append(b.requests, r)
	b.mu.Unlock()
}

// Flush snapshots the buffers and writes them to the store in background
// goroutines. A flush already in progress makes this call a no-op.
func (b *BufferManager) Flush(ctx context.Context) {
	if !b.flushMu.TryLock() {
		return
	}
	defer b.flushMu.Unlock()
	b.flush(ctx)
}

// FlushSync flushes and waits for all background writes, including those
// started by earlier flushes. Called once at the end of a run.
func (b *BufferManager) FlushSync(ctx context.Context) {
	b.flushMu.Lock()
	b.flush(ctx)
	b.flushMu.Unlock()
	b.writes.Wait()
}

func (b *BufferManager) flush(ctx context.Context) {
	b.mu.Lock()
	pages := b.pages
	links := b.links
	requests := b.requests
	b.pages = nil
	b.links = nil
	b.requests = nil
	b.mu.Unlock()

	if len(pages) == 0 && len(links) == 0 && len(requests) == 0 {
		return
	}
	if b.skipSave || b.store == nil {
		b.logger.Debug("flush skipped",
			"pages", len(pages),
			"links", len(links),
			"requests", len(requests),
		)
		return
	}

	b.logger.Debug("flushing buffers",
		"pages", len(pages),
		"links", len(links),
		"requests", len(requests),
	)

	b.write(ctx, "pages", pageRows(pages))
	b.write(ctx, "links", linkRows(links))
	b.write(ctx, "requests", requestRows(requests))
}

func (b *BufferManager) write(ctx context.Context, table string, rows [][]any) {
	if len(rows) == 0 {
		return
	}
	b.writes.Add(1)
	go func() {
		defer b.writes.Done()
		if err := b.store.BatchInsert(ctx, table, rows); err != nil {
			b.logger.Error("batch insert failed",
				"table", table,
				"rows", len(rows),
				"error", err,
			)
		}
	}()
}

// RunPeriodic flushes on the given interval until ctx is cancelled.
func (b *BufferManager) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Flush(ctx)
		}
	}
}

// Row builders keep column order in one place, matched by the INSERT
// statements in the database package.

func pageRows(pages []model.Page) [][]any {
	rows := make([][]any, 0, len(pages))
	for _, p := range pages {
		rows = append(rows, []any{
			p.URL,
			p.StatusCode,
			p.ContentType,
			p.Content,
			p.CrawledAt.Format(time.RFC3339),
		})
	}
	return rows
}

func linkRows(links []model.Link) [][]any {
	rows := make([][]any, 0, len(links))
	for _, l := range links {
		rows = append(rows, []any{
			l.SourceURL,
			l.TargetURL,
			l.Anchor,
			l.Rel,
			boolToInt(l.IsExternal),
			l.StatusCode,
		})
	}
	return rows
}

func requestRows(requests []model.RequestLog) [][]any {
	rows := make([][]any, 0, len(requests))
	for _, r := range requests {
		rows = append(rows, []any{
			r.URL,
			r.StatusCode,
			asJSON(r.Headers),
			r.ElapsedTime,
			asJSON(r.Timers),
			asJSON(r.RedirectChain),
			r.CreatedAt.Format(time.RFC3339),
		})
	}
	return rows
}

// asJSON serializes v for a TEXT column. Marshal failures degrade to "null";
// the row is still written with its scalar columns intact.
func asJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
