package database

import (
	"testing"
	"time"
)

func openTestDB(t *testing.T) *CrawlDB {
	t.Helper()

	cdb, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Open(): %v", err)
	}
	t.Cleanup(func() {
		if err := cdb.Close(); err != nil {
			t.Errorf("Close(): %v", err)
		}
	})
	return cdb
}

func TestOpenRequiresExistingDatabase(t *testing.T) {
	t.Parallel()

	_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
	if err == nil {
		t.Fatal("Open() succeeded on a missing database without CreateIfNotExists")
	}
}

func TestBatchInsertAndLoadEdges(t *testing.T) {
	t.Parallel()

	cdb := openTestDB(t)
	ctx := t.Context()

	rows := [][]any{
		{"http://s.test/", "http://s.test/a", "a", "", 0, 0},
		{"http://s.test/", "http://x.test/", "x", "", 1, 0},
		{"http://s.test/a", "http://s.test/b", "b", "nofollow", 0, 0},
	}
	if err := cdb.BatchInsert(ctx, "links", rows); err != nil {
		t.Fatalf("BatchInsert(): %v", err)
	}

	edges, err := cdb.LoadInternalLinkEdges(ctx)
	if err != nil {
		t.Fatalf("LoadInternalLinkEdges(): %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("edges = %v, want 2 internal edges (external excluded)", edges)
	}
}

func TestBatchInsertUnknownTable(t *testing.T) {
	t.Parallel()

	cdb := openTestDB(t)
	if err := cdb.BatchInsert(t.Context(), "nonsense", [][]any{{1}}); err == nil {
		t.Fatal("BatchInsert() accepted an unknown table")
	}
}

func TestLoadRequestStatusesTakesMax(t *testing.T) {
	t.Parallel()

	cdb := openTestDB(t)
	ctx := t.Context()

	now := time.Now().UTC().Format(time.RFC3339)
	rows := [][]any{
		{"http://s.test/a", 200, "{}", 0.1, "{}", "null", now},
		{"http://s.test/a", 500, "{}", 0.2, "{}", "null", now},
		{"http://s.test/b", -1, "{}", 0.0, "{}", "null", now},
	}
	if err := cdb.BatchInsert(ctx, "requests", rows); err != nil {
		t.Fatalf("BatchInsert(): %v", err)
	}

	statuses, err := cdb.LoadRequestStatuses(ctx)
	if err != nil {
		t.Fatalf("LoadRequestStatuses(): %v", err)
	}
	if statuses["http://s.test/a"] != 500 {
		t.Errorf("a = %d, want 500 (max of observed)", statuses["http://s.test/a"])
	}
	if statuses["http://s.test/b"] != -1 {
		t.Errorf("b = %d, want -1 sentinel preserved", statuses["http://s.test/b"])
	}
}

func TestUpdateLinkStatuses(t *testing.T) {
	t.Parallel()

	cdb := openTestDB(t)
	ctx := t.Context()

	rows := [][]any{
		{"http://s.test/", "http://s.test/a", "a", "", 0, 0},
		{"http://s.test/", "http://s.test/b", "b", "", 0, 0},
		{"http://s.test/", "http://x.test/", "x", "", 1, 0},
	}
	if err := cdb.BatchInsert(ctx, "links", rows); err != nil {
		t.Fatalf("BatchInsert(): %v", err)
	}

	updated, err := cdb.UpdateLinkStatuses(ctx, map[string]int{
		"http://s.test/a": 404,
		"http://x.test/":  500,
	})
	if err != nil {
		t.Fatalf("UpdateLinkStatuses(): %v", err)
	}
	if updated != 1 {
		t.Errorf("updated = %d, want 1 (external rows untouched)", updated)
	}

	// Re-running with converged statuses is a no-op.
	updated, err = cdb.UpdateLinkStatuses(ctx, map[string]int{"http://s.test/a": 404})
	if err != nil {
		t.Fatalf("UpdateLinkStatuses() rerun: %v", err)
	}
	if updated != 0 {
		t.Errorf("rerun updated = %d, want 0", updated)
	}
}

func TestSummaryAggregates(t *testing.T) {
	t.Parallel()

	cdb := openTestDB(t)
	ctx := t.Context()

	now := time.Now().UTC().Format(time.RFC3339)
	pages := [][]any{
		{"http://s.test/", 200, "text/html", "<html></html>", now},
		{"http://s.test/a", 200, "text/html", "<html></html>", now},
	}
	if err := cdb.BatchInsert(ctx, "pages", pages); err != nil {
		t.Fatal(err)
	}

	links := [][]any{
		{"http://s.test/", "http://s.test/a", "a", "", 0, 200},
		{"http://s.test/", "http://s.test/gone", "g", "", 0, 404},
		{"http://s.test/", "http://x.test/", "x", "", 1, 0},
	}
	if err := cdb.BatchInsert(ctx, "links", links); err != nil {
		t.Fatal(err)
	}

	requests := [][]any{
		{"http://s.test/", 200, "{}", 0.2, "{}", "null", now},
		{"http://s.test/a", 200, "{}", 0.4, "{}", "null", now},
		{"http://s.test/gone", 404, "{}", 0.3, "{}", "null", now},
	}
	if err := cdb.BatchInsert(ctx, "requests", requests); err != nil {
		t.Fatal(err)
	}

	summary, err := cdb.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary(): %v", err)
	}

	if summary.Pages != 2 {
		t.Errorf("Pages = %d, want 2", summary.Pages)
	}
	if summary.InternalLinks != 2 || summary.ExternalLinks != 1 {
		t.Errorf("links = %d internal / %d external, want 2/1", summary.InternalLinks, summary.ExternalLinks)
	}
	if summary.BrokenLinks != 1 {
		t.Errorf("BrokenLinks = %d, want 1", summary.BrokenLinks)
	}
	if summary.Requests != 3 {
		t.Errorf("Requests = %d, want 3", summary.Requests)
	}
	if summary.StatusCounts[200] != 2 || summary.StatusCounts[404] != 1 {
		t.Errorf("StatusCounts = %v", summary.StatusCounts)
	}
	if summary.AvgElapsed < 0.29 || summary.AvgElapsed > 0.31 {
		t.Errorf("AvgElapsed = %f, want ~0.3", summary.AvgElapsed)
	}
}
