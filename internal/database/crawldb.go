package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/danielmulder/webpiper/internal/model"
)

// DBFileName is the SQLite database file name inside the data directory.
const DBFileName = "webpiper.db"

// CrawlDB provides SQLite-based storage for crawl data.
// It manages connection pooling and implements the batch-insert contract the
// buffer manager writes through, plus the queries the propagation pass and
// the report command read through.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; a single pooled connection avoids
	// SQLITE_BUSY churn between the concurrent flush goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- Pages accepted during a crawl
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		status_code INTEGER,
		content_type TEXT,
		content TEXT,
		crawled_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	CREATE INDEX IF NOT EXISTS idx_pages_status ON pages(status_code);

	-- One row per anchor discovered on an accepted page
	CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_url TEXT NOT NULL,
		target_url TEXT NOT NULL,
		anchor TEXT,
		rel TEXT,
		is_external INTEGER NOT NULL DEFAULT 0,
		status_code INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_links_source ON links(source_url);
	CREATE INDEX IF NOT EXISTS idx_links_target ON links(target_url);
	CREATE INDEX IF NOT EXISTS idx_links_external ON links(is_external);

	-- Append-only audit trail of every fetch attempt
	CREATE TABLE IF NOT EXISTS requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		status_code INTEGER,
		headers TEXT,
		elapsed_time REAL,
		timers TEXT,
		redirect_chain TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_requests_url ON requests(url);
	CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status_code);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// insertStatements maps table name to its INSERT statement. Column order
// matches the row builders in the crawler package's buffer manager.
var insertStatements = map[string]string{
	"pages": `INSERT INTO pages (url, status_code, content_type, content, crawled_at)
		VALUES (?, ?, ?, ?, ?)`,
	"links": `INSERT INTO links (source_url, target_url, anchor, rel, is_external, status_code)
		VALUES (?, ?, ?, ?, ?, ?)`,
	"requests": `INSERT INTO requests (url, status_code, headers, elapsed_time, timers, redirect_chain, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
}

// BatchInsert writes rows into the named table inside a single transaction.
// This is the contract the buffer manager flushes through.
func (cdb *CrawlDB) BatchInsert(ctx context.Context, table string, rows [][]any) error {
	query, ok := insertStatements[table]
	if !ok {
		return fmt.Errorf("unknown table %q", table)
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert for %s: %w", table, err)
	}
	defer stmt.Close() //nolint:errcheck

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}

	return tx.Commit()
}

// LoadInternalLinkEdges returns (source, target) pairs for all stored
// internal links. Input to the propagation graph.
func (cdb *CrawlDB) LoadInternalLinkEdges(ctx context.Context) ([][2]string, error) {
	query := `
	SELECT DISTINCT source_url, target_url FROM links
	WHERE is_external = 0
	`

	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load link edges: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var edges [][2]string
	for rows.Next() {
		var source, target string
		if err := rows.Scan(&source, &target); err != nil {
			return nil, fmt.Errorf("failed to scan link edge: %w", err)
		}
		edges = append(edges, [2]string{source, target})
	}

	return edges, rows.Err()
}

// LoadRequestStatuses returns the highest observed request status per URL.
func (cdb *CrawlDB) LoadRequestStatuses(ctx context.Context) (map[string]int, error) {
	query := `
	SELECT url, MAX(status_code) FROM requests
	GROUP BY url
	`
	return cdb.loadStatusMap(ctx, query, "request statuses")
}

// LoadPageStatuses returns the stored page status per URL.
func (cdb *CrawlDB) LoadPageStatuses(ctx context.Context) (map[string]int, error) {
	query := `
	SELECT url, MAX(status_code) FROM pages
	GROUP BY url
	`
	return cdb.loadStatusMap(ctx, query, "page statuses")
}

func (cdb *CrawlDB) loadStatusMap(ctx context.Context, query, what string) (map[string]int, error) {
	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", what, err)
	}
	defer rows.Close() //nolint:errcheck

	statuses := make(map[string]int)
	for rows.Next() {
		var url string
		var status sql.NullInt64
		if err := rows.Scan(&url, &status); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", what, err)
		}
		if status.Valid {
			statuses[url] = int(status.Int64)
		}
	}

	return statuses, rows.Err()
}

// UpdateLinkStatuses back-fills propagated statuses onto link rows by target
// URL and returns the number of rows updated.
func (cdb *CrawlDB) UpdateLinkStatuses(ctx context.Context, statuses map[string]int) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
	UPDATE links SET status_code = ?
	WHERE target_url = ? AND is_external = 0 AND status_code != ?
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare link update: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	total := 0
	for url, status := range statuses {
		result, err := stmt.ExecContext(ctx, status, url, status)
		if err != nil {
			return 0, fmt.Errorf("failed to update link status: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to count updated links: %w", err)
		}
		total += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}

// Summary aggregates the stored tables into the figures the report command
// renders. It reads only persisted data, never in-memory crawl state.
func (cdb *CrawlDB) Summary(ctx context.Context) (*model.CrawlSummary, error) {
	summary := &model.CrawlSummary{
		StatusCounts: make(map[int]int),
		GeneratedAt:  time.Now().UTC(),
	}

	if err := cdb.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pages`).Scan(&summary.Pages); err != nil {
		return nil, fmt.Errorf("failed to count pages: %w", err)
	}

	if err := cdb.db.QueryRowContext(ctx, `
	SELECT
		COUNT(CASE WHEN is_external = 0 THEN 1 END),
		COUNT(CASE WHEN is_external = 1 THEN 1 END),
		COUNT(CASE WHEN is_external = 0 AND status_code >= 400 THEN 1 END)
	FROM links
	`).Scan(&summary.InternalLinks, &summary.ExternalLinks, &summary.BrokenLinks); err != nil {
		return nil, fmt.Errorf("failed to count links: %w", err)
	}

	var avg sql.NullFloat64
	if err := cdb.db.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(elapsed_time) FROM requests`).Scan(&summary.Requests, &avg); err != nil {
		return nil, fmt.Errorf("failed to count requests: %w", err)
	}
	if avg.Valid {
		summary.AvgElapsed = avg.Float64
	}

	rows, err := cdb.db.QueryContext(ctx, `
	SELECT status_code, COUNT(*) FROM requests
	GROUP BY status_code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count statuses: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var status, count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		summary.StatusCounts[status] = count
	}

	return summary, rows.Err()
}
