package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/docmirror/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "docmirror.db"

// HistoryDB provides SQLite-based storage for crawl runs.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error
// wrapping ErrNotFound is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	// Concurrent docmirror processes share one file; wait for their locks.
	if _, err := db.ExecContext(context.Background(), "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		base_url TEXT NOT NULL,
		method TEXT NOT NULL,
		output_dir TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		converted INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		pending INTEGER DEFAULT 0,
		cancelled INTEGER DEFAULT 0,
		summary_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_base_url ON runs(base_url);

	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		status TEXT NOT NULL,
		status_code INTEGER,
		output_path TEXT,
		title TEXT,
		error TEXT,
		hash TEXT,
		fetched_at TEXT,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunInfo is the stored summary line of one run, used for listings
// without loading every page.
type RunInfo struct {
	ID         int64
	BaseURL    string
	Method     string
	OutputDir  string
	StartedAt  time.Time
	FinishedAt time.Time
	Converted  int
	Failed     int
	Skipped    int
	Pending    int
	Cancelled  bool
}

// Duration returns how long the run took, or zero if it never finished.
func (r RunInfo) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// SaveRun stores summary and its page records in one transaction and
// returns the new run id. A URL recorded twice for the same run keeps the
// last record.
func (hdb *HistoryDB) SaveRun(ctx context.Context, summary *model.Summary) (int64, error) {
	// Records live in the pages table.
	stored := *summary
	stored.Records = nil
	summaryJSON, err := json.Marshal(&stored)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize summary: %w", err)
	}

	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after Commit

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (base_url, method, output_dir, started_at, finished_at,
		converted, failed, skipped, pending, cancelled, summary_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		summary.BaseURL,
		summary.Method,
		summary.OutputDir,
		formatTimestamp(summary.StartedAt),
		formatTimestamp(summary.FinishedAt),
		summary.Converted,
		summary.FailedTotal(),
		summary.SkippedTotal(),
		len(summary.Pending),
		summary.Cancelled,
		string(summaryJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO pages (run_id, url, status, status_code, output_path, title, error, hash, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO UPDATE SET
		status = excluded.status,
		status_code = excluded.status_code,
		output_path = excluded.output_path,
		title = excluded.title,
		error = excluded.error,
		hash = excluded.hash,
		fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range summary.Records {
		if _, err := stmt.ExecContext(ctx,
			runID,
			r.URL,
			r.Status,
			r.StatusCode,
			r.OutputPath,
			r.Title,
			r.Error,
			r.Hash,
			formatTimestamp(r.FetchedAt),
		); err != nil {
			return 0, fmt.Errorf("failed to insert page %s: %w", r.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run.
func (hdb *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	query := `
	SELECT id, base_url, method, output_dir, started_at, finished_at,
		converted, failed, skipped, pending, cancelled
	FROM runs
	ORDER BY id DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var info RunInfo
		var startedAt string
		var finishedAt sql.NullString

		if err := rows.Scan(
			&info.ID,
			&info.BaseURL,
			&info.Method,
			&info.OutputDir,
			&startedAt,
			&finishedAt,
			&info.Converted,
			&info.Failed,
			&info.Skipped,
			&info.Pending,
			&info.Cancelled,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		info.StartedAt = parseTimestamp(startedAt)
		info.FinishedAt = parseTimestamp(finishedAt.String)
		runs = append(runs, info)
	}

	return runs, rows.Err()
}

// GetRun returns the stored summary of run id with its page records.
func (hdb *HistoryDB) GetRun(ctx context.Context, id int64) (*model.Summary, error) {
	var summaryJSON string
	err := hdb.db.QueryRowContext(ctx, `SELECT summary_json FROM runs WHERE id = ?`, id).Scan(&summaryJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var summary model.Summary
	if err := json.Unmarshal([]byte(summaryJSON), &summary); err != nil {
		return nil, fmt.Errorf("failed to parse run %d: %w", id, err)
	}

	records, err := hdb.ListPages(ctx, id)
	if err != nil {
		return nil, err
	}
	summary.Records = records
	return &summary, nil
}

// ListPages returns the page records of run id in insertion order.
func (hdb *HistoryDB) ListPages(ctx context.Context, runID int64) ([]model.PageRecord, error) {
	rows, err := hdb.db.QueryContext(ctx, `
	SELECT url, status, status_code, output_path, title, error, hash, fetched_at
	FROM pages
	WHERE run_id = ?
	ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	var records []model.PageRecord
	for rows.Next() {
		var r model.PageRecord
		var statusCode sql.NullInt64
		var outputPath, title, errMsg, hash, fetchedAt sql.NullString

		if err := rows.Scan(
			&r.URL,
			&r.Status,
			&statusCode,
			&outputPath,
			&title,
			&errMsg,
			&hash,
			&fetchedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		r.StatusCode = int(statusCode.Int64)
		r.OutputPath = outputPath.String
		r.Title = title.String
		r.Error = errMsg.String
		r.Hash = hash.String
		r.FetchedAt = parseTimestamp(fetchedAt.String)
		records = append(records, r)
	}

	return records, rows.Err()
}

// runExists reports whether run id is stored.
func (hdb *HistoryDB) runExists(ctx context.Context, id int64) error {
	var n int
	if err := hdb.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("failed to check run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	return nil
}

// formatTimestamp stores times in UTC with nanoseconds. The zero time is
// stored as an empty string.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
