package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Actions recorded in the history
const (
	ActionShred  = "SHRED"
	ActionDryRun = "DRY_RUN"
	ActionSkip   = "SKIP"
	ActionError  = "ERROR"
)

// ErasureDB manages the SQLite database for erasure history
type ErasureDB struct {
	db *sql.DB
}

// ErasureRecord represents a single erasure attempt
type ErasureRecord struct {
	ID           int64
	RunID        string
	Timestamp    time.Time
	Action       string
	ObjectType   string // file or directory
	Path         string
	FileName     string
	Size         int64
	Passes       int
	DurationMS   int64
	ErrorKind    string
	Operation    string
	ErrorMessage string
	CreatedAt    time.Time
}

// NewErasureDB opens (creating if needed) the history database at dbPath
func NewErasureDB(dbPath string) (*ErasureDB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// _loc=auto parses DATETIME columns back into time.Time
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// Forces creation of the file so permission problems surface here
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	edb := &ErasureDB{db: db}
	if err = edb.initSchema(); err != nil {
		return nil, err
	}
	return edb, nil
}

func (d *ErasureDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS erasures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		action TEXT NOT NULL,
		object_type TEXT NOT NULL,
		path TEXT NOT NULL,
		file_name TEXT,
		size INTEGER NOT NULL,
		passes INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,

		error_kind TEXT,
		operation TEXT,
		error_message TEXT,

		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_timestamp ON erasures(timestamp);
	CREATE INDEX IF NOT EXISTS idx_action ON erasures(action);
	CREATE INDEX IF NOT EXISTS idx_path ON erasures(path);
	CREATE INDEX IF NOT EXISTS idx_run_id ON erasures(run_id);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := d.db.Exec(schema)
	return err
}

// RecordErasure inserts one erasure attempt. A zero Timestamp means now and
// an empty FileName is derived from Path.
func (d *ErasureDB) RecordErasure(rec ErasureRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if rec.FileName == "" {
		rec.FileName = filepath.Base(rec.Path)
	}
	if rec.ObjectType == "" {
		rec.ObjectType = "file"
	}

	_, err := d.db.Exec(`
	INSERT INTO erasures (
		run_id, timestamp, action, object_type, path, file_name, size,
		passes, duration_ms, error_kind, operation, error_message
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.RunID,
		rec.Timestamp,
		rec.Action,
		rec.ObjectType,
		rec.Path,
		rec.FileName,
		rec.Size,
		rec.Passes,
		rec.DurationMS,
		nullString(rec.ErrorKind),
		nullString(rec.Operation),
		nullString(rec.ErrorMessage),
	)
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Close closes the database connection
func (d *ErasureDB) Close() error {
	return d.db.Close()
}

// Ping verifies the database is reachable
func (d *ErasureDB) Ping() error {
	return d.db.Ping()
}

// Vacuum compacts the database file
func (d *ErasureDB) Vacuum() error {
	_, err := d.db.Exec("VACUUM")
	return err
}

// GetDatabaseStats returns record counts, file size and date range
func (d *ErasureDB) GetDatabaseStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var totalRecords int64
	if err := d.db.QueryRow("SELECT COUNT(*) FROM erasures").Scan(&totalRecords); err != nil {
		return nil, err
	}
	stats["total_records"] = totalRecords

	var pageCount, pageSize int64
	if err := d.db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, err
	}
	if err := d.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, err
	}
	stats["database_size_bytes"] = pageCount * pageSize

	var oldest, newest sql.NullString
	err := d.db.QueryRow("SELECT MIN(timestamp), MAX(timestamp) FROM erasures").Scan(&oldest, &newest)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if t, ok := parseTimestamp(oldest); ok {
		stats["oldest_record"] = t
	}
	if t, ok := parseTimestamp(newest); ok {
		stats["newest_record"] = t
	}

	return stats, nil
}

// Aggregates come back as text, in whatever layout the driver stored.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func parseTimestamp(s sql.NullString) (time.Time, bool) {
	if !s.Valid || s.String == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s.String); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
