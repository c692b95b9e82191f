package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/newsledger/internal/model"
)

// SQLiteLedger stores visits in a SQLite database.
//
// Monotonicity is enforced by the database itself: the upsert only replaces
// a row when the incoming timestamp is strictly newer, so concurrent writers
// for the same source cannot regress it and writers for different sources
// touch different rows.
type SQLiteLedger struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// SQLiteOptions configures SQLiteLedger behavior.
type SQLiteOptions struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	// When false, opening a missing database is an error.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool

	// BusyTimeout is how long a writer waits for the database lock.
	BusyTimeout time.Duration
}

// DefaultSQLiteOptions returns the default database options.
func DefaultSQLiteOptions() SQLiteOptions {
	return SQLiteOptions{
		CreateIfNotExists: true,
		EnableWAL:         true,
		BusyTimeout:       5 * time.Second,
	}
}

// OpenSQLiteLedger opens or creates the ledger database at dbPath.
func OpenSQLiteLedger(ctx context.Context, dbPath string, opts SQLiteOptions) (*SQLiteLedger, error) {
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, storageErr("open", "", fmt.Errorf("failed to create database directory: %w", err))
		}
	} else if _, err := os.Stat(dbPath); err != nil {
		return nil, storageErr("open", "", fmt.Errorf("database not found at %s: %w", dbPath, err))
	}

	// modernc.org/sqlite: mode=rwc allows creation, mode=rw requires the file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}
	if opts.BusyTimeout > 0 {
		dsn += fmt.Sprintf("&_pragma=busy_timeout(%d)", opts.BusyTimeout.Milliseconds())
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storageErr("open", "", fmt.Errorf("failed to open database: %w", err))
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	l := &SQLiteLedger{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck // already failing
			return nil, storageErr("open", "", fmt.Errorf("failed to enable WAL mode: %w", err))
		}
	}

	if err := l.createTables(ctx); err != nil {
		_ = db.Close() //nolint:errcheck // already failing
		return nil, storageErr("open", "", fmt.Errorf("failed to create tables: %w", err))
	}

	return l, nil
}

// Path returns the database file location.
func (l *SQLiteLedger) Path() string {
	return l.dbPath
}

// Close closes the database connection.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (l *SQLiteLedger) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS visits (
		source_id TEXT PRIMARY KEY,
		last_visited_at INTEGER NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := l.db.ExecContext(ctx, schema)
	return err
}

// Get returns the last recorded visit for id.
func (l *SQLiteLedger) Get(ctx context.Context, id model.SourceID) (model.Timestamp, bool, error) {
	var ms int64
	err := l.db.QueryRowContext(ctx,
		`SELECT last_visited_at FROM visits WHERE source_id = ?`, string(id),
	).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, storageErr("get", id, err)
	}
	return model.Timestamp(ms), true, nil
}

// RecordVisit advances the visit for id to ts if ts is newer.
func (l *SQLiteLedger) RecordVisit(ctx context.Context, id model.SourceID, ts model.Timestamp) error {
	if id == "" {
		return ErrEmptySourceID
	}

	query := `
	INSERT INTO visits (source_id, last_visited_at)
	VALUES (?, ?)
	ON CONFLICT(source_id) DO UPDATE SET
		last_visited_at = excluded.last_visited_at,
		updated_at = CURRENT_TIMESTAMP
	WHERE excluded.last_visited_at > visits.last_visited_at
	`
	if _, err := l.db.ExecContext(ctx, query, string(id), int64(ts)); err != nil {
		return storageErr("record", id, err)
	}
	return nil
}

// List returns every record sorted by source id.
func (l *SQLiteLedger) List(ctx context.Context) ([]model.VisitRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT source_id, last_visited_at FROM visits ORDER BY source_id`)
	if err != nil {
		return nil, storageErr("list", "", err)
	}
	defer rows.Close()

	records := make([]model.VisitRecord, 0)
	for rows.Next() {
		var (
			id string
			ms int64
		)
		if err := rows.Scan(&id, &ms); err != nil {
			return nil, storageErr("list", "", err)
		}
		records = append(records, model.VisitRecord{
			SourceID:      model.SourceID(id),
			LastVisitedAt: model.Timestamp(ms),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list", "", err)
	}
	return records, nil
}
