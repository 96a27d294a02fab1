package filecache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS files (
	path    TEXT PRIMARY KEY,
	size    INTEGER NOT NULL,
	outcome INTEGER NOT NULL
) WITHOUT ROWID;
`

const sqliteUpsert = `
INSERT INTO files (path, size, outcome) VALUES (?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
	size = excluded.size,
	outcome = excluded.outcome
`

// SQLiteStore keeps the cache in an embedded SQLite database in WAL mode.
// Each save is a single transaction.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

// NewSQLiteStore opens or creates the database at path. Failure to open an
// existing file as a database wraps ErrCorrupt.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	err := os.MkdirAll(filepath.Dir(path), 0o750)
	if err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}

	// A single connection serializes writers; lookups are served from memory.
	conn.SetMaxOpenConns(1)

	store := &SQLiteStore{conn: conn, path: path}

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout=5000",
		sqliteSchema,
	} {
		_, execErr := conn.ExecContext(ctx, stmt)
		if execErr != nil {
			_ = conn.Close()

			return nil, fmt.Errorf("%w: initialize sqlite cache %s: %w", ErrCorrupt, path, execErr)
		}
	}

	return store, nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context) ([]Record, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT path, size, outcome FROM files`)
	if err != nil {
		return nil, fmt.Errorf("%w: query files: %w", ErrCorrupt, err)
	}
	defer rows.Close()

	var records []Record

	for rows.Next() {
		var (
			rec     Record
			outcome int64
		)

		scanErr := rows.Scan(&rec.Path, &rec.Size, &outcome)
		if scanErr != nil {
			return nil, fmt.Errorf("%w: scan file row: %w", ErrCorrupt, scanErr)
		}

		if outcome < int64(OutcomeUnchanged) || outcome > int64(OutcomeFailed) {
			return nil, fmt.Errorf("%w: invalid outcome %d for %q", ErrCorrupt, outcome, rec.Path)
		}

		rec.Outcome = Outcome(outcome)
		records = append(records, rec)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("%w: iterate files: %w", ErrCorrupt, err)
	}

	return records, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, records []Record) (err error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, sqliteUpsert)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err = stmt.ExecContext(ctx, rec.Path, rec.Size, int64(rec.Outcome))
		if err != nil {
			return fmt.Errorf("upsert %s: %w", rec.Path, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Reset implements Store.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx, `DELETE FROM files`)
	if err != nil {
		return fmt.Errorf("delete files: %w", err)
	}

	return nil
}

// Location implements Store.
func (s *SQLiteStore) Location() string {
	return s.path
}

// Close checkpoints the WAL and closes the database.
func (s *SQLiteStore) Close() error {
	if s.conn == nil {
		return nil
	}

	_, _ = s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")

	err := s.conn.Close()
	s.conn = nil

	if err != nil {
		return fmt.Errorf("close sqlite cache: %w", err)
	}

	return nil
}
