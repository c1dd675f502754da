package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteName is the name of the SQLite ledger inside a campaign directory.
const SQLiteName = "done.db"

// SQLitePath returns the SQLite ledger location for a campaign directory.
func SQLitePath(dir string) string {
	return filepath.Join(dir, SQLiteName)
}

const schema = `
CREATE TABLE IF NOT EXISTS done (
	seq     INTEGER PRIMARY KEY AUTOINCREMENT,
	id      TEXT NOT NULL UNIQUE,
	done_at TEXT NOT NULL
);`

// SQLite is a ledger kept in a SQLite database. Appends are individual
// transactions with synchronous=FULL, so an acknowledged append survives a
// crash.
type SQLite struct {
	path string
	db   *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		schema,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize ledger %s: %w", path, err)
		}
	}
	return &SQLite{path: path, db: db}, nil
}

func (l *SQLite) Load(ctx context.Context) ([]Entry, error) {
	return loadRows(ctx, l.db, l.path)
}

// ReadSQLite returns the entries of the database at path, opened read-only.
// A missing database holds no entries.
func ReadSQLite(ctx context.Context, path string) ([]Entry, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", path, err)
	}
	defer db.Close()
	return loadRows(ctx, db, path)
}

func loadRows(ctx context.Context, db *sql.DB, path string) ([]Entry, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, done_at FROM done ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger %s: %w", path, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e  Entry
			at string
		)
		if err := rows.Scan(&e.ID, &at); err != nil {
			return nil, fmt.Errorf("failed to read ledger %s: %w", path, err)
		}
		e.DoneAt, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("corrupt ledger %s: entry %q: %w", path, e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger %s: %w", path, err)
	}
	return entries, nil
}

// Append inserts e; an id that is already present is left untouched.
func (l *SQLite) Append(ctx context.Context, e Entry) error {
	_, err := l.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO done (id, done_at) VALUES (?, ?)",
		e.ID, e.DoneAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to append to ledger %s: %w", l.path, err)
	}
	return nil
}

func (l *SQLite) Reset(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, "DELETE FROM done"); err != nil {
		return fmt.Errorf("failed to reset ledger %s: %w", l.path, err)
	}
	return nil
}

func (l *SQLite) Close() error {
	return l.db.Close()
}
