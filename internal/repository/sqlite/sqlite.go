// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. Perfect for
// single-server deployments, development, and tests (use ":memory:").
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go translation
// of the SQLite C code — no C compiler needed, works everywhere Go works.
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB      — a connection pool (NOT a single connection!)
//   - sql.Tx      — a transaction
//   - sql.Rows    — multiple result rows (must be closed!)
package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/sakif/snippet-oracle/internal/repository"

	// The blank import registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// memoryPath is SQLite's special name for a private in-memory database.
const memoryPath = ":memory:"

var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and implements every repository interface.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/snippets.db"  → file-based database (persistent)
//   - ":memory:"          → in-memory database (great for tests, lost on close)
//
// PRAGMAS IN THE DSN:
// PRAGMA settings are per connection, and sql.DB opens connections lazily.
// Running "PRAGMA foreign_keys=ON" once with conn.Exec would only configure
// whichever pooled connection happened to run it. The driver's _pragma DSN
// parameters are applied to every new connection instead.
func New(dbPath string) (*DB, error) {
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if dbPath != memoryPath {
		// WAL lets readers proceed while a write is in progress.
		dsn += "&_pragma=journal_mode(WAL)"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate, empty database, so the
	// pool must never grow past one.
	if dbPath == memoryPath {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE ... IF NOT EXISTS makes it safe to run
// on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS snippets (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			name        TEXT NOT NULL,
			code        TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			user_id     INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_snippets_user_created ON snippets(user_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_snippets_name ON snippets(name);
	`)
	if err != nil {
		return fmt.Errorf("creating snippets table: %w", err)
	}

	// One row per (snippet, tag). The primary key doubles as the
	// de-duplication guarantee for a snippet's tag set.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS snippet_tags (
			snippet_id INTEGER NOT NULL REFERENCES snippets(id) ON DELETE CASCADE,
			tag        TEXT NOT NULL,
			PRIMARY KEY (snippet_id, tag)
		);
		CREATE INDEX IF NOT EXISTS idx_snippet_tags_tag ON snippet_tags(tag);
	`)
	if err != nil {
		return fmt.Errorf("creating snippet_tags table: %w", err)
	}

	return nil
}
