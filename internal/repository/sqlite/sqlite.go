// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// DOCUMENT-STYLE ROWS:
// The follow sets on accounts and the comment sequence on posts are stored
// as JSON arrays in TEXT columns rather than join tables. An account row or
// a post row is one self-contained document, which is exactly how the data
// is read and written: the feed query only needs set membership on post_by,
// and comments are never addressed outside their post. SQLite's json_each
// table-valued function gives us set-membership queries over the JSON
// columns where the graph cleanup needs them.
//
// The price of denormalization is that nothing in the schema enforces the
// symmetry of the follow relation — that invariant is maintained by the
// service layer, and the two-row writes it needs are wrapped in transactions
// here so a crash cannot leave one side of an edge applied.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which needs a C compiler and makes
// cross-compilation painful. modernc.org/sqlite is a pure Go translation of
// the SQLite sources — works everywhere Go works.
package sqlite

import (
	"database/sql"
	"fmt"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements both
// repository.AccountRepository and repository.PostRepository.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/social.db" → file-based database (persistent)
//   - ":memory:"       → in-memory database (great for tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every pool connection to ":memory:" gets its OWN empty database,
	// so the pool must be pinned to a single connection for in-memory use
	// (tests) or queries would randomly see an unmigrated database.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// Ping forces an immediate connection so a bad path or permissions
	// problem surfaces here rather than on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is in progress —
	// necessary for a web server where requests hit the DB in parallel.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool. Call it (usually deferred)
// wherever New succeeded, so WAL contents are flushed on shutdown.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps this safe to
// run on every start.
//
// accounts.following / accounts.followers and posts.comments are JSON
// arrays serialized into TEXT columns — see the package comment.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			name          TEXT NOT NULL UNIQUE,
			following     TEXT NOT NULL DEFAULT '[]',
			followers     TEXT NOT NULL DEFAULT '[]',
			created_at    DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating accounts table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id       TEXT PRIMARY KEY,
			text     TEXT NOT NULL,
			post_by  TEXT NOT NULL,
			date     DATETIME NOT NULL,
			comments TEXT NOT NULL DEFAULT '[]'
		);
		CREATE INDEX IF NOT EXISTS idx_posts_post_by ON posts(post_by);
		CREATE INDEX IF NOT EXISTS idx_posts_date ON posts(date);
	`)
	if err != nil {
		return fmt.Errorf("creating posts table: %w", err)
	}

	return nil
}
