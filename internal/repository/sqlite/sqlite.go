// Package sqlite implements the repository interfaces on SQLite.
//
// WHY modernc.org/sqlite?
// It is a pure-Go translation of SQLite: no CGo, no C compiler, and the
// dev server cross-compiles like any other Go binary. The client's session
// store uses the same driver.
//
// WHY SQLITE FOR THE DEV SERVER?
// The backend exists so the CLI has something real to talk to, locally and
// in the end-to-end tests. A single file (or ":memory:") needs no database
// process, no credentials and no container. ":memory:" gives every test its
// own throwaway database.
//
// database/sql RECAP:
//   - sql.DB   is a pool, not a connection
//   - sql.Rows must be closed, or the connection never returns to the pool
//   - sql.ErrNoRows is how a missing row surfaces from QueryRow().Scan
//
// Repository methods translate sql.ErrNoRows into apperror.ErrNotFound so
// handlers never import database/sql.
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements every repository
// interface of the reference backend.
//
// WHY ONE STRUCT FOR USERS, JOBS AND INTERVIEWS?
// They share one pool and one schema, and the ownership checks join across
// tables. The server depends on the narrow interfaces in package repository,
// so tests can still swap in a fake per concern.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// WHY A SINGLE CONNECTION?
	// An in-memory database exists per connection: a second pooled
	// connection would open a second, empty database. The PRAGMAs below are
	// per-connection state as well. SQLite serialises writers anyway, so a
	// dev server loses nothing.
	conn.SetMaxOpenConns(1)

	// sql.Open only builds the pool. Ping surfaces a bad path or missing
	// permissions here instead of on the first request.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// WHY FOREIGN KEYS?
	// They are off by default in SQLite. With them on, deleting a job removes
	// its interview row through ON DELETE CASCADE, and deleting a user takes
	// their jobs along.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
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

// migrate creates the schema.
//
// WHY NO MIGRATION TOOL?
// The dev server's schema is small and only ever grows by new tables.
// CREATE ... IF NOT EXISTS makes every start idempotent, whether the file is
// new or was created by an earlier run. A schema change to an existing table
// would need a real migrator such as golang-migrate.
//
// date_applied and date stay TEXT: the API passes dates through verbatim as
// YYYY-MM-DD strings and the server never does date arithmetic on them.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			email         TEXT NOT NULL UNIQUE,
			name          TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS jobs (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id         INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title           TEXT NOT NULL,
			company         TEXT NOT NULL,
			date_applied    TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL DEFAULT '',
			notes           TEXT NOT NULL DEFAULT '',
			job_description TEXT,
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_jobs_user_id ON jobs(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating jobs table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS interviews (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id      INTEGER NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			date        TEXT NOT NULL DEFAULT '',
			interviewer TEXT NOT NULL DEFAULT '',
			prep_notes  TEXT NOT NULL DEFAULT '',
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_interviews_job_id ON interviews(job_id);
	`)
	if err != nil {
		return fmt.Errorf("creating interviews table: %w", err)
	}

	return nil
}
