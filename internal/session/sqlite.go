package session

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the pure-Go "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// SQLitePersister stores the session entries in a single-table SQLite file.
//
// WHY SQLITE FOR TWO KEYS?
// The token and user must be written atomically. A transaction gives us that
// for free, and the same driver already backs the reference server. A
// plain JSON file would need write-to-temp + rename to get the same
// guarantee.
type SQLitePersister struct {
	conn *sql.DB
}

// compile-time check that *SQLitePersister implements Persister
var _ Persister = (*SQLitePersister)(nil)

// OpenSQLitePersister opens (or creates) the session database at path.
// Use ":memory:" in tests.
func OpenSQLitePersister(path string) (*SQLitePersister, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session: opening database: %w", err)
	}

	// An in-memory database lives and dies with its connection, so pin the
	// pool to one connection or each new one would see an empty schema.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("session: pinging database: %w", err)
	}

	if _, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS session_entries (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("session: creating session_entries table: %w", err)
	}

	return &SQLitePersister{conn: conn}, nil
}

// Close closes the underlying database.
func (p *SQLitePersister) Close() error {
	return p.conn.Close()
}

func (p *SQLitePersister) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.conn.QueryRowContext(ctx,
		`SELECT value FROM session_entries WHERE key = ?`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session: reading %q: %w", key, err)
	}
	return value, true, nil
}

// SetAll upserts every entry inside one transaction.
func (p *SQLitePersister) SetAll(ctx context.Context, entries map[string]string) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		for k, v := range entries {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO session_entries (key, value) VALUES (?, ?)
				 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
				k, v,
			); err != nil {
				return fmt.Errorf("session: writing %q: %w", k, err)
			}
		}
		return nil
	})
}

func (p *SQLitePersister) Delete(ctx context.Context, keys ...string) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		for _, k := range keys {
			if _, err := tx.ExecContext(ctx, `DELETE FROM session_entries WHERE key = ?`, k); err != nil {
				return fmt.Errorf("session: deleting %q: %w", k, err)
			}
		}
		return nil
	})
}

func (p *SQLitePersister) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := p.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("session: beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("session: committing: %w", err)
	}
	committed = true
	return nil
}
