// Package store provides the SQLite-backed row store for todos, folders,
// users, sessions, and preference documents.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	token      TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

CREATE TABLE IF NOT EXISTS folders (
	id          TEXT PRIMARY KEY,
	created_at  DATETIME NOT NULL,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	owner_id    TEXT NOT NULL REFERENCES users(id),
	shared_with TEXT NOT NULL DEFAULT '[]',
	can_edit    TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS todos (
	id          TEXT PRIMARY KEY,
	created_at  DATETIME NOT NULL,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	is_complete INTEGER NOT NULL DEFAULT 0,
	owner_id    TEXT NOT NULL REFERENCES users(id),
	folder_id   TEXT REFERENCES folders(id),
	shared_with TEXT NOT NULL DEFAULT '[]',
	can_edit    TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_todos_owner  ON todos(owner_id);
CREATE INDEX IF NOT EXISTS idx_todos_folder ON todos(folder_id);

CREATE TABLE IF NOT EXISTS preferences (
	user_id    TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	doc        TEXT NOT NULL DEFAULT '{}',
	updated_at DATETIME NOT NULL
);
`

// DB wraps a sql.DB with store-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// dbtx is satisfied by *sql.DB and *sql.Tx so row helpers work inside and
// outside transactions.
type dbtx interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// placeholders returns "?,?,...,?" for n bind parameters.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// Sharing sets live in TEXT columns as JSON arrays of user ids.

func encodeSet(set []string) string {
	if set == nil {
		set = []string{}
	}
	b, _ := json.Marshal(set)
	return string(b)
}

func decodeSet(raw string) []string {
	var set []string
	if err := json.Unmarshal([]byte(raw), &set); err != nil || set == nil {
		return []string{}
	}
	return set
}
