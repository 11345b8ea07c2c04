// Package sqlite implements the local embedded backend. One device owns the
// database exclusively; there is no cross-device coordination protocol for
// it, which is why reconciliation to the shared backend exists at all.
//
// Records are stored as JSON documents alongside the columns the queries
// need (owner, store, sync markers), so a single generic adapter serves
// every entity kind. The database is opened in WAL mode and auto-migrated.
package sqlite

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the embedded database handle shared by the adapters in this
// package. The mutex serializes writers; SQLite allows only one anyway.
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// Open opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for tests.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and matches
	// the single-writer model.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	return db, nil
}

// Close closes the underlying handle.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Ping verifies the handle is usable.
func (d *DB) Ping() error {
	return d.conn.Ping()
}

func (d *DB) migrate() error {
	schema := `
	-- Domain records, one row per record, partitioned by kind.
	-- The document column holds the serialized record; owner/store/sync
	-- columns are denormalized for querying.
	CREATE TABLE IF NOT EXISTS records (
		kind TEXT NOT NULL,
		id TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		store_id TEXT NOT NULL DEFAULT '',
		is_synced INTEGER NOT NULL DEFAULT 0,
		last_synced_at TEXT,
		doc TEXT NOT NULL,
		PRIMARY KEY (kind, id)
	);

	CREATE INDEX IF NOT EXISTS idx_records_owner
		ON records(kind, owner_id, store_id);
	CREATE INDEX IF NOT EXISTS idx_records_unsynced
		ON records(kind, is_synced) WHERE is_synced = 0;

	-- Invoice number counters, one per (store, device).
	CREATE TABLE IF NOT EXISTS sequences (
		store_id TEXT NOT NULL,
		device_id TEXT NOT NULL DEFAULT '',
		counter INTEGER NOT NULL DEFAULT 0,
		last_number TEXT,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (store_id, device_id)
	);

	-- Offline login verifiers. Purged wholesale on disable/logout.
	CREATE TABLE IF NOT EXISTS offline_credentials (
		email TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL,
		principal_id TEXT NOT NULL,
		role TEXT NOT NULL,
		store_id TEXT NOT NULL DEFAULT '',
		owner_id TEXT NOT NULL,
		stale INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	);

	-- Per-device settings (mode flag, offline toggle, cached admin modes).
	CREATE TABLE IF NOT EXISTS prefs (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := d.conn.Exec(schema)
	return err
}
