package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PrefRepository persists per-device settings. Absent keys read as "".
type PrefRepository struct {
	db *DB
}

func NewPrefRepository(db *DB) *PrefRepository {
	return &PrefRepository{db: db}
}

func (r *PrefRepository) Get(ctx context.Context, key string) (string, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var value string
	err := r.db.conn.QueryRowContext(ctx,
		`SELECT value FROM prefs WHERE key = ?`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("sqlite pref get: %w", err)
	}
	return value, nil
}

func (r *PrefRepository) Set(ctx context.Context, key, value string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	_, err := r.db.conn.ExecContext(ctx,
		`INSERT INTO prefs (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("sqlite pref set: %w", err)
	}
	return nil
}

func (r *PrefRepository) Delete(ctx context.Context, key string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, err := r.db.conn.ExecContext(ctx, `DELETE FROM prefs WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite pref delete: %w", err)
	}
	return nil
}
