package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/facturio/invoicing-system/internal/core/ports"
)

// SequenceRepository issues local invoice number counters. The increment is
// a single UPSERT..RETURNING statement, so the counter can never regress or
// repeat even if two requests race on the same device.
type SequenceRepository struct {
	db *DB
}

func NewSequenceRepository(db *DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

func (r *SequenceRepository) Next(ctx context.Context, key ports.SequenceKey) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var n int64
	err := r.db.conn.QueryRowContext(ctx,
		`INSERT INTO sequences (store_id, device_id, counter, updated_at)
		 VALUES (?, ?, 1, ?)
		 ON CONFLICT(store_id, device_id)
		 DO UPDATE SET counter = counter + 1, updated_at = excluded.updated_at
		 RETURNING counter`,
		key.StoreID, key.DeviceID, time.Now().UTC().Format(time.RFC3339Nano),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite sequence next: %w", err)
	}
	return n, nil
}

func (r *SequenceRepository) Current(ctx context.Context, key ports.SequenceKey) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var n int64
	err := r.db.conn.QueryRowContext(ctx,
		`SELECT counter FROM sequences WHERE store_id = ? AND device_id = ?`,
		key.StoreID, key.DeviceID,
	).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite sequence current: %w", err)
	}
	return n, nil
}

// RecordIssued stores the formatted number last issued for the key. Kept for
// operator diagnostics; the counter alone drives issuance.
func (r *SequenceRepository) RecordIssued(ctx context.Context, key ports.SequenceKey, number string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	_, err := r.db.conn.ExecContext(ctx,
		`UPDATE sequences SET last_number = ? WHERE store_id = ? AND device_id = ?`,
		number, key.StoreID, key.DeviceID,
	)
	if err != nil {
		return fmt.Errorf("sqlite sequence record issued: %w", err)
	}
	return nil
}
