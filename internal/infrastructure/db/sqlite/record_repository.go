package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/facturio/invoicing-system/internal/core/domain"
	"github.com/facturio/invoicing-system/internal/core/ports"
)

// RecordRepository is the local adapter for one entity kind. It satisfies
// ports.LocalRepository: every Add/Update clears the sync marker so the
// reconciliation engine picks the record up on the next push.
type RecordRepository[T domain.Record] struct {
	db   *DB
	kind domain.Kind
}

func NewRecordRepository[T domain.Record](db *DB, kind domain.Kind) *RecordRepository[T] {
	return &RecordRepository[T]{db: db, kind: kind}
}

func (r *RecordRepository[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var doc string
	err := r.db.conn.QueryRowContext(ctx,
		`SELECT doc FROM records WHERE kind = ? AND id = ?`, r.kind, id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, domain.ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("sqlite get: %w", err)
	}

	var rec T
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		return zero, fmt.Errorf("sqlite get: decode: %w", err)
	}
	return rec, nil
}

func (r *RecordRepository[T]) List(ctx context.Context, filter ports.RecordFilter) ([]T, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	query := `SELECT doc FROM records WHERE kind = ? AND owner_id = ?`
	args := []any{r.kind, filter.OwnerID}

	if filter.StoreID != "" {
		// Legacy pass-through: records with no store match any store of the
		// same owner.
		query += ` AND (store_id = ? OR store_id = '')`
		args = append(args, filter.StoreID)
	}
	for field, value := range filter.Fields {
		query += fmt.Sprintf(` AND json_extract(doc, '$.%s') = ?`, field)
		args = append(args, value)
	}
	query += ` ORDER BY rowid`

	rows, err := r.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite list: %w", err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("sqlite list: %w", err)
		}
		var rec T
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, fmt.Errorf("sqlite list: decode: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *RecordRepository[T]) Add(ctx context.Context, rec T) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sqlite add: encode: %w", err)
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	_, err = r.db.conn.ExecContext(ctx,
		`INSERT INTO records (kind, id, owner_id, store_id, is_synced, doc)
		 VALUES (?, ?, ?, ?, 0, ?)`,
		r.kind, rec.RecordID(), rec.RecordOwnerID(), rec.RecordStoreID(), string(doc),
	)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return domain.ErrDuplicateID
	}
	if err != nil {
		return fmt.Errorf("sqlite add: %w", err)
	}
	return nil
}

// Update merges the patch into the stored document. The merged document is
// rewritten with the sync marker cleared.
func (r *RecordRepository[T]) Update(ctx context.Context, id string, patch domain.Patch) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var doc string
	err := r.db.conn.QueryRowContext(ctx,
		`SELECT doc FROM records WHERE kind = ? AND id = ?`, r.kind, id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("sqlite update: %w", err)
	}

	merged := map[string]any{}
	if err := json.Unmarshal([]byte(doc), &merged); err != nil {
		return fmt.Errorf("sqlite update: decode: %w", err)
	}
	for k, v := range patch {
		merged[k] = v
	}
	merged["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)

	next, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("sqlite update: encode: %w", err)
	}
	storeID, _ := merged["store_id"].(string)

	_, err = r.db.conn.ExecContext(ctx,
		`UPDATE records
		 SET doc = ?, store_id = ?, is_synced = 0, last_synced_at = NULL
		 WHERE kind = ? AND id = ?`,
		string(next), storeID, r.kind, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite update: %w", err)
	}
	return nil
}

func (r *RecordRepository[T]) ListUnsynced(ctx context.Context) ([]T, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT doc FROM records WHERE kind = ? AND is_synced = 0 ORDER BY rowid`, r.kind,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite list unsynced: %w", err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("sqlite list unsynced: %w", err)
		}
		var rec T
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, fmt.Errorf("sqlite list unsynced: decode: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *RecordRepository[T]) MarkSynced(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := []any{at.UTC().Format(time.RFC3339Nano), r.kind}
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := r.db.conn.ExecContext(ctx,
		fmt.Sprintf(
			`UPDATE records SET is_synced = 1, last_synced_at = ?
			 WHERE kind = ? AND id IN (%s)`, placeholders),
		args...,
	)
	if err != nil {
		return fmt.Errorf("sqlite mark synced: %w", err)
	}
	return nil
}
