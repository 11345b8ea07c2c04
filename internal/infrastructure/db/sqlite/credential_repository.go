package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/facturio/invoicing-system/internal/core/ports"
)

// CredentialRepository stores offline login verifiers. Only the salted hash
// is ever written; Clear drops every row in one statement.
type CredentialRepository struct {
	db *DB
}

func NewCredentialRepository(db *DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) Save(ctx context.Context, cred ports.OfflineCredential) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	_, err := r.db.conn.ExecContext(ctx,
		`INSERT INTO offline_credentials
		   (email, password_hash, principal_id, role, store_id, owner_id, stale, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?)
		 ON CONFLICT(email) DO UPDATE SET
		   password_hash = excluded.password_hash,
		   principal_id = excluded.principal_id,
		   role = excluded.role,
		   store_id = excluded.store_id,
		   owner_id = excluded.owner_id,
		   stale = 0,
		   updated_at = excluded.updated_at`,
		cred.Email, cred.PasswordHash, cred.PrincipalID, cred.Role,
		cred.StoreID, cred.OwnerID, cred.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite credential save: %w", err)
	}
	return nil
}

func (r *CredentialRepository) Find(ctx context.Context, email string) (*ports.OfflineCredential, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var cred ports.OfflineCredential
	var stale int
	var updatedAt string
	err := r.db.conn.QueryRowContext(ctx,
		`SELECT email, password_hash, principal_id, role, store_id, owner_id, stale, updated_at
		 FROM offline_credentials WHERE email = ?`, email,
	).Scan(&cred.Email, &cred.PasswordHash, &cred.PrincipalID, &cred.Role,
		&cred.StoreID, &cred.OwnerID, &stale, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite credential find: %w", err)
	}

	cred.Stale = stale != 0
	if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		cred.UpdatedAt = ts
	}
	return &cred, nil
}

func (r *CredentialRepository) MarkStale(ctx context.Context, email string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	_, err := r.db.conn.ExecContext(ctx,
		`UPDATE offline_credentials SET stale = 1 WHERE email = ?`, email,
	)
	if err != nil {
		return fmt.Errorf("sqlite credential mark stale: %w", err)
	}
	return nil
}

func (r *CredentialRepository) Clear(ctx context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, err := r.db.conn.ExecContext(ctx, `DELETE FROM offline_credentials`); err != nil {
		return fmt.Errorf("sqlite credential clear: %w", err)
	}
	return nil
}
