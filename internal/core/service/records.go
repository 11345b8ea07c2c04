package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/facturio/invoicing-system/internal/core/domain"
	"github.com/facturio/invoicing-system/internal/core/ports"
)

// Records is the entity store facade for one entity kind. Every operation
// resolves the session's mode first, then dispatches to exactly one of the
// two adapters — reads and writes never mix backends within one operation.
type Records[T domain.Record] struct {
	kind      domain.Kind
	local     ports.LocalRepository[T]
	remote    ports.RemoteRepository[T]
	modes     *ModeResolver
	directory ports.Directory
	log       zerolog.Logger
}

func NewRecords[T domain.Record](
	kind domain.Kind,
	local ports.LocalRepository[T],
	remote ports.RemoteRepository[T],
	modes *ModeResolver,
	directory ports.Directory,
	log zerolog.Logger,
) *Records[T] {
	return &Records[T]{
		kind:      kind,
		local:     local,
		remote:    remote,
		modes:     modes,
		directory: directory,
		log:       log,
	}
}

// Kind returns the entity kind this facade serves.
func (r *Records[T]) Kind() domain.Kind { return r.kind }

func (r *Records[T]) repo(mode domain.Mode) ports.RecordRepository[T] {
	if mode == domain.ModeRemote {
		return r.remote
	}
	return r.local
}

// scope resolves the session's mode and tenant scope. For employee sessions
// against the remote backend the caller's identity is translated into the
// owning administrator's identity, since subordinates share the
// administrator's remote namespace.
func (r *Records[T]) scope(ctx context.Context, sess domain.Session) (domain.Mode, ports.RecordFilter, error) {
	mode := r.modes.Resolve(ctx, sess)

	owner := sess.OwnerID
	if owner == "" && !sess.IsAdmin() {
		resolved, err := r.directory.AdminFor(ctx, sess.PrincipalID)
		if err != nil {
			return mode, ports.RecordFilter{}, fmt.Errorf("%w: %w", domain.ErrIdentityUnresolved, err)
		}
		owner = resolved
	}
	if owner == "" {
		owner = sess.PrincipalID
	}

	filter := ports.RecordFilter{OwnerID: owner}
	if !sess.IsAdmin() {
		// Employees only see their own store (plus legacy records with no
		// store, which the adapters match for any store of the owner).
		filter.StoreID = sess.StoreID
	}
	return mode, filter, nil
}

// visible reports whether a fetched record falls inside the session's tenant
// scope. Records outside it are reported as absent, never exposed.
func visible[T domain.Record](rec T, filter ports.RecordFilter) bool {
	if rec.RecordOwnerID() != filter.OwnerID {
		return false
	}
	if filter.StoreID != "" {
		// Legacy records with no store stay visible to every store of the
		// owner, matching the adapters' list behaviour.
		if st := rec.RecordStoreID(); st != "" && st != filter.StoreID {
			return false
		}
	}
	return true
}

// Get returns one record by id. A record belonging to another tenant, or to
// another store for an employee session, reads as domain.ErrNotFound.
func (r *Records[T]) Get(ctx context.Context, sess domain.Session, id string) (T, error) {
	var zero T
	mode, filter, err := r.scope(ctx, sess)
	if err != nil {
		return zero, err
	}
	rec, err := r.repo(mode).Get(ctx, id)
	if err != nil {
		return zero, err
	}
	if !visible(rec, filter) {
		return zero, domain.ErrNotFound
	}
	return rec, nil
}

// List returns the records visible to the session. An employee session whose
// administrator identity cannot be resolved gets an empty result and
// domain.ErrIdentityUnresolved — never another tenant's data.
func (r *Records[T]) List(ctx context.Context, sess domain.Session) ([]T, error) {
	return r.ListWhere(ctx, sess, nil)
}

// ListWhere is List with additional exact-match constraints on serialized
// field names.
func (r *Records[T]) ListWhere(ctx context.Context, sess domain.Session, fields map[string]any) ([]T, error) {
	mode, filter, err := r.scope(ctx, sess)
	if err != nil {
		r.log.Warn().Err(err).Str("kind", string(r.kind)).Msg("list scope resolution failed")
		return []T{}, err
	}
	filter.Fields = fields

	recs, err := r.repo(mode).List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.kind, err)
	}
	return recs, nil
}

// Add inserts a record. The id must be client-generated and supplied up
// front so the record keeps its identity when later pushed to the other
// backend. The record's owner must match the session's tenant.
func (r *Records[T]) Add(ctx context.Context, sess domain.Session, rec T) error {
	if rec.RecordID() == "" {
		return domain.ErrMissingID
	}
	mode, filter, err := r.scope(ctx, sess)
	if err != nil {
		return err
	}
	if rec.RecordOwnerID() != filter.OwnerID {
		return domain.ErrForbidden
	}

	if err := r.repo(mode).Add(ctx, rec); err != nil {
		return fmt.Errorf("add %s: %w", r.kind, err)
	}
	return nil
}

// Update merges the patch into the stored record. The target must be inside
// the session's tenant scope; identity and bookkeeping fields (id, owner_id,
// sync markers) are never patchable, and a non-empty store_id can never move
// to a different store.
func (r *Records[T]) Update(ctx context.Context, sess domain.Session, id string, patch domain.Patch) (T, error) {
	var zero T

	mode, filter, err := r.scope(ctx, sess)
	if err != nil {
		return zero, err
	}
	repo := r.repo(mode)

	existing, err := repo.Get(ctx, id)
	if err != nil {
		return zero, err
	}
	if !visible(existing, filter) {
		return zero, domain.ErrNotFound
	}

	for _, reserved := range []string{"id", "owner_id", "is_synced", "last_synced_at"} {
		delete(patch, reserved)
	}

	if next, ok := patch["store_id"].(string); ok {
		if cur := existing.RecordStoreID(); cur != "" && cur != next {
			return zero, domain.ErrStoreReassigned
		}
	}

	if err := repo.Update(ctx, id, patch); err != nil {
		return zero, fmt.Errorf("update %s: %w", r.kind, err)
	}
	return repo.Get(ctx, id)
}
