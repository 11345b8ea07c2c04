package ports

import (
	"context"
	"time"

	"github.com/facturio/invoicing-system/internal/core/domain"
)

// RecordFilter carries the scope applied to a list query.
//
// OwnerID is always set by the service layer: it is the administrator whose
// namespace is being read. StoreID narrows the result to one store; records
// with an empty store_id (legacy, pre-multi-tenant) match any store of the
// same owner. Fields adds exact-match constraints on serialized field names
// (e.g. "invoice_id").
type RecordFilter struct {
	OwnerID string
	StoreID string
	Fields  map[string]any
}

// RecordRepository is the backend-agnostic persistence contract for one
// entity kind. Exactly one concrete adapter serves a given operation; the
// service layer selects it through the mode resolver, never ad hoc.
type RecordRepository[T domain.Record] interface {
	// Get returns the record with the given id, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (T, error)
	List(ctx context.Context, filter RecordFilter) ([]T, error)
	// Add inserts a record whose id was generated by the caller.
	// Returns domain.ErrDuplicateID when the id already exists.
	Add(ctx context.Context, rec T) error
	// Update merges the patch into the stored record. Unspecified fields are
	// preserved; this is never a destructive replace.
	Update(ctx context.Context, id string, patch domain.Patch) error
}

// RecordService is the use-case surface for one entity kind: the entity
// store facade, optionally wrapped by the cached query layer. Every
// operation is scoped by the session and dispatches through the mode
// resolver exactly once.
type RecordService[T domain.Record] interface {
	Get(ctx context.Context, sess domain.Session, id string) (T, error)
	List(ctx context.Context, sess domain.Session) ([]T, error)
	ListWhere(ctx context.Context, sess domain.Session, fields map[string]any) ([]T, error)
	Add(ctx context.Context, sess domain.Session, rec T) error
	Update(ctx context.Context, sess domain.Session, id string, patch domain.Patch) (T, error)
}

// LocalRepository is the embedded-backend adapter. It additionally tracks
// per-record sync markers consumed by the reconciliation engine: Add and
// Update clear is_synced as a side effect.
type LocalRepository[T domain.Record] interface {
	RecordRepository[T]

	// ListUnsynced returns every record not yet pushed to the remote backend.
	ListUnsynced(ctx context.Context) ([]T, error)
	// MarkSynced records a successful push. The local copy is kept.
	MarkSynced(ctx context.Context, ids []string, at time.Time) error
}

// RemoteRepository is the shared-backend adapter. Remote records carry no
// sync marker: the remote backend is definitionally synced.
type RemoteRepository[T domain.Record] interface {
	RecordRepository[T]

	// Upsert inserts or replaces by id. It is the idempotent write used by
	// reconciliation: re-pushing an already-pushed record never duplicates it.
	Upsert(ctx context.Context, rec T) error
}
