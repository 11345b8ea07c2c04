package domain

import "github.com/google/uuid"

// Kind names an entity type. It doubles as the storage namespace: the local
// backend partitions its record table by kind, the remote backend maps each
// kind to a collection.
type Kind string

const (
	KindStore       Kind = "stores"
	KindEmployee    Kind = "employees"
	KindCustomer    Kind = "customers"
	KindProduct     Kind = "products"
	KindInvoice     Kind = "invoices"
	KindInvoiceLine Kind = "invoice_lines"
)

// SyncOrder is the fixed dependency order for reconciliation. Invoices and
// lines reference the earlier kinds by id, so pushes happen in this order.
var SyncOrder = []Kind{KindStore, KindEmployee, KindCustomer, KindProduct, KindInvoice, KindInvoiceLine}

// Record is implemented by every persistable entity. Ids are client-generated
// and assigned at creation time so the same record keeps its identity when it
// is later pushed to the other backend.
type Record interface {
	RecordID() string
	// RecordStoreID returns the owning store, or "" for legacy records that
	// predate multi-tenancy and are visible to every store of the owner.
	RecordStoreID() string
	// RecordOwnerID returns the administrator whose namespace holds the record.
	RecordOwnerID() string
}

// Patch is a partial update: only the named fields change, everything else is
// preserved. Keys are the serialized field names ("name", "email", ...).
type Patch map[string]any

// NewID returns a fresh client-generated record id.
func NewID() string {
	return uuid.NewString()
}
