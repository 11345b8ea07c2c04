package ports

import (
	"context"

	"github.com/facturio/invoicing-system/internal/core/domain"
)

// SyncError reports a failed or skipped entity kind within one SyncAll run.
type SyncError struct {
	Kind    domain.Kind `json:"kind"`
	Message string      `json:"message"`
	// Skipped is true when the kind was not attempted because a kind it
	// depends on failed earlier in the same run.
	Skipped bool `json:"skipped,omitempty"`
}

// SyncSummary is returned to the operator after a reconciliation run. Counts
// are newly pushed records only; a rerun over fully synced state reports
// zeroes.
type SyncSummary struct {
	StoresSynced       int         `json:"stores_synced"`
	EmployeesSynced    int         `json:"employees_synced"`
	CustomersSynced    int         `json:"customers_synced"`
	ProductsSynced     int         `json:"products_synced"`
	InvoicesSynced     int         `json:"invoices_synced"`
	InvoiceLinesSynced int         `json:"invoice_lines_synced"`
	Errors             []SyncError `json:"errors,omitempty"`
}

// SyncService performs the operator-initiated one-directional push of local
// records into the remote backend.
type SyncService interface {
	SyncAll(ctx context.Context, sess domain.Session) (*SyncSummary, error)
}
