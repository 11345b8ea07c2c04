package ports

import (
	"context"
	"time"

	"github.com/facturio/invoicing-system/internal/core/domain"
)

// LineInput is one item on a new invoice.
type LineInput struct {
	ProductID   string
	Description string
	Quantity    int
}

// CreateInvoiceInput carries everything needed to issue an invoice. StoreID
// defaults to the session's store for employee sessions.
type CreateInvoiceInput struct {
	StoreID    string
	CustomerID string
	Lines      []LineInput
}

// InvoiceResult is returned after issuing an invoice.
type InvoiceResult struct {
	ID       string
	Number   string
	Total    string
	IssuedAt time.Time
}

// InvoiceDetail is the full invoice view including its lines.
type InvoiceDetail struct {
	Invoice domain.Invoice
	Lines   []domain.InvoiceLine
}

// InvoiceService defines the invoice use cases.
type InvoiceService interface {
	Create(ctx context.Context, sess domain.Session, input CreateInvoiceInput) (*InvoiceResult, error)
	Get(ctx context.Context, sess domain.Session, id string) (*InvoiceDetail, error)
	List(ctx context.Context, sess domain.Session) ([]domain.Invoice, error)
	// ProjectedStock is the display quantity for a product: the stored
	// value plus staged decrements of writes still in flight.
	ProjectedStock(ctx context.Context, sess domain.Session, productID string) (int, error)
}
