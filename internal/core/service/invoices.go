package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/facturio/invoicing-system/internal/core/domain"
	"github.com/facturio/invoicing-system/internal/core/ports"
)

// Invoices implements the invoice use cases on top of the facades: number
// issuance, decimal line arithmetic, and the two-phase stock update.
type Invoices struct {
	invoices  *CachedRecords[domain.Invoice]
	lines     *CachedRecords[domain.InvoiceLine]
	products  *CachedRecords[domain.Product]
	stores    *CachedRecords[domain.Store]
	customers *CachedRecords[domain.Customer]
	seq       *Sequences
	stock     *StockProjection
	log       zerolog.Logger
}

func NewInvoices(
	invoices *CachedRecords[domain.Invoice],
	lines *CachedRecords[domain.InvoiceLine],
	products *CachedRecords[domain.Product],
	stores *CachedRecords[domain.Store],
	customers *CachedRecords[domain.Customer],
	seq *Sequences,
	stock *StockProjection,
	log zerolog.Logger,
) *Invoices {
	return &Invoices{
		invoices:  invoices,
		lines:     lines,
		products:  products,
		stores:    stores,
		customers: customers,
		seq:       seq,
		stock:     stock,
		log:       log,
	}
}

// Create issues an invoice: resolves the store, draws the next number,
// computes amounts, stages the stock decrement optimistically, persists the
// invoice and its lines, then decrements the authoritative stock. The staged
// projection is rolled back when any persistence step fails.
func (s *Invoices) Create(ctx context.Context, sess domain.Session, input ports.CreateInvoiceInput) (*ports.InvoiceResult, error) {
	storeID := input.StoreID
	if storeID == "" {
		storeID = sess.StoreID
	}
	if storeID == "" {
		return nil, fmt.Errorf("create invoice: %w", domain.ErrNotFound)
	}

	store, err := s.stores.Get(ctx, sess, storeID)
	if err != nil {
		return nil, fmt.Errorf("create invoice: store: %w", err)
	}
	if _, err := s.customers.Get(ctx, sess, input.CustomerID); err != nil {
		return nil, fmt.Errorf("create invoice: customer: %w", err)
	}

	number, err := s.seq.NextInvoiceNumber(ctx, sess, store)
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	now := time.Now().UTC()
	invoice := domain.Invoice{
		ID:         domain.NewID(),
		StoreID:    store.ID,
		OwnerID:    sess.OwnerID,
		Number:     number,
		CustomerID: input.CustomerID,
		Status:     domain.InvoiceIssued,
		IssuedAt:   now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if !sess.IsAdmin() {
		invoice.EmployeeID = sess.PrincipalID
	}

	// Phase one: stage the visible stock decrement before the writes land.
	res := s.stock.Begin()
	total := decimal.Zero
	lines := make([]domain.InvoiceLine, 0, len(input.Lines))
	products := make(map[string]domain.Product, len(input.Lines))
	remaining := make(map[string]int, len(input.Lines))

	for _, in := range input.Lines {
		product, ok := products[in.ProductID]
		if !ok {
			fetched, err := s.products.Get(ctx, sess, in.ProductID)
			if err != nil {
				res.Rollback()
				return nil, fmt.Errorf("create invoice: product %s: %w", in.ProductID, err)
			}
			product = fetched
			products[product.ID] = product
			remaining[product.ID] = product.Stock
		}
		// Repeated lines for the same product draw from one shared pool, so
		// the quantities are checked and deducted cumulatively.
		if in.Quantity <= 0 || remaining[product.ID] < in.Quantity {
			res.Rollback()
			return nil, fmt.Errorf("create invoice: product %s: %w", product.ID, domain.ErrInsufficientStock)
		}
		remaining[product.ID] -= in.Quantity

		price, err := decimal.NewFromString(product.UnitPrice)
		if err != nil {
			res.Rollback()
			return nil, fmt.Errorf("create invoice: product %s: %w", product.ID, domain.ErrInvalidAmount)
		}
		amount := price.Mul(decimal.NewFromInt(int64(in.Quantity)))
		total = total.Add(amount)

		desc := in.Description
		if desc == "" {
			desc = product.Name
		}
		lines = append(lines, domain.InvoiceLine{
			ID:          domain.NewID(),
			InvoiceID:   invoice.ID,
			StoreID:     store.ID,
			OwnerID:     sess.OwnerID,
			ProductID:   product.ID,
			Description: desc,
			Quantity:    in.Quantity,
			UnitPrice:   price.StringFixed(2),
			Amount:      amount.StringFixed(2),
			CreatedAt:   now,
		})

		res.Stage(product.ID, -in.Quantity)
	}
	invoice.Total = total.StringFixed(2)

	// Phase two: authoritative writes; roll the projection back on failure.
	if err := s.invoices.Add(ctx, sess, invoice); err != nil {
		res.Rollback()
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	for _, line := range lines {
		if err := s.lines.Add(ctx, sess, line); err != nil {
			res.Rollback()
			return nil, fmt.Errorf("create invoice: line: %w", err)
		}
	}
	for id, stock := range remaining {
		if _, err := s.products.Update(ctx, sess, id, domain.Patch{"stock": stock}); err != nil {
			res.Rollback()
			return nil, fmt.Errorf("create invoice: stock update: %w", err)
		}
	}
	res.Commit()

	s.log.Info().
		Str("invoice_id", invoice.ID).
		Str("number", invoice.Number).
		Str("store_id", store.ID).
		Msg("invoice issued")

	return &ports.InvoiceResult{
		ID:       invoice.ID,
		Number:   invoice.Number,
		Total:    invoice.Total,
		IssuedAt: invoice.IssuedAt,
	}, nil
}

// Get returns an invoice with its lines.
func (s *Invoices) Get(ctx context.Context, sess domain.Session, id string) (*ports.InvoiceDetail, error) {
	invoice, err := s.invoices.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	lines, err := s.lines.ListWhere(ctx, sess, map[string]any{"invoice_id": id})
	if err != nil {
		return nil, err
	}
	return &ports.InvoiceDetail{Invoice: invoice, Lines: lines}, nil
}

// List returns the invoices visible to the session.
func (s *Invoices) List(ctx context.Context, sess domain.Session) ([]domain.Invoice, error) {
	return s.invoices.List(ctx, sess)
}

// ProjectedStock returns the display quantity for a product, including
// staged decrements of writes still in flight.
func (s *Invoices) ProjectedStock(ctx context.Context, sess domain.Session, productID string) (int, error) {
	product, err := s.products.Get(ctx, sess, productID)
	if err != nil {
		return 0, err
	}
	return s.stock.Project(product.ID, product.Stock), nil
}
