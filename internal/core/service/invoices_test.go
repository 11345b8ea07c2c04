package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/facturio/invoicing-system/internal/core/domain"
	"github.com/facturio/invoicing-system/internal/core/ports"
)

type invoiceFixture struct {
	stores    *memRepo[domain.Store]
	customers *memRepo[domain.Customer]
	products  *memRepo[domain.Product]
	invoices  *memRepo[domain.Invoice]
	lines     *memRepo[domain.InvoiceLine]
	seqRepo   *stubSequences
	stock     *StockProjection
	svc       *Invoices
}

func newInvoiceFixture() *invoiceFixture {
	f := &invoiceFixture{
		stores:    newMemRepo[domain.Store](),
		customers: newMemRepo[domain.Customer](),
		products:  newMemRepo[domain.Product](),
		invoices:  newMemRepo[domain.Invoice](),
		lines:     newMemRepo[domain.InvoiceLine](),
		seqRepo:   newStubSequences(),
		stock:     NewStockProjection(),
	}

	prefs := newStubPrefs()
	dir := &stubDirectory{}
	modes := NewModeResolver(prefs, dir, time.Second, zerolog.Nop())
	cache := NewMemoryCache()
	log := zerolog.Nop()

	stores := NewCachedRecords(NewRecords(domain.KindStore, f.stores, newMemRepo[domain.Store](), modes, dir, log), cache, log)
	customers := NewCachedRecords(NewRecords(domain.KindCustomer, f.customers, newMemRepo[domain.Customer](), modes, dir, log), cache, log)
	products := NewCachedRecords(NewRecords(domain.KindProduct, f.products, newMemRepo[domain.Product](), modes, dir, log), cache, log)
	invoices := NewCachedRecords(NewRecords(domain.KindInvoice, f.invoices, newMemRepo[domain.Invoice](), modes, dir, log), cache, log)
	lines := NewCachedRecords(NewRecords(domain.KindInvoiceLine, f.lines, newMemRepo[domain.InvoiceLine](), modes, dir, log), cache, log)

	seq := NewSequences(f.seqRepo, newStubSequences(), modes, "dev1", log)
	f.svc = NewInvoices(invoices, lines, products, stores, customers, seq, f.stock, log)
	return f
}

func (f *invoiceFixture) seedBasics(t *testing.T) {
	t.Helper()
	f.stores.seed(domain.Store{ID: "store_1", Code: "MAIN", OwnerID: "adm_1", Active: true})
	f.customers.seed(domain.Customer{ID: "cust_1", StoreID: "store_1", OwnerID: "adm_1", Name: "Ana"})
	f.products.seed(domain.Product{ID: "prod_1", StoreID: "store_1", OwnerID: "adm_1", Name: "Widget", UnitPrice: "19.99", Stock: 10})
	f.products.seed(domain.Product{ID: "prod_2", StoreID: "store_1", OwnerID: "adm_1", Name: "Gadget", UnitPrice: "5.50", Stock: 4})
}

func TestInvoices_CreateIssuesNumberAndTotals(t *testing.T) {
	f := newInvoiceFixture()
	f.seedBasics(t)
	sess := adminSession("adm_1")

	result, err := f.svc.Create(context.Background(), sess, ports.CreateInvoiceInput{
		StoreID:    "store_1",
		CustomerID: "cust_1",
		Lines: []ports.LineInput{
			{ProductID: "prod_1", Quantity: 2},
			{ProductID: "prod_2", Quantity: 3},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if result.Number != "MAIN-dev1-0001" {
		t.Fatalf("unexpected number %q", result.Number)
	}
	// 2 × 19.99 + 3 × 5.50 = 56.48, exact decimal arithmetic.
	if result.Total != "56.48" {
		t.Fatalf("unexpected total %q", result.Total)
	}

	invoice, err := f.invoices.Get(context.Background(), result.ID)
	if err != nil {
		t.Fatalf("stored invoice: %v", err)
	}
	if invoice.Status != domain.InvoiceIssued || invoice.Total != "56.48" {
		t.Fatalf("unexpected stored invoice %+v", invoice)
	}

	lines, err := f.lines.List(context.Background(), ports.RecordFilter{OwnerID: "adm_1"})
	if err != nil {
		t.Fatalf("stored lines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Amount != "39.98" || lines[1].Amount != "16.50" {
		t.Fatalf("unexpected line amounts %q / %q", lines[0].Amount, lines[1].Amount)
	}
}

func TestInvoices_CreateDecrementsStock(t *testing.T) {
	f := newInvoiceFixture()
	f.seedBasics(t)
	sess := adminSession("adm_1")

	if _, err := f.svc.Create(context.Background(), sess, ports.CreateInvoiceInput{
		StoreID:    "store_1",
		CustomerID: "cust_1",
		Lines:      []ports.LineInput{{ProductID: "prod_1", Quantity: 4}},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	product, err := f.products.Get(context.Background(), "prod_1")
	if err != nil {
		t.Fatalf("product: %v", err)
	}
	if product.Stock != 6 {
		t.Fatalf("stock not decremented, got %d", product.Stock)
	}
	// The projection has converged: no staged deltas remain.
	if got := f.stock.Project("prod_1", product.Stock); got != 6 {
		t.Fatalf("projection diverged, got %d", got)
	}
}

func TestInvoices_CreateRejectsInsufficientStock(t *testing.T) {
	f := newInvoiceFixture()
	f.seedBasics(t)
	sess := adminSession("adm_1")

	_, err := f.svc.Create(context.Background(), sess, ports.CreateInvoiceInput{
		StoreID:    "store_1",
		CustomerID: "cust_1",
		Lines:      []ports.LineInput{{ProductID: "prod_2", Quantity: 5}},
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// The staged decrement was rolled back.
	product, _ := f.products.Get(context.Background(), "prod_2")
	if got := f.stock.Project("prod_2", product.Stock); got != 4 {
		t.Fatalf("projection not rolled back, got %d", got)
	}
	if product.Stock != 4 {
		t.Fatalf("authoritative stock changed on failure: %d", product.Stock)
	}
}

func TestInvoices_CreateRollsBackProjectionOnWriteFailure(t *testing.T) {
	f := newInvoiceFixture()
	f.seedBasics(t)
	f.invoices.addErr = domain.ErrBackendUnreachable
	sess := adminSession("adm_1")

	_, err := f.svc.Create(context.Background(), sess, ports.CreateInvoiceInput{
		StoreID:    "store_1",
		CustomerID: "cust_1",
		Lines:      []ports.LineInput{{ProductID: "prod_1", Quantity: 2}},
	})
	if err == nil {
		t.Fatalf("expected persistence failure")
	}

	if got := f.stock.Project("prod_1", 10); got != 10 {
		t.Fatalf("staged delta leaked after failed write, projected %d", got)
	}
}

func TestInvoices_CreateRejectsUnknownCustomer(t *testing.T) {
	f := newInvoiceFixture()
	f.seedBasics(t)
	sess := adminSession("adm_1")

	_, err := f.svc.Create(context.Background(), sess, ports.CreateInvoiceInput{
		StoreID:    "store_1",
		CustomerID: "ghost",
		Lines:      []ports.LineInput{{ProductID: "prod_1", Quantity: 1}},
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInvoices_EmployeeCreateStampsEmployeeAndStore(t *testing.T) {
	f := newInvoiceFixture()
	f.seedBasics(t)
	sess := employeeSession("emp_1", "store_1", "adm_1")

	result, err := f.svc.Create(context.Background(), sess, ports.CreateInvoiceInput{
		CustomerID: "cust_1",
		Lines:      []ports.LineInput{{ProductID: "prod_1", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	invoice, err := f.invoices.Get(context.Background(), result.ID)
	if err != nil {
		t.Fatalf("stored invoice: %v", err)
	}
	if invoice.EmployeeID != "emp_1" {
		t.Fatalf("employee not stamped, got %q", invoice.EmployeeID)
	}
	if invoice.StoreID != "store_1" {
		t.Fatalf("store not defaulted from session, got %q", invoice.StoreID)
	}
}

func TestInvoices_GetReturnsInvoiceWithLines(t *testing.T) {
	f := newInvoiceFixture()
	f.seedBasics(t)
	sess := adminSession("adm_1")

	result, err := f.svc.Create(context.Background(), sess, ports.CreateInvoiceInput{
		StoreID:    "store_1",
		CustomerID: "cust_1",
		Lines: []ports.LineInput{
			{ProductID: "prod_1", Quantity: 1},
			{ProductID: "prod_2", Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	detail, err := f.svc.Get(context.Background(), sess, result.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if detail.Invoice.ID != result.ID {
		t.Fatalf("wrong invoice returned")
	}
	if len(detail.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(detail.Lines))
	}
	for _, line := range detail.Lines {
		if line.InvoiceID != result.ID {
			t.Fatalf("foreign line returned: %+v", line)
		}
	}
}

func TestInvoices_ProjectedStockIncludesStagedDeltas(t *testing.T) {
	f := newInvoiceFixture()
	f.seedBasics(t)
	sess := adminSession("adm_1")

	res := f.stock.Begin()
	res.Stage("prod_1", -3)
	defer res.Rollback()

	projected, err := f.svc.ProjectedStock(context.Background(), sess, "prod_1")
	if err != nil {
		t.Fatalf("projected stock: %v", err)
	}
	if projected != 7 {
		t.Fatalf("expected 7, got %d", projected)
	}
}

func TestInvoices_CreateChecksRepeatedProductLinesCumulatively(t *testing.T) {
	f := newInvoiceFixture()
	f.seedBasics(t)
	sess := adminSession("adm_1")

	// Two lines of 3 against a stock of 4 oversell by 2 even though each
	// line passes on its own.
	_, err := f.svc.Create(context.Background(), sess, ports.CreateInvoiceInput{
		StoreID:    "store_1",
		CustomerID: "cust_1",
		Lines: []ports.LineInput{
			{ProductID: "prod_2", Quantity: 3},
			{ProductID: "prod_2", Quantity: 3},
		},
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	product, _ := f.products.Get(context.Background(), "prod_2")
	if product.Stock != 4 {
		t.Fatalf("authoritative stock changed on failure: %d", product.Stock)
	}
	if got := f.stock.Project("prod_2", product.Stock); got != 4 {
		t.Fatalf("projection not rolled back, got %d", got)
	}
}

func TestInvoices_CreateDeductsRepeatedProductLinesOnce(t *testing.T) {
	f := newInvoiceFixture()
	f.seedBasics(t)
	sess := adminSession("adm_1")

	if _, err := f.svc.Create(context.Background(), sess, ports.CreateInvoiceInput{
		StoreID:    "store_1",
		CustomerID: "cust_1",
		Lines: []ports.LineInput{
			{ProductID: "prod_2", Quantity: 1},
			{ProductID: "prod_2", Quantity: 2},
		},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	product, err := f.products.Get(context.Background(), "prod_2")
	if err != nil {
		t.Fatalf("product: %v", err)
	}
	if product.Stock != 1 {
		t.Fatalf("expected stock 1 after selling 3 of 4, got %d", product.Stock)
	}
	if got := f.stock.Project("prod_2", product.Stock); got != 1 {
		t.Fatalf("projection diverged, got %d", got)
	}
}
