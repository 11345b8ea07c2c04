package domain

import "time"

// Store is the tenant boundary. Stores are deactivated, never hard-deleted.
type Store struct {
	ID         string    `json:"id" bson:"_id"`
	Name       string    `json:"name" bson:"name"`
	Code       string    `json:"code" bson:"code"` // short human-entry key, unique per owner
	OwnerID    string    `json:"owner_id" bson:"owner_id"`
	Active     bool      `json:"active" bson:"active"`
	InvoiceTag string    `json:"invoice_tag,omitempty" bson:"invoice_tag,omitempty"` // optional prefix override for invoice numbers
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

func (s Store) RecordID() string      { return s.ID }
func (s Store) RecordStoreID() string { return s.ID }
func (s Store) RecordOwnerID() string { return s.OwnerID }

// Employee is a store-scoped subordinate principal's directory record.
type Employee struct {
	ID        string    `json:"id" bson:"_id"`
	StoreID   string    `json:"store_id,omitempty" bson:"store_id,omitempty"`
	OwnerID   string    `json:"owner_id" bson:"owner_id"`
	Name      string    `json:"name" bson:"name"`
	Email     string    `json:"email" bson:"email"`
	Phone     string    `json:"phone,omitempty" bson:"phone,omitempty"`
	Active    bool      `json:"active" bson:"active"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func (e Employee) RecordID() string      { return e.ID }
func (e Employee) RecordStoreID() string { return e.StoreID }
func (e Employee) RecordOwnerID() string { return e.OwnerID }

// Customer is a billable party.
type Customer struct {
	ID        string    `json:"id" bson:"_id"`
	StoreID   string    `json:"store_id,omitempty" bson:"store_id,omitempty"`
	OwnerID   string    `json:"owner_id" bson:"owner_id"`
	Name      string    `json:"name" bson:"name"`
	TaxID     string    `json:"tax_id,omitempty" bson:"tax_id,omitempty"`
	Email     string    `json:"email,omitempty" bson:"email,omitempty"`
	Phone     string    `json:"phone,omitempty" bson:"phone,omitempty"`
	Address   string    `json:"address,omitempty" bson:"address,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func (c Customer) RecordID() string      { return c.ID }
func (c Customer) RecordStoreID() string { return c.StoreID }
func (c Customer) RecordOwnerID() string { return c.OwnerID }

// Product is a sellable item with a stock level. Monetary amounts are stored
// as decimal strings so both backends round-trip them without precision loss.
type Product struct {
	ID        string    `json:"id" bson:"_id"`
	StoreID   string    `json:"store_id,omitempty" bson:"store_id,omitempty"`
	OwnerID   string    `json:"owner_id" bson:"owner_id"`
	Name      string    `json:"name" bson:"name"`
	SKU       string    `json:"sku,omitempty" bson:"sku,omitempty"`
	UnitPrice string    `json:"unit_price" bson:"unit_price"`
	Stock     int       `json:"stock" bson:"stock"`
	Active    bool      `json:"active" bson:"active"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func (p Product) RecordID() string      { return p.ID }
func (p Product) RecordStoreID() string { return p.StoreID }
func (p Product) RecordOwnerID() string { return p.OwnerID }

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft  InvoiceStatus = "draft"
	InvoiceIssued InvoiceStatus = "issued"
	InvoiceVoid   InvoiceStatus = "void"
)

// Invoice is the billing aggregate. Number is issued by the sequence
// generator and never changes shape once printed.
type Invoice struct {
	ID         string        `json:"id" bson:"_id"`
	StoreID    string        `json:"store_id,omitempty" bson:"store_id,omitempty"`
	OwnerID    string        `json:"owner_id" bson:"owner_id"`
	Number     string        `json:"number" bson:"number"`
	CustomerID string        `json:"customer_id" bson:"customer_id"`
	EmployeeID string        `json:"employee_id,omitempty" bson:"employee_id,omitempty"`
	Status     InvoiceStatus `json:"status" bson:"status"`
	Total      string        `json:"total" bson:"total"`
	IssuedAt   time.Time     `json:"issued_at" bson:"issued_at"`
	CreatedAt  time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at" bson:"updated_at"`
}

func (i Invoice) RecordID() string      { return i.ID }
func (i Invoice) RecordStoreID() string { return i.StoreID }
func (i Invoice) RecordOwnerID() string { return i.OwnerID }

// InvoiceLine is a single item on an invoice.
type InvoiceLine struct {
	ID          string    `json:"id" bson:"_id"`
	InvoiceID   string    `json:"invoice_id" bson:"invoice_id"`
	StoreID     string    `json:"store_id,omitempty" bson:"store_id,omitempty"`
	OwnerID     string    `json:"owner_id" bson:"owner_id"`
	ProductID   string    `json:"product_id" bson:"product_id"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Quantity    int       `json:"quantity" bson:"quantity"`
	UnitPrice   string    `json:"unit_price" bson:"unit_price"`
	Amount      string    `json:"amount" bson:"amount"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

func (l InvoiceLine) RecordID() string      { return l.ID }
func (l InvoiceLine) RecordStoreID() string { return l.StoreID }
func (l InvoiceLine) RecordOwnerID() string { return l.OwnerID }
