package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/facturio/invoicing-system/internal/core/domain"
	"github.com/facturio/invoicing-system/internal/core/ports"
)

type InvoiceHandler struct {
	invoices ports.InvoiceService
}

func NewInvoiceHandler(invoices ports.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

type invoiceLineRequest struct {
	ProductID   string `json:"product_id" validate:"required"`
	Description string `json:"description,omitempty"`
	Quantity    int    `json:"quantity" validate:"required,gt=0"`
}

type createInvoiceRequest struct {
	StoreID    string               `json:"store_id,omitempty"`
	CustomerID string               `json:"customer_id" validate:"required"`
	Lines      []invoiceLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type createInvoiceResponse struct {
	ID       string    `json:"id"`
	Number   string    `json:"number"`
	Total    string    `json:"total"`
	IssuedAt time.Time `json:"issued_at"`
}

type invoiceDetailResponse struct {
	domain.Invoice
	Lines []domain.InvoiceLine `json:"lines"`
}

// List returns the invoices visible to the session, newest first.
//
// @Summary      List invoices
// @Tags         invoices
// @Produce      json
// @Success      200  {array}  domain.Invoice
// @Router       /invoices [get]
func (h *InvoiceHandler) List(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	invoices, err := h.invoices.List(c.Request().Context(), sess)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, invoices)
}

// Get returns one invoice with its lines.
//
// @Summary      Get an invoice
// @Tags         invoices
// @Produce      json
// @Param        id   path      string  true  "Invoice id"
// @Success      200  {object}  invoiceDetailResponse
// @Failure      404  {object}  map[string]string
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) Get(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	detail, err := h.invoices.Get(c.Request().Context(), sess, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, invoiceDetailResponse{Invoice: detail.Invoice, Lines: detail.Lines})
}

// Create issues an invoice: assigns the next number in the store's sequence,
// prices the lines, computes the total and decrements product stock.
//
// @Summary      Issue an invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        body  body      createInvoiceRequest  true  "Invoice"
// @Success      201   {object}  createInvoiceResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /invoices [post]
func (h *InvoiceHandler) Create(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	var req createInvoiceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	input := ports.CreateInvoiceInput{
		StoreID:    recordStoreID(sess, req.StoreID),
		CustomerID: req.CustomerID,
		Lines:      make([]ports.LineInput, 0, len(req.Lines)),
	}
	for _, l := range req.Lines {
		input.Lines = append(input.Lines, ports.LineInput{
			ProductID:   l.ProductID,
			Description: l.Description,
			Quantity:    l.Quantity,
		})
	}

	result, err := h.invoices.Create(c.Request().Context(), sess, input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, createInvoiceResponse{
		ID:       result.ID,
		Number:   result.Number,
		Total:    result.Total,
		IssuedAt: result.IssuedAt,
	})
}
