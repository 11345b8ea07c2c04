package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/facturio/invoicing-system/internal/core/domain"
	"github.com/facturio/invoicing-system/internal/core/ports"
)

type ProductHandler struct {
	products ports.RecordService[domain.Product]
	invoices ports.InvoiceService
}

func NewProductHandler(products ports.RecordService[domain.Product], invoices ports.InvoiceService) *ProductHandler {
	return &ProductHandler{products: products, invoices: invoices}
}

type createProductRequest struct {
	ID        string `json:"id,omitempty"`
	StoreID   string `json:"store_id,omitempty"`
	Name      string `json:"name" validate:"required"`
	SKU       string `json:"sku,omitempty"`
	UnitPrice string `json:"unit_price" validate:"required"`
	Stock     int    `json:"stock" validate:"gte=0"`
}

// List returns the products visible to the session.
//
// @Summary      List products
// @Tags         products
// @Produce      json
// @Success      200  {array}  domain.Product
// @Router       /products [get]
func (h *ProductHandler) List(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	products, err := h.products.List(c.Request().Context(), sess)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, products)
}

// Get returns one product, with the projected stock that includes staged
// decrements of invoice writes still in flight.
//
// @Summary      Get a product
// @Tags         products
// @Produce      json
// @Param        id   path      string  true  "Product id"
// @Success      200  {object}  productResponse
// @Failure      404  {object}  map[string]string
// @Router       /products/{id} [get]
func (h *ProductHandler) Get(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	product, err := h.products.Get(c.Request().Context(), sess, c.Param("id"))
	if err != nil {
		return err
	}

	projected, err := h.invoices.ProjectedStock(c.Request().Context(), sess, product.ID)
	if err != nil {
		projected = product.Stock
	}
	return c.JSON(http.StatusOK, productResponse{Product: product, ProjectedStock: projected})
}

// productResponse decorates a product with its optimistic display quantity.
type productResponse struct {
	domain.Product
	ProjectedStock int `json:"projected_stock"`
}

// Create adds a product.
//
// @Summary      Create a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        body  body      createProductRequest  true  "Product"
// @Success      201   {object}  domain.Product
// @Failure      400   {object}  map[string]string
// @Router       /products [post]
func (h *ProductHandler) Create(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	var req createProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:        req.ID,
		StoreID:   recordStoreID(sess, req.StoreID),
		OwnerID:   sess.OwnerID,
		Name:      req.Name,
		SKU:       req.SKU,
		UnitPrice: req.UnitPrice,
		Stock:     req.Stock,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if product.ID == "" {
		product.ID = domain.NewID()
	}

	if err := h.products.Add(c.Request().Context(), sess, product); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, product)
}

// Update merges a partial payload into the product.
//
// @Summary      Update a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id    path      string        true  "Product id"
// @Param        body  body      domain.Patch  true  "Fields to change"
// @Success      200   {object}  domain.Product
// @Failure      404   {object}  map[string]string
// @Router       /products/{id} [patch]
func (h *ProductHandler) Update(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	patch := domain.Patch{}
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	product, err := h.products.Update(c.Request().Context(), sess, c.Param("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, product)
}
