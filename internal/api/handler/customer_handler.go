package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/facturio/invoicing-system/internal/core/domain"
	"github.com/facturio/invoicing-system/internal/core/ports"
)

type CustomerHandler struct {
	customers ports.RecordService[domain.Customer]
}

func NewCustomerHandler(customers ports.RecordService[domain.Customer]) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

type createCustomerRequest struct {
	ID      string `json:"id,omitempty"`
	StoreID string `json:"store_id,omitempty"`
	Name    string `json:"name" validate:"required"`
	TaxID   string `json:"tax_id,omitempty"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// List returns the customers visible to the session.
//
// @Summary      List customers
// @Tags         customers
// @Produce      json
// @Success      200  {array}  domain.Customer
// @Router       /customers [get]
func (h *CustomerHandler) List(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	customers, err := h.customers.List(c.Request().Context(), sess)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, customers)
}

// Get returns one customer by id.
//
// @Summary      Get a customer
// @Tags         customers
// @Produce      json
// @Param        id   path      string  true  "Customer id"
// @Success      200  {object}  domain.Customer
// @Failure      404  {object}  map[string]string
// @Router       /customers/{id} [get]
func (h *CustomerHandler) Get(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	customer, err := h.customers.Get(c.Request().Context(), sess, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, customer)
}

// Create adds a customer. The id may be supplied by the client (offline
// devices pre-generate ids); one is generated otherwise.
//
// @Summary      Create a customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        body  body      createCustomerRequest  true  "Customer"
// @Success      201   {object}  domain.Customer
// @Failure      400   {object}  map[string]string
// @Router       /customers [post]
func (h *CustomerHandler) Create(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	var req createCustomerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	now := time.Now().UTC()
	customer := domain.Customer{
		ID:        req.ID,
		StoreID:   recordStoreID(sess, req.StoreID),
		OwnerID:   sess.OwnerID,
		Name:      req.Name,
		TaxID:     req.TaxID,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if customer.ID == "" {
		customer.ID = domain.NewID()
	}

	if err := h.customers.Add(c.Request().Context(), sess, customer); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, customer)
}

// Update merges a partial payload into the customer.
//
// @Summary      Update a customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        id    path      string       true  "Customer id"
// @Param        body  body      domain.Patch true  "Fields to change"
// @Success      200   {object}  domain.Customer
// @Failure      404   {object}  map[string]string
// @Router       /customers/{id} [patch]
func (h *CustomerHandler) Update(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	patch := domain.Patch{}
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	customer, err := h.customers.Update(c.Request().Context(), sess, c.Param("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, customer)
}

// recordStoreID picks the store a new record belongs to: employees always
// write into their own store, admins may target any of theirs (or none, for
// tenant-wide records).
func recordStoreID(sess domain.Session, requested string) string {
	if !sess.IsAdmin() {
		return sess.StoreID
	}
	return requested
}
