package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/facturio/invoicing-system/internal/core/domain"
	"github.com/facturio/invoicing-system/internal/core/ports"
)

type StoreHandler struct {
	stores ports.RecordService[domain.Store]
}

func NewStoreHandler(stores ports.RecordService[domain.Store]) *StoreHandler {
	return &StoreHandler{stores: stores}
}

type createStoreRequest struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name" validate:"required"`
	Code       string `json:"code" validate:"required,alphanum,max=8"`
	InvoiceTag string `json:"invoice_tag,omitempty"`
}

// List returns the session owner's stores.
//
// @Summary      List stores
// @Tags         stores
// @Produce      json
// @Success      200  {array}  domain.Store
// @Router       /stores [get]
func (h *StoreHandler) List(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	stores, err := h.stores.List(c.Request().Context(), sess)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stores)
}

// Get returns one store.
//
// @Summary      Get a store
// @Tags         stores
// @Produce      json
// @Param        id   path      string  true  "Store id"
// @Success      200  {object}  domain.Store
// @Failure      404  {object}  map[string]string
// @Router       /stores/{id} [get]
func (h *StoreHandler) Get(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	store, err := h.stores.Get(c.Request().Context(), sess, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, store)
}

// Create sets up a store. The short code must be unique among the owner's
// stores, enforced by a read-before-write check against the session's
// backend.
//
// @Summary      Create a store
// @Tags         stores
// @Accept       json
// @Produce      json
// @Param        body  body      createStoreRequest  true  "Store"
// @Success      201   {object}  domain.Store
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /stores [post]
func (h *StoreHandler) Create(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	var req createStoreRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// Short codes are a human-entry key: enforce uniqueness per owner
	// before writing.
	existing, err := h.stores.ListWhere(c.Request().Context(), sess, map[string]any{"code": req.Code})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return echo.NewHTTPError(http.StatusConflict, "store code already in use")
	}

	now := time.Now().UTC()
	store := domain.Store{
		ID:         req.ID,
		Name:       req.Name,
		Code:       req.Code,
		OwnerID:    sess.OwnerID,
		Active:     true,
		InvoiceTag: req.InvoiceTag,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if store.ID == "" {
		store.ID = domain.NewID()
	}

	if err := h.stores.Add(c.Request().Context(), sess, store); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, store)
}

// Update merges a partial payload into the store. Stores are never hard
// deleted; deactivation is an update with {"active": false}.
//
// @Summary      Update a store
// @Tags         stores
// @Accept       json
// @Produce      json
// @Param        id    path      string        true  "Store id"
// @Param        body  body      domain.Patch  true  "Fields to change"
// @Success      200   {object}  domain.Store
// @Failure      404   {object}  map[string]string
// @Router       /stores/{id} [patch]
func (h *StoreHandler) Update(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	patch := domain.Patch{}
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	store, err := h.stores.Update(c.Request().Context(), sess, c.Param("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, store)
}
