package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/facturio/invoicing-system/internal/core/domain"
	"github.com/facturio/invoicing-system/internal/core/ports"
)

type EmployeeHandler struct {
	employees ports.RecordService[domain.Employee]
	auth      ports.AuthService
}

func NewEmployeeHandler(employees ports.RecordService[domain.Employee], auth ports.AuthService) *EmployeeHandler {
	return &EmployeeHandler{employees: employees, auth: auth}
}

type createEmployeeRequest struct {
	ID      string `json:"id,omitempty"`
	StoreID string `json:"store_id,omitempty"`
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone,omitempty"`
}

// List returns the employees visible to the session.
//
// @Summary      List employees
// @Tags         employees
// @Produce      json
// @Success      200  {array}  domain.Employee
// @Router       /employees [get]
func (h *EmployeeHandler) List(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	employees, err := h.employees.List(c.Request().Context(), sess)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, employees)
}

// Get returns one employee by id.
//
// @Summary      Get an employee
// @Tags         employees
// @Produce      json
// @Param        id   path      string  true  "Employee id"
// @Success      200  {object}  domain.Employee
// @Failure      404  {object}  map[string]string
// @Router       /employees/{id} [get]
func (h *EmployeeHandler) Get(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	employee, err := h.employees.Get(c.Request().Context(), sess, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, employee)
}

// Create adds an employee directory record. The login principal is
// provisioned separately through /auth/register.
//
// @Summary      Create an employee
// @Tags         employees
// @Accept       json
// @Produce      json
// @Param        body  body      createEmployeeRequest  true  "Employee"
// @Success      201   {object}  domain.Employee
// @Failure      400   {object}  map[string]string
// @Router       /employees [post]
func (h *EmployeeHandler) Create(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	var req createEmployeeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	now := time.Now().UTC()
	employee := domain.Employee{
		ID:        req.ID,
		StoreID:   recordStoreID(sess, req.StoreID),
		OwnerID:   sess.OwnerID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if employee.ID == "" {
		employee.ID = domain.NewID()
	}

	if err := h.employees.Add(c.Request().Context(), sess, employee); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, employee)
}

// Update merges a partial payload into the employee record.
//
// @Summary      Update an employee
// @Tags         employees
// @Accept       json
// @Produce      json
// @Param        id    path      string        true  "Employee id"
// @Param        body  body      domain.Patch  true  "Fields to change"
// @Success      200   {object}  domain.Employee
// @Failure      404   {object}  map[string]string
// @Router       /employees/{id} [patch]
func (h *EmployeeHandler) Update(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	patch := domain.Patch{}
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	// A change to the store, activation, or email invalidates any offline
	// credential cached under the current email.
	var staleEmail string
	for _, field := range []string{"store_id", "active", "email"} {
		if _, ok := patch[field]; ok {
			prior, err := h.employees.Get(c.Request().Context(), sess, c.Param("id"))
			if err != nil {
				return err
			}
			staleEmail = prior.Email
			break
		}
	}

	employee, err := h.employees.Update(c.Request().Context(), sess, c.Param("id"), patch)
	if err != nil {
		return err
	}

	if staleEmail != "" {
		if err := h.auth.InvalidateOfflineCredential(c.Request().Context(), staleEmail); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, employee)
}
