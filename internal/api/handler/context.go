package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/facturio/invoicing-system/internal/core/domain"
)

// ctxSession extracts the session injected by the Auth middleware and
// performs a fast-fail check before any service call: a role proves the
// middleware ran, and an employee session without a store is structurally
// valid but operationally unusable.
func ctxSession(c echo.Context) (domain.Session, error) {
	sess, _ := c.Get("session").(domain.Session)
	if sess.Role == "" {
		return domain.Session{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	if sess.Role == domain.RoleEmployee && sess.StoreID == "" {
		return domain.Session{}, echo.NewHTTPError(http.StatusUnauthorized, "token missing store identity")
	}
	return sess, nil
}
