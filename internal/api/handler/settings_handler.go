package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/facturio/invoicing-system/internal/core/domain"
	"github.com/facturio/invoicing-system/internal/core/ports"
)

type SettingsHandler struct {
	settings    ports.SettingsService
	authService ports.AuthService
}

func NewSettingsHandler(settings ports.SettingsService, authService ports.AuthService) *SettingsHandler {
	return &SettingsHandler{settings: settings, authService: authService}
}

type modeResponse struct {
	Mode domain.Mode `json:"mode"`
}

type setModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=local remote"`
}

type offlineLoginRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// Mode returns the device's persisted persistence mode.
//
// @Summary      Get the device mode
// @Tags         settings
// @Produce      json
// @Success      200  {object}  modeResponse
// @Router       /settings/mode [get]
func (h *SettingsHandler) Mode(c echo.Context) error {
	if _, err := ctxSession(c); err != nil {
		return err
	}
	mode, err := h.settings.Mode(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, modeResponse{Mode: mode})
}

// SetMode switches the device between local and remote persistence.
// Employees inherit their admin's mode and cannot set one.
//
// @Summary      Set the device mode
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        body  body      setModeRequest  true  "Mode"
// @Success      200   {object}  modeResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /settings/mode [put]
func (h *SettingsHandler) SetMode(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	var req setModeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	mode := domain.ParseMode(req.Mode)
	if err := h.settings.SetMode(c.Request().Context(), sess, mode); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, modeResponse{Mode: mode})
}

// SetOfflineLogin toggles the offline credential fallback. Disabling it
// purges every cached credential before returning.
//
// @Summary      Toggle offline login
// @Tags         settings
// @Accept       json
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /settings/offline-login [put]
func (h *SettingsHandler) SetOfflineLogin(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	if !sess.IsAdmin() {
		return domain.ErrForbidden
	}
	var req offlineLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.authService.SetOfflineLogin(c.Request().Context(), *req.Enabled); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
