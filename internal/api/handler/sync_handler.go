package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/facturio/invoicing-system/internal/core/ports"
)

type SyncHandler struct {
	syncService ports.SyncService
}

func NewSyncHandler(syncService ports.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

// SyncAll pushes every unsynced local record to the remote backend and
// reports per-kind counts. A run with per-kind failures still returns 200:
// the summary's errors list carries what did not make it.
//
// @Summary      Push local records to the remote backend
// @Tags         sync
// @Produce      json
// @Success      200  {object}  ports.SyncSummary
// @Failure      403  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /sync [post]
func (h *SyncHandler) SyncAll(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	summary, err := h.syncService.SyncAll(c.Request().Context(), sess)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}
