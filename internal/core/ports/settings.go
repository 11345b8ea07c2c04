package ports

import (
	"context"

	"github.com/facturio/invoicing-system/internal/core/domain"
)

// SettingsService reads and writes the device-level persistence mode.
type SettingsService interface {
	Mode(ctx context.Context) (domain.Mode, error)
	// SetMode persists the device preference and mirrors it to the remote
	// user record. Admin only.
	SetMode(ctx context.Context, sess domain.Session, mode domain.Mode) error
}
