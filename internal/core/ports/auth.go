package ports

import (
	"context"

	"github.com/facturio/invoicing-system/internal/core/domain"
)

// AuthService establishes sessions. Login tries the remote backend first and
// falls back to the offline credential cache when the remote side is
// unreachable and offline login has been enabled.
type AuthService interface {
	Register(ctx context.Context, email, password, role, storeID, ownerID string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, domain.Session, error)
	// Logout clears the offline credential cache for this device.
	Logout(ctx context.Context) error
	// SetOfflineLogin toggles the offline fallback. Disabling purges every
	// stored credential synchronously.
	SetOfflineLogin(ctx context.Context, enabled bool) error
	// InvalidateOfflineCredential marks the cached credential for an email
	// stale after a role or store change. The next successful remote login
	// replaces it.
	InvalidateOfflineCredential(ctx context.Context, email string) error
}
