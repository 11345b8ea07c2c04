package ports

import (
	"context"

	"github.com/facturio/invoicing-system/internal/core/domain"
)

// UserRepository defines credential persistence on the remote backend.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// SetMode stores an administrator's mode preference so that employee
	// sessions on other devices can inherit it.
	SetMode(ctx context.Context, adminID string, mode domain.Mode) error
}

// Directory resolves principal relationships from the remote backend. It is
// consulted only when the local preference cache cannot answer.
type Directory interface {
	// AdminFor returns the id of the administrator owning the given
	// principal. For administrators it returns the principal's own id.
	AdminFor(ctx context.Context, principalID string) (string, error)
	// AdminMode returns the administrator's stored mode preference.
	AdminMode(ctx context.Context, adminID string) (domain.Mode, error)
}
