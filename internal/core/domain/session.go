package domain

import "time"

const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

// Session is the envelope carried by every scoped operation. It is produced
// by the auth flow and travels as JWT claims.
//
// OwnerID is the administrator that owns the session's tenant namespace. For
// admin sessions it equals PrincipalID; for employee sessions it identifies
// the administrator whose mode and remote namespace the employee inherits.
type Session struct {
	PrincipalID string    `json:"principal_id"`
	Role        string    `json:"role"`
	StoreID     string    `json:"store_id,omitempty"`
	OwnerID     string    `json:"owner_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IsAdmin reports whether the session belongs to an administrator.
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// Expired reports whether the session is past its expiry at the given instant.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
