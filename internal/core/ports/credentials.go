package ports

import (
	"context"
	"time"
)

// OfflineCredential is the device-cached verifier for one principal. It holds
// a salted hash, never the plaintext password.
type OfflineCredential struct {
	Email        string
	PasswordHash string
	PrincipalID  string
	Role         string
	StoreID      string
	OwnerID      string
	Stale        bool
	UpdatedAt    time.Time
}

// CredentialStore persists offline credentials on the embedded backend. The
// whole store is purged when the operator disables offline login.
type CredentialStore interface {
	// Save stores or replaces the credential for its email and resets the
	// staleness marker.
	Save(ctx context.Context, cred OfflineCredential) error
	// Find returns the cached credential, or nil when none exists.
	Find(ctx context.Context, email string) (*OfflineCredential, error)
	// MarkStale invalidates a credential after a role or store change
	// without discarding it; a fresh remote login replaces it.
	MarkStale(ctx context.Context, email string) error
	// Clear removes every stored credential unconditionally.
	Clear(ctx context.Context) error
}
