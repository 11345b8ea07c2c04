package ports

import "context"

// Well-known device preference keys.
const (
	PrefMode         = "mode"                  // "local" | "remote"
	PrefOfflineLogin = "offline_login_enabled" // "true" | "false"
	PrefAdminMode    = "admin_mode:"           // prefix; + admin id → cached inherited mode
)

// PreferenceStore persists per-device settings on the embedded backend.
// Get returns "" (no error) for an absent key.
type PreferenceStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
