package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/facturio/invoicing-system/internal/api/metrics"
	"github.com/facturio/invoicing-system/internal/core/domain"
	"github.com/facturio/invoicing-system/internal/core/ports"
)

const defaultResolveTimeout = 3 * time.Second

// ModeResolver decides which backend is authoritative for a session.
//
// Administrators use the preference persisted on this device. Employees
// inherit their administrator's preference: first from the device preference
// cache, then via a bounded remote directory lookup. When neither source can
// answer, the session resolves to local — local-first never blocks on the
// network.
//
// Results are memoized per principal so that repeated calls within a session
// return the same value until an explicit mode change invalidates them.
type ModeResolver struct {
	prefs     ports.PreferenceStore
	directory ports.Directory
	timeout   time.Duration
	log       zerolog.Logger

	mu   sync.Mutex
	memo map[string]domain.Mode
}

func NewModeResolver(prefs ports.PreferenceStore, directory ports.Directory, timeout time.Duration, log zerolog.Logger) *ModeResolver {
	if timeout <= 0 {
		timeout = defaultResolveTimeout
	}
	return &ModeResolver{
		prefs:     prefs,
		directory: directory,
		timeout:   timeout,
		log:       log,
		memo:      make(map[string]domain.Mode),
	}
}

// Resolve returns the authoritative mode for the session.
func (r *ModeResolver) Resolve(ctx context.Context, sess domain.Session) domain.Mode {
	r.mu.Lock()
	if mode, ok := r.memo[sess.PrincipalID]; ok {
		r.mu.Unlock()
		return mode
	}
	r.mu.Unlock()

	mode := r.resolve(ctx, sess)

	r.mu.Lock()
	r.memo[sess.PrincipalID] = mode
	r.mu.Unlock()

	metrics.ModeResolutionsTotal.WithLabelValues(string(mode)).Inc()
	return mode
}

func (r *ModeResolver) resolve(ctx context.Context, sess domain.Session) domain.Mode {
	if sess.IsAdmin() {
		v, err := r.prefs.Get(ctx, ports.PrefMode)
		if err != nil {
			r.log.Warn().Err(err).Msg("mode preference read failed, defaulting to local")
			return domain.ModeLocal
		}
		return domain.ParseMode(v)
	}

	// Employee: inherited preference cached on this device?
	cacheKey := ports.PrefAdminMode + sess.OwnerID
	if v, err := r.prefs.Get(ctx, cacheKey); err == nil && v != "" {
		return domain.ParseMode(v)
	}

	// Cache empty: bounded remote lookup of the administrator's preference.
	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	mode, err := r.directory.AdminMode(lookupCtx, sess.OwnerID)
	if err != nil {
		r.log.Warn().Err(err).
			Str("admin_id", sess.OwnerID).
			Msg("admin mode lookup failed, defaulting to local")
		return domain.ModeLocal
	}

	// Write-through so the next session on this device resolves synchronously.
	if err := r.prefs.Set(ctx, cacheKey, string(mode)); err != nil {
		r.log.Warn().Err(err).Msg("failed to cache inherited mode")
	}
	return mode
}

// Invalidate drops the memoized mode for one principal.
func (r *ModeResolver) Invalidate(principalID string) {
	r.mu.Lock()
	delete(r.memo, principalID)
	r.mu.Unlock()
}

// InvalidateAll drops every memoized mode. Called when the device preference
// changes, since employee sessions inherit it transitively.
func (r *ModeResolver) InvalidateAll() {
	r.mu.Lock()
	r.memo = make(map[string]domain.Mode)
	r.mu.Unlock()
}
