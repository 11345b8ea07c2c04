package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/facturio/invoicing-system/internal/core/domain"
	"github.com/facturio/invoicing-system/internal/core/ports"
)

// Settings is the surface behind the device-mode toggle. It is the only
// writer of the mode preference; the resolver and facades treat the flag as
// read-only.
type Settings struct {
	prefs ports.PreferenceStore
	users ports.UserRepository
	modes *ModeResolver
	log   zerolog.Logger
}

func NewSettings(prefs ports.PreferenceStore, users ports.UserRepository, modes *ModeResolver, log zerolog.Logger) *Settings {
	return &Settings{prefs: prefs, users: users, modes: modes, log: log}
}

// Mode returns the device's persisted mode preference.
func (s *Settings) Mode(ctx context.Context) (domain.Mode, error) {
	v, err := s.prefs.Get(ctx, ports.PrefMode)
	if err != nil {
		return domain.ModeLocal, err
	}
	return domain.ParseMode(v), nil
}

// SetMode persists the device preference, mirrors it to the remote user
// record so other devices' employee sessions inherit it, and invalidates
// every memoized resolution. The remote mirror is best effort: an
// unreachable backend must not block a local-first mode change.
func (s *Settings) SetMode(ctx context.Context, sess domain.Session, mode domain.Mode) error {
	if !sess.IsAdmin() {
		return domain.ErrForbidden
	}
	if !mode.Valid() {
		return domain.ErrInvalidMode
	}

	if err := s.prefs.Set(ctx, ports.PrefMode, string(mode)); err != nil {
		return err
	}
	if err := s.users.SetMode(ctx, sess.PrincipalID, mode); err != nil {
		s.log.Warn().Err(err).Msg("failed to mirror mode preference to remote backend")
	}

	s.modes.InvalidateAll()
	s.log.Info().Str("mode", string(mode)).Msg("device mode changed")
	return nil
}
