package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/facturio/invoicing-system/internal/core/domain"
	"github.com/facturio/invoicing-system/internal/core/ports"
)

func TestSettings_SetModeRequiresAdmin(t *testing.T) {
	prefs := newStubPrefs()
	modes := NewModeResolver(prefs, &stubDirectory{}, time.Second, zerolog.Nop())
	s := NewSettings(prefs, newStubUsers(), modes, zerolog.Nop())

	err := s.SetMode(context.Background(), employeeSession("emp_1", "store_1", "adm_1"), domain.ModeRemote)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestSettings_SetModeRejectsUnknownMode(t *testing.T) {
	prefs := newStubPrefs()
	modes := NewModeResolver(prefs, &stubDirectory{}, time.Second, zerolog.Nop())
	s := NewSettings(prefs, newStubUsers(), modes, zerolog.Nop())

	err := s.SetMode(context.Background(), adminSession("adm_1"), domain.Mode("hybrid"))
	if !errors.Is(err, domain.ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
}

func TestSettings_SetModePersistsMirrorsAndInvalidates(t *testing.T) {
	prefs := newStubPrefs()
	users := newStubUsers()
	modes := NewModeResolver(prefs, &stubDirectory{}, time.Second, zerolog.Nop())
	s := NewSettings(prefs, users, modes, zerolog.Nop())
	sess := adminSession("adm_1")

	// Prime the memo with the current (local) resolution.
	if got := modes.Resolve(context.Background(), sess); got != domain.ModeLocal {
		t.Fatalf("expected local before change, got %s", got)
	}

	if err := s.SetMode(context.Background(), sess, domain.ModeRemote); err != nil {
		t.Fatalf("set mode: %v", err)
	}

	if prefs.values[ports.PrefMode] != "remote" {
		t.Fatalf("preference not persisted: %q", prefs.values[ports.PrefMode])
	}
	if users.modes["adm_1"] != domain.ModeRemote {
		t.Fatalf("remote mirror not written: %+v", users.modes)
	}
	// The memoized resolution was invalidated, so the change takes effect.
	if got := modes.Resolve(context.Background(), sess); got != domain.ModeRemote {
		t.Fatalf("resolver still serves the old mode: %s", got)
	}
}

func TestSettings_SetModeSurvivesUnreachableMirror(t *testing.T) {
	prefs := newStubPrefs()
	users := newStubUsers()
	users.setErr = domain.ErrBackendUnreachable
	modes := NewModeResolver(prefs, &stubDirectory{}, time.Second, zerolog.Nop())
	s := NewSettings(prefs, users, modes, zerolog.Nop())

	// Local-first: the device change lands even when the backend is down.
	if err := s.SetMode(context.Background(), adminSession("adm_1"), domain.ModeLocal); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	if prefs.values[ports.PrefMode] != "local" {
		t.Fatalf("preference not persisted")
	}
}

func TestSettings_ModeReadsDevicePreference(t *testing.T) {
	prefs := newStubPrefs()
	prefs.values[ports.PrefMode] = "remote"
	modes := NewModeResolver(prefs, &stubDirectory{}, time.Second, zerolog.Nop())
	s := NewSettings(prefs, newStubUsers(), modes, zerolog.Nop())

	mode, err := s.Mode(context.Background())
	if err != nil {
		t.Fatalf("mode: %v", err)
	}
	if mode != domain.ModeRemote {
		t.Fatalf("expected remote, got %s", mode)
	}
}
