package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/facturio/invoicing-system/internal/api/metrics"
	"github.com/facturio/invoicing-system/internal/core/domain"
	"github.com/facturio/invoicing-system/internal/core/ports"
)

const (
	sequenceAttempts = 3
	sequenceBackoff  = 50 * time.Millisecond
)

// Sequences issues invoice numbers. Numbers are a legal artifact: the
// formatted shape never changes once issued, and contention is retried with
// bounded backoff and then surfaced — never silently defaulted to a scheme
// that could collide.
type Sequences struct {
	local    ports.SequenceRepository
	remote   ports.SequenceRepository
	modes    *ModeResolver
	deviceID string
	log      zerolog.Logger
}

func NewSequences(local, remote ports.SequenceRepository, modes *ModeResolver, deviceID string, log zerolog.Logger) *Sequences {
	return &Sequences{local: local, remote: remote, modes: modes, deviceID: deviceID, log: log}
}

// NextInvoiceNumber returns the next formatted number for the store.
//
// Local mode keys the counter by (store, device) and embeds the device tag
// in the prefix, so two offline devices can never mint the same formatted
// number. Remote mode shares one store-scoped counter: the adapter performs
// a single atomic increment-and-read at the backend, which keeps concurrent
// devices collision-free.
func (s *Sequences) NextInvoiceNumber(ctx context.Context, sess domain.Session, store domain.Store) (string, error) {
	mode := s.modes.Resolve(ctx, sess)

	prefix := store.InvoiceTag
	if prefix == "" {
		prefix = store.Code
	}

	repo := s.remote
	key := ports.SequenceKey{StoreID: store.ID}
	if mode == domain.ModeLocal {
		repo = s.local
		key.DeviceID = s.deviceID
		prefix = fmt.Sprintf("%s-%s", prefix, s.deviceID)
	}

	n, err := s.next(ctx, repo, key)
	if err != nil {
		return "", err
	}
	number := fmt.Sprintf("%s-%04d", prefix, n)

	// Adapters that track the last issued formatted number get told about
	// it; issuance itself only depends on the counter.
	if rec, ok := repo.(interface {
		RecordIssued(ctx context.Context, key ports.SequenceKey, number string) error
	}); ok {
		if err := rec.RecordIssued(ctx, key, number); err != nil {
			s.log.Warn().Err(err).Str("number", number).Msg("failed to record issued number")
		}
	}
	return number, nil
}

func (s *Sequences) next(ctx context.Context, repo ports.SequenceRepository, key ports.SequenceKey) (int64, error) {
	backoff := sequenceBackoff
	var lastErr error

	for attempt := 1; attempt <= sequenceAttempts; attempt++ {
		n, err := repo.Next(ctx, key)
		if err == nil {
			return n, nil
		}
		lastErr = err
		metrics.SequenceRetriesTotal.Inc()
		s.log.Warn().Err(err).
			Str("store_id", key.StoreID).
			Int("attempt", attempt).
			Msg("sequence increment failed")

		if attempt == sequenceAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return 0, fmt.Errorf("%w: %w", domain.ErrSequenceContention, lastErr)
}
