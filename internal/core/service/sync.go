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

// Sync is the reconciliation engine: a one-shot, operator-initiated,
// one-directional push of local records into the remote backend.
//
// Pushes run in the fixed dependency order (stores, employees, customers,
// products, invoices, invoice lines) because the later kinds reference the
// earlier ones by id. Each record is upsert-by-id, so reruns after a partial
// failure never duplicate remote records; successfully pushed records are
// marked synced and skipped next time. Local records are never deleted, and
// nothing is ever pulled back from remote to local.
//
// Conflict policy: when the same id was edited on both backends between
// syncs, the local copy wins — the operator initiating the push is
// explicitly moving authority to the remote backend. Remote edits made
// before the push are overwritten.
type Sync struct {
	steps []syncStep
	log   zerolog.Logger
}

// syncStep erases the record type so heterogeneous kinds can run in order.
type syncStep interface {
	Kind() domain.Kind
	DependsOn() []domain.Kind
	Push(ctx context.Context) (int, error)
}

// NewSync wires one step per entity kind, in dependency order.
func NewSync(
	stores syncPair[domain.Store],
	employees syncPair[domain.Employee],
	customers syncPair[domain.Customer],
	products syncPair[domain.Product],
	invoices syncPair[domain.Invoice],
	lines syncPair[domain.InvoiceLine],
	log zerolog.Logger,
) *Sync {
	return &Sync{
		log: log,
		steps: []syncStep{
			newStep(domain.KindStore, nil, stores, log),
			newStep(domain.KindEmployee, []domain.Kind{domain.KindStore}, employees, log),
			newStep(domain.KindCustomer, []domain.Kind{domain.KindStore}, customers, log),
			newStep(domain.KindProduct, []domain.Kind{domain.KindStore}, products, log),
			newStep(domain.KindInvoice, []domain.Kind{domain.KindStore, domain.KindCustomer, domain.KindProduct}, invoices, log),
			newStep(domain.KindInvoiceLine, []domain.Kind{domain.KindInvoice}, lines, log),
		},
	}
}

// syncPair bundles the two adapters for one kind.
type syncPair[T domain.Record] struct {
	Local  ports.LocalRepository[T]
	Remote ports.RemoteRepository[T]
}

// Pair builds a syncPair for NewSync.
func Pair[T domain.Record](local ports.LocalRepository[T], remote ports.RemoteRepository[T]) syncPair[T] {
	return syncPair[T]{Local: local, Remote: remote}
}

// SyncAll pushes every unsynced local record to the remote backend and
// reports per-kind counts. A kind's failure is reported in the summary and
// skips its dependents, but independent kinds still run.
func (s *Sync) SyncAll(ctx context.Context, sess domain.Session) (*ports.SyncSummary, error) {
	if !sess.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	summary := &ports.SyncSummary{}
	failed := make(map[domain.Kind]bool)

	for _, step := range s.steps {
		if dep := failedDep(step, failed); dep != "" {
			failed[step.Kind()] = true
			summary.Errors = append(summary.Errors, ports.SyncError{
				Kind:    step.Kind(),
				Message: fmt.Sprintf("skipped: %s failed", dep),
				Skipped: true,
			})
			continue
		}

		count, err := step.Push(ctx)
		s.record(summary, step.Kind(), count)
		metrics.SyncRecordsTotal.WithLabelValues(string(step.Kind())).Add(float64(count))
		if err != nil {
			failed[step.Kind()] = true
			summary.Errors = append(summary.Errors, ports.SyncError{Kind: step.Kind(), Message: err.Error()})
			metrics.SyncErrorsTotal.WithLabelValues(string(step.Kind())).Inc()
			s.log.Error().Err(err).Str("kind", string(step.Kind())).Msg("sync push failed")
			continue
		}
		s.log.Info().Str("kind", string(step.Kind())).Int("pushed", count).Msg("sync push complete")
	}

	return summary, nil
}

func failedDep(step syncStep, failed map[domain.Kind]bool) domain.Kind {
	for _, dep := range step.DependsOn() {
		if failed[dep] {
			return dep
		}
	}
	return ""
}

func (s *Sync) record(summary *ports.SyncSummary, kind domain.Kind, count int) {
	switch kind {
	case domain.KindStore:
		summary.StoresSynced = count
	case domain.KindEmployee:
		summary.EmployeesSynced = count
	case domain.KindCustomer:
		summary.CustomersSynced = count
	case domain.KindProduct:
		summary.ProductsSynced = count
	case domain.KindInvoice:
		summary.InvoicesSynced = count
	case domain.KindInvoiceLine:
		summary.InvoiceLinesSynced = count
	}
}

type step[T domain.Record] struct {
	kind   domain.Kind
	deps   []domain.Kind
	local  ports.LocalRepository[T]
	remote ports.RemoteRepository[T]
	log    zerolog.Logger
}

func newStep[T domain.Record](kind domain.Kind, deps []domain.Kind, pair syncPair[T], log zerolog.Logger) *step[T] {
	return &step[T]{kind: kind, deps: deps, local: pair.Local, remote: pair.Remote, log: log}
}

func (s *step[T]) Kind() domain.Kind        { return s.kind }
func (s *step[T]) DependsOn() []domain.Kind { return s.deps }

// Push upserts every unsynced local record into the remote backend and marks
// the pushed ones synced. On the first remote failure the step stops (the
// backend is likely unreachable), but records pushed so far stay marked so a
// rerun does not re-upload them.
func (s *step[T]) Push(ctx context.Context) (int, error) {
	recs, err := s.local.ListUnsynced(ctx)
	if err != nil {
		return 0, fmt.Errorf("list unsynced %s: %w", s.kind, err)
	}

	var pushed []string
	var pushErr error
	for _, rec := range recs {
		if err := s.remote.Upsert(ctx, rec); err != nil {
			pushErr = fmt.Errorf("upsert %s %s: %w", s.kind, rec.RecordID(), err)
			break
		}
		pushed = append(pushed, rec.RecordID())
	}

	if len(pushed) > 0 {
		if err := s.local.MarkSynced(ctx, pushed, time.Now().UTC()); err != nil {
			// Worst case the records are re-upserted next run; the upsert is
			// idempotent so no duplicates result.
			s.log.Warn().Err(err).Str("kind", string(s.kind)).Msg("failed to mark records synced")
		}
	}
	return len(pushed), pushErr
}
