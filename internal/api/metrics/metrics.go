// Package metrics defines and registers all custom Prometheus metrics for
// the invoicing API. It is the single source of truth for metric names,
// labels, and help strings; promauto registers everything with the default
// registry at package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "invoicing"

// ── Mode resolution ──────────────────────────────────────────────────────────

// ModeResolutionsTotal counts resolver decisions by the mode they produced.
var ModeResolutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mode_resolutions_total",
		Help:      "Total number of backend mode resolutions, by resolved mode.",
	},
	[]string{"mode"},
)

// ── Sequence generator ───────────────────────────────────────────────────────

// SequenceRetriesTotal counts failed atomic increments that were retried.
var SequenceRetriesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sequence_retries_total",
		Help:      "Total number of invoice number increments that failed and were retried.",
	},
)

// ── Reconciliation ───────────────────────────────────────────────────────────

// SyncRecordsTotal counts records pushed to the remote backend.
// Label:
//   - kind: entity kind ("stores", "customers", ...)
var SyncRecordsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_records_total",
		Help:      "Total number of local records pushed to the remote backend, by kind.",
	},
	[]string{"kind"},
)

// SyncErrorsTotal counts entity kinds that failed within a sync run.
var SyncErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_errors_total",
		Help:      "Total number of per-kind reconciliation failures.",
	},
	[]string{"kind"},
)

// ── Query cache ──────────────────────────────────────────────────────────────

// CacheLookupsTotal counts cached query layer lookups.
// Labels:
//   - kind: entity kind
//   - result: "hit" or "miss"
var CacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Total number of cached query lookups, by kind and result.",
	},
	[]string{"kind", "result"},
)
