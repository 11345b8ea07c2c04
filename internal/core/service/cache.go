package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/facturio/invoicing-system/internal/api/metrics"
	"github.com/facturio/invoicing-system/internal/core/domain"
)

// Cache abstracts the query cache (Redis in production, in-process in tests
// and single-node deployments). Get returns nil on a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte) error
	// Incr bumps and returns a generation counter. Invalidation works by
	// bumping the kind's generation, which orphans every key minted under
	// the previous generation.
	Incr(ctx context.Context, key string) (int64, error)
	// Counter reads a generation counter without bumping it.
	Counter(ctx context.Context, key string) (int64, error)
}

// CachedRecords wraps a Records facade with an invalidate-on-write cache so
// UI consumers do not each re-resolve backend selection. Keys include the
// resolved mode: data written under one mode is never served as if it came
// from the other.
//
// Invalidation is keyed per entity kind, not per record. Two concurrent
// writes to different records of the same kind can race a stale refetch into
// the cache until the next write bumps the generation again; this is an
// accepted trade-off of the coarse key.
type CachedRecords[T domain.Record] struct {
	inner *Records[T]
	cache Cache
	log   zerolog.Logger
}

func NewCachedRecords[T domain.Record](inner *Records[T], cache Cache, log zerolog.Logger) *CachedRecords[T] {
	return &CachedRecords[T]{inner: inner, cache: cache, log: log}
}

// Kind returns the entity kind this layer serves.
func (c *CachedRecords[T]) Kind() domain.Kind { return c.inner.Kind() }

func (c *CachedRecords[T]) genKey(owner string) string {
	return fmt.Sprintf("records:gen:%s:%s", c.inner.Kind(), owner)
}

// List serves from the cache when a fresh entry exists for the session's
// resolved mode and scope, otherwise reads through the facade.
func (c *CachedRecords[T]) List(ctx context.Context, sess domain.Session) ([]T, error) {
	mode, filter, err := c.inner.scope(ctx, sess)
	if err != nil {
		return []T{}, err
	}

	gen, err := c.cache.Counter(ctx, c.genKey(filter.OwnerID))
	if err != nil {
		c.log.Warn().Err(err).Msg("cache generation read failed, bypassing cache")
		return c.inner.List(ctx, sess)
	}
	key := fmt.Sprintf("records:%s:%s:g%d:%s:%s", c.inner.Kind(), mode, gen, filter.OwnerID, filter.StoreID)

	if raw, err := c.cache.Get(ctx, key); err == nil && raw != nil {
		var recs []T
		if err := json.Unmarshal(raw, &recs); err == nil {
			metrics.CacheLookupsTotal.WithLabelValues(string(c.inner.Kind()), "hit").Inc()
			return recs, nil
		}
	}
	metrics.CacheLookupsTotal.WithLabelValues(string(c.inner.Kind()), "miss").Inc()

	recs, err := c.inner.List(ctx, sess)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(recs); err == nil {
		if err := c.cache.Set(ctx, key, raw); err != nil {
			c.log.Warn().Err(err).Msg("cache set failed")
		}
	}
	return recs, nil
}

// ListWhere bypasses the cache: field-constrained queries are too varied to
// key usefully.
func (c *CachedRecords[T]) ListWhere(ctx context.Context, sess domain.Session, fields map[string]any) ([]T, error) {
	return c.inner.ListWhere(ctx, sess, fields)
}

// Get reads through without caching: point reads are cheap on both backends
// and caching them would widen the staleness window for no measurable win.
func (c *CachedRecords[T]) Get(ctx context.Context, sess domain.Session, id string) (T, error) {
	return c.inner.Get(ctx, sess, id)
}

// Add writes through the facade and invalidates the kind's cached queries.
func (c *CachedRecords[T]) Add(ctx context.Context, sess domain.Session, rec T) error {
	if err := c.inner.Add(ctx, sess, rec); err != nil {
		return err
	}
	c.invalidate(ctx, rec.RecordOwnerID())
	return nil
}

// Update writes through the facade and invalidates the kind's cached queries.
func (c *CachedRecords[T]) Update(ctx context.Context, sess domain.Session, id string, patch domain.Patch) (T, error) {
	rec, err := c.inner.Update(ctx, sess, id, patch)
	if err != nil {
		return rec, err
	}
	c.invalidate(ctx, rec.RecordOwnerID())
	return rec, nil
}

func (c *CachedRecords[T]) invalidate(ctx context.Context, owner string) {
	if _, err := c.cache.Incr(ctx, c.genKey(owner)); err != nil {
		c.log.Warn().Err(err).Str("kind", string(c.inner.Kind())).Msg("cache invalidation failed")
	}
}

// MemoryCache is the in-process Cache used in tests and when Redis is not
// configured.
type MemoryCache struct {
	mu       sync.Mutex
	entries  map[string][]byte
	counters map[string]int64
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries:  make(map[string][]byte),
		counters: make(map[string]int64),
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[key], nil
}

func (m *MemoryCache) Set(_ context.Context, key string, val []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = val
	return nil
}

func (m *MemoryCache) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key]++
	return m.counters[key], nil
}

func (m *MemoryCache) Counter(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key], nil
}
