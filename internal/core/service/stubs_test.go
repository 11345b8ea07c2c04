package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/facturio/invoicing-system/internal/core/domain"
	"github.com/facturio/invoicing-system/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories shared by the tests in this package
// ---------------------------------------------------------------------------

// memRepo satisfies both ports.LocalRepository and ports.RemoteRepository so
// one stub type can play either side of the facade.
type memRepo[T domain.Record] struct {
	mu       sync.Mutex
	recs     map[string]T
	order    []string
	unsynced map[string]bool

	upserts   []string // record ids in upsert order
	listCalls int

	addErr    error
	updateErr error
	listErr   error
	upsertErr error
	// failUpsertID makes Upsert fail for one specific record only.
	failUpsertID string
}

func newMemRepo[T domain.Record]() *memRepo[T] {
	return &memRepo[T]{
		recs:     make(map[string]T),
		unsynced: make(map[string]bool),
	}
}

// seed inserts a record directly, already marked synced.
func (m *memRepo[T]) seed(rec T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[rec.RecordID()] = rec
	m.order = append(m.order, rec.RecordID())
}

func (m *memRepo[T]) Get(_ context.Context, id string) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		var zero T
		return zero, domain.ErrNotFound
	}
	return rec, nil
}

// List applies the same scope filters the real adapters would: owner match,
// store match with legacy pass-through, then exact-match field constraints
// on the serialized document.
func (m *memRepo[T]) List(_ context.Context, f ports.RecordFilter) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}

	out := []T{}
	for _, id := range m.order {
		rec := m.recs[id]
		if f.OwnerID != "" && rec.RecordOwnerID() != f.OwnerID {
			continue
		}
		if f.StoreID != "" && rec.RecordStoreID() != "" && rec.RecordStoreID() != f.StoreID {
			continue
		}
		if !matchFields(rec, f.Fields) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func matchFields(rec any, fields map[string]any) bool {
	if len(fields) == 0 {
		return true
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return false
	}
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return false
	}
	for k, want := range fields {
		if doc[k] != want {
			return false
		}
	}
	return true
}

func (m *memRepo[T]) Add(_ context.Context, rec T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	if _, ok := m.recs[rec.RecordID()]; ok {
		return domain.ErrDuplicateID
	}
	m.recs[rec.RecordID()] = rec
	m.order = append(m.order, rec.RecordID())
	m.unsynced[rec.RecordID()] = true
	return nil
}

// Update merges the patch through a JSON round-trip, mirroring the document
// merge the real adapters perform.
func (m *memRepo[T]) Update(_ context.Context, id string, patch domain.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	rec, ok := m.recs[id]
	if !ok {
		return domain.ErrNotFound
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	for k, v := range patch {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var next T
	if err := json.Unmarshal(merged, &next); err != nil {
		return err
	}
	m.recs[id] = next
	m.unsynced[id] = true
	return nil
}

func (m *memRepo[T]) ListUnsynced(_ context.Context) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []T{}
	for _, id := range m.order {
		if m.unsynced[id] {
			out = append(out, m.recs[id])
		}
	}
	return out, nil
}

func (m *memRepo[T]) MarkSynced(_ context.Context, ids []string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.unsynced, id)
	}
	return nil
}

func (m *memRepo[T]) Upsert(_ context.Context, rec T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if m.failUpsertID != "" && rec.RecordID() == m.failUpsertID {
		return domain.ErrBackendUnreachable
	}
	if _, ok := m.recs[rec.RecordID()]; !ok {
		m.order = append(m.order, rec.RecordID())
	}
	m.recs[rec.RecordID()] = rec
	m.upserts = append(m.upserts, rec.RecordID())
	return nil
}

// stubPrefs is an in-memory ports.PreferenceStore.
type stubPrefs struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
}

func newStubPrefs() *stubPrefs {
	return &stubPrefs{values: make(map[string]string)}
}

func (p *stubPrefs) Get(_ context.Context, key string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.getErr != nil {
		return "", p.getErr
	}
	return p.values[key], nil
}

func (p *stubPrefs) Set(_ context.Context, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
	return nil
}

func (p *stubPrefs) Delete(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.values, key)
	return nil
}

// stubDirectory answers admin lookups from fixed maps.
type stubDirectory struct {
	admins     map[string]string      // principal id → admin id
	modes      map[string]domain.Mode // admin id → stored mode
	lookupErr  error
	modeCalls  int
	adminCalls int
}

func (d *stubDirectory) AdminFor(_ context.Context, principalID string) (string, error) {
	d.adminCalls++
	if d.lookupErr != nil {
		return "", d.lookupErr
	}
	if admin, ok := d.admins[principalID]; ok {
		return admin, nil
	}
	return "", domain.ErrUserNotFound
}

func (d *stubDirectory) AdminMode(_ context.Context, adminID string) (domain.Mode, error) {
	d.modeCalls++
	if d.lookupErr != nil {
		return "", d.lookupErr
	}
	if mode, ok := d.modes[adminID]; ok {
		return mode, nil
	}
	return "", domain.ErrUserNotFound
}

// stubUsers is an in-memory ports.UserRepository. A non-nil findErr makes
// every lookup fail, simulating an unreachable remote backend.
type stubUsers struct {
	mu      sync.Mutex
	byEmail map[string]*domain.User
	modes   map[string]domain.Mode
	findErr error
	setErr  error
}

func newStubUsers() *stubUsers {
	return &stubUsers{
		byEmail: make(map[string]*domain.User),
		modes:   make(map[string]domain.Mode),
	}
}

func (u *stubUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.findErr != nil {
		return nil, u.findErr
	}
	user, ok := u.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (u *stubUsers) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.byEmail[user.Email]; ok {
		return nil, domain.ErrUserExists
	}
	clone := *user
	u.byEmail[user.Email] = &clone
	return user, nil
}

func (u *stubUsers) SetMode(_ context.Context, adminID string, mode domain.Mode) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.setErr != nil {
		return u.setErr
	}
	u.modes[adminID] = mode
	return nil
}

// stubCreds is an in-memory ports.CredentialStore.
type stubCreds struct {
	mu      sync.Mutex
	byEmail map[string]ports.OfflineCredential
	cleared int
}

func newStubCreds() *stubCreds {
	return &stubCreds{byEmail: make(map[string]ports.OfflineCredential)}
}

func (c *stubCreds) Save(_ context.Context, cred ports.OfflineCredential) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cred.Stale = false
	c.byEmail[cred.Email] = cred
	return nil
}

func (c *stubCreds) Find(_ context.Context, email string) (*ports.OfflineCredential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cred, ok := c.byEmail[email]
	if !ok {
		return nil, nil
	}
	return &cred, nil
}

func (c *stubCreds) MarkStale(_ context.Context, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cred, ok := c.byEmail[email]; ok {
		cred.Stale = true
		c.byEmail[email] = cred
	}
	return nil
}

func (c *stubCreds) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byEmail = make(map[string]ports.OfflineCredential)
	c.cleared++
	return nil
}

// stubSequences counts per key; nextErrs fails the first n Next calls.
type stubSequences struct {
	mu       sync.Mutex
	counters map[ports.SequenceKey]int64
	nextErrs int
	calls    int
}

func newStubSequences() *stubSequences {
	return &stubSequences{counters: make(map[ports.SequenceKey]int64)}
}

func (s *stubSequences) Next(_ context.Context, key ports.SequenceKey) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.nextErrs > 0 {
		s.nextErrs--
		return 0, domain.ErrBackendUnreachable
	}
	s.counters[key]++
	return s.counters[key], nil
}

func (s *stubSequences) Current(_ context.Context, key ports.SequenceKey) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key], nil
}
