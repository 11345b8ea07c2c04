package service

import "sync"

// StockProjection is the optimistic display layer for product quantities.
//
// UI consumers show Project(stored) while a backend write is outstanding:
// staged deltas are applied on top of the authoritative stored value and
// released when the write resolves. Commit after a successful write (the
// stored value now reflects the delta), Rollback after a failed one (the
// stored value never changed). Either way the projection converges back to
// the authoritative store instead of silently diverging from it.
type StockProjection struct {
	mu      sync.Mutex
	pending map[string]int // product id → sum of staged deltas
}

func NewStockProjection() *StockProjection {
	return &StockProjection{pending: make(map[string]int)}
}

// Reservation is one write's worth of staged deltas.
type Reservation struct {
	proj   *StockProjection
	deltas map[string]int
	done   bool
}

// Begin opens a reservation for a single pending write.
func (p *StockProjection) Begin() *Reservation {
	return &Reservation{proj: p, deltas: make(map[string]int)}
}

// Stage applies a delta (negative for a sale) to the projected quantity.
func (r *Reservation) Stage(productID string, delta int) {
	if r.done {
		return
	}
	r.deltas[productID] += delta
	r.proj.mu.Lock()
	r.proj.pending[productID] += delta
	r.proj.mu.Unlock()
}

// Commit releases the reservation after the backend write succeeded.
func (r *Reservation) Commit() { r.release() }

// Rollback releases the reservation after the backend write failed.
func (r *Reservation) Rollback() { r.release() }

func (r *Reservation) release() {
	if r.done {
		return
	}
	r.done = true
	r.proj.mu.Lock()
	for id, delta := range r.deltas {
		r.proj.pending[id] -= delta
		if r.proj.pending[id] == 0 {
			delete(r.proj.pending, id)
		}
	}
	r.proj.mu.Unlock()
}

// Project returns the quantity to display: the stored value plus any deltas
// staged by writes that have not resolved yet.
func (p *StockProjection) Project(productID string, stored int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return stored + p.pending[productID]
}
