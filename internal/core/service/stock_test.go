package service

import "testing"

func TestStockProjection_StagedDeltaShowsImmediately(t *testing.T) {
	p := NewStockProjection()
	res := p.Begin()
	res.Stage("p1", -3)

	if got := p.Project("p1", 10); got != 7 {
		t.Fatalf("expected projected 7, got %d", got)
	}
	// Unrelated products are unaffected.
	if got := p.Project("p2", 5); got != 5 {
		t.Fatalf("expected untouched 5, got %d", got)
	}
}

func TestStockProjection_CommitConvergesToStoredValue(t *testing.T) {
	p := NewStockProjection()
	res := p.Begin()
	res.Stage("p1", -3)
	res.Commit()

	// After commit the stored value already reflects the sale.
	if got := p.Project("p1", 7); got != 7 {
		t.Fatalf("expected 7 after commit, got %d", got)
	}
}

func TestStockProjection_RollbackRestoresDisplay(t *testing.T) {
	p := NewStockProjection()
	res := p.Begin()
	res.Stage("p1", -3)
	res.Rollback()

	// The write failed: the stored value never changed.
	if got := p.Project("p1", 10); got != 10 {
		t.Fatalf("expected 10 after rollback, got %d", got)
	}
}

func TestStockProjection_ReleaseIsIdempotent(t *testing.T) {
	p := NewStockProjection()
	res := p.Begin()
	res.Stage("p1", -2)
	res.Commit()
	res.Rollback() // late release must not double-apply

	if got := p.Project("p1", 8); got != 8 {
		t.Fatalf("expected 8, got %d", got)
	}
}

func TestStockProjection_ConcurrentReservationsStack(t *testing.T) {
	p := NewStockProjection()
	a := p.Begin()
	b := p.Begin()
	a.Stage("p1", -2)
	b.Stage("p1", -1)

	if got := p.Project("p1", 10); got != 7 {
		t.Fatalf("expected both reservations visible, got %d", got)
	}

	a.Rollback()
	if got := p.Project("p1", 10); got != 9 {
		t.Fatalf("expected only b's delta, got %d", got)
	}
	b.Commit()
	if got := p.Project("p1", 9); got != 9 {
		t.Fatalf("expected converged value, got %d", got)
	}
}
