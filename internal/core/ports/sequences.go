package ports

import "context"

// SequenceKey scopes an invoice number counter. The local backend keys by
// (store, device) because devices cannot coordinate offline; the remote
// backend leaves DeviceID empty and shares one store-scoped counter across
// all devices.
type SequenceKey struct {
	StoreID  string
	DeviceID string
}

// SequenceRepository issues monotonically increasing counter values.
//
// Next must be a single atomic increment-and-read at the backend, never a
// read-then-write from the caller: two devices racing on the remote counter
// must never observe the same value. Counters never regress.
type SequenceRepository interface {
	Next(ctx context.Context, key SequenceKey) (int64, error)
	// Current returns the last issued value, or 0 when none was issued yet.
	Current(ctx context.Context, key SequenceKey) (int64, error)
}
