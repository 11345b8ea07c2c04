package domain

import "errors"

var (
	ErrNotFound           = errors.New("record not found")
	ErrMissingID          = errors.New("record id must be supplied by the caller")
	ErrDuplicateID        = errors.New("record id already exists")
	ErrStoreReassigned    = errors.New("store_id cannot be reassigned to a different store")
	ErrForbidden          = errors.New("access forbidden")
	ErrInvalidMode        = errors.New("mode must be \"local\" or \"remote\"")
	ErrIdentityUnresolved = errors.New("cannot resolve owning administrator identity")

	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUserExists           = errors.New("user already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrOfflineLoginDisabled = errors.New("offline login is not enabled")
	ErrCredentialStale      = errors.New("cached credential is stale")

	ErrSequenceContention = errors.New("invoice number sequence contention")
	ErrBackendUnreachable = errors.New("backend unreachable")

	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidAmount     = errors.New("invalid monetary amount")
)
