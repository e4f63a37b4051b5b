package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about records, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: a unique constraint rejected the write
// - ErrDanglingReference: a referenced entity does not exist at write time
// - ErrStale: the stored row changed since the caller read it
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: store timed out or is unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrDanglingReference = errors.New("dangling reference")
	ErrStale             = errors.New("stale state")
	ErrInvalidState      = errors.New("invalid state")
	ErrUnavailable       = errors.New("unavailable")
)
