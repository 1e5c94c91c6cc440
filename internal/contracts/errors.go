package contracts

import "errors"

// ⭐ SSOT: 도메인 에러 정의는 여기서만
var (
	// ErrInvalidInput is returned by the scorer for unusable price series
	// and by validation of submitted price periods.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidParameter is returned for out-of-range batch sizes or scoring parameters.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrPersistence is returned when the bulk score write fails.
	// No score from the failed call is durably applied.
	ErrPersistence = errors.New("persistence failure")

	// ErrNotFound is returned when an instrument does not exist or is soft-deleted.
	ErrNotFound = errors.New("not found")

	// ErrSweepInProgress is returned when another recompute call holds the lease.
	ErrSweepInProgress = errors.New("recompute already in progress")
)
