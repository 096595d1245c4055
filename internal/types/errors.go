package types

import "errors"

// Sentinel errors for the execution engine.
var (
	// Input validation errors. These are the only conditions surfaced to
	// callers as hard errors; missing market data always degrades to
	// sentinel values in results instead.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidOrder    = errors.New("malformed order")
	ErrInvalidConfig   = errors.New("invalid configuration")

	// Market data errors
	ErrDataUnavailable = errors.New("market data unavailable")
	ErrBreakerOpen     = errors.New("upstream circuit breaker open")
	ErrStaleData       = errors.New("cached market data is stale")

	// Persistence errors
	ErrNotFound = errors.New("record not found")
)
