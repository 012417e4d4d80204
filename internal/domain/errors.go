package domain

import "errors"

// Error taxonomy. NotFound and InvalidState are caller errors and are
// never retried. ProviderUnavailable during a scheduled run is logged and
// left for the next tick. ProviderRejected is surfaced to the caller.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidState        = errors.New("invalid state")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrProviderRejected    = errors.New("provider rejected")
)
