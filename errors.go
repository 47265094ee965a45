package backends

import "errors"

// Sentinel errors returned by backend operations.
var (
	ErrExecuteDisabled = errors.New("backends: shell execution is disabled for this backend")
	ErrBackendClosed   = errors.New("backends: backend is closed")
)
