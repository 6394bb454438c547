package expiration

import "errors"

// ErrStoreUnavailable marks a failure of the initial scan. It aborts the run.
var ErrStoreUnavailable = errors.New("store unavailable")

// ErrInvalidConfig is wrapped by Config.Validate.
var ErrInvalidConfig = errors.New("invalid expiration config")
