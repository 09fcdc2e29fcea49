package scoring

import "errors"

var (
	// ErrSchemaMismatch indicates a clip vector whose schema version differs
	// from the backend's. Never coerced; the caller must re-extract.
	ErrSchemaMismatch = errors.New("feature schema mismatch")

	// ErrBackendFailure indicates the scoring backend failed or returned an
	// unusable prediction.
	ErrBackendFailure = errors.New("scoring backend failure")

	// ErrUnknownBackend indicates a backend name with no registration.
	ErrUnknownBackend = errors.New("unknown scoring backend")
)
