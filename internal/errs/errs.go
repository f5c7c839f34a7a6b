package errs

import "errors" // Sentinel error construction

// Error kinds surfaced by the storage layer. Every error returned by a repository
// operation wraps exactly one of these, so callers branch with errors.Is.
var (
	ErrValidation       = errors.New("validation failed")   // Input rejected before any write
	ErrNotFound         = errors.New("not found")           // Referenced record does not exist
	ErrConflict         = errors.New("conflict")            // Uniqueness violated or assumed-unique lookup matched several rows
	ErrCancelled        = errors.New("operation cancelled") // Caller cancelled; pending work rolled back
	ErrStoreUnavailable = errors.New("store unavailable")   // Connection, migration or other store failure
)
