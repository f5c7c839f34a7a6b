package cli

import (
	"errors" // Kind matching

	"kudo/internal/errs" // Error taxonomy
)

// Process exit codes, one per error kind
const (
	ExitCodeGeneric     = 1   // Anything without a kind
	ExitCodeUsage       = 2   // Bad flags or rejected input
	ExitCodeNotFound    = 3   // Unknown user or record
	ExitCodeConflict    = 4   // Uniqueness violated
	ExitCodeUnavailable = 5   // Store unreachable, misconfigured or failing
	ExitCodeCancelled   = 130 // Interrupted
)

// commandError carries the exit code chosen for err
type commandError struct {
	code int   // Process exit code
	err  error // Underlying failure
}

func (e *commandError) Error() string { return e.err.Error() }
func (e *commandError) Unwrap() error { return e.err }

// ExitCode is read by main through an interface assertion
func (e *commandError) ExitCode() int { return e.code }

// usageError rejects the command line itself
func usageError(msg string) error {
	return &commandError{code: ExitCodeUsage, err: errors.New(msg)}
}

// exitCodeFor picks the exit code for an error kind
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrCancelled):
		return ExitCodeCancelled
	case errors.Is(err, errs.ErrValidation):
		return ExitCodeUsage
	case errors.Is(err, errs.ErrConflict): // Before NotFound: ambiguous lookups match both
		return ExitCodeConflict
	case errors.Is(err, errs.ErrNotFound):
		return ExitCodeNotFound
	case errors.Is(err, errs.ErrStoreUnavailable):
		return ExitCodeUnavailable
	default:
		return ExitCodeGeneric
	}
}

// withExitCode attaches the exit code matching err's kind
func withExitCode(err error) error {
	if err == nil {
		return nil
	}
	var coded *commandError
	if errors.As(err, &coded) {
		return err // Already decided
	}
	return &commandError{code: exitCodeFor(err), err: err}
}
