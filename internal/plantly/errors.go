package plantly

import (
	"errors"
	"fmt"
)

// Validation reason codes reported by AddPlant and ParseFrequency.
const (
	ReasonEmptyName        = "empty-name"
	ReasonInvalidFrequency = "invalid-frequency"
)

// ErrNoSnapshot is returned by a Vault when no snapshot has been stored yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// ValidationError reports caller input the store refuses to accept.
// Reason is one of the Reason* codes.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// NotFoundError reports an unknown or stale plant id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("plant not found: %s", e.ID)
}

// PersistenceError reports a failed snapshot write. The in-memory change
// that preceded the write is kept; it may not survive a restart.
type PersistenceError struct {
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting plants: %v", e.Cause)
}

func (e *PersistenceError) Unwrap() error { return e.Cause }

// IsNotFound reports whether err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
