package prompts

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned before any I/O when required input is
	// missing or out of range.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when the prompt (or version) does not exist in
	// the caller's partition.
	ErrNotFound = errors.New("prompt not found")

	// ErrConflict is returned when the prompt was edited by someone else
	// between reading the head and writing the next version.
	ErrConflict = errors.New("prompt was modified concurrently")

	// ErrNoIdentity is returned when the caller has neither a guest session
	// nor a signed-in user.
	ErrNoIdentity = errors.New("no identity")
)

// StorageError wraps a failure of the backing store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
