// Package apperr defines the error taxonomy shared by all services.
// Callers branch with errors.Is against the sentinels; the concrete
// message carries the human-readable detail.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrAuth        = errors.New("authentication required")
	ErrPermission  = errors.New("permission denied")
	ErrNotFound    = errors.New("not found")
	ErrState       = errors.New("illegal state")
	ErrConflict    = errors.New("time slot conflict")
	ErrPersistence = errors.New("persistence failure")
)

func Validationf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, a...))
}

func Authf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrAuth, fmt.Sprintf(format, a...))
}

func Permissionf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrPermission, fmt.Sprintf(format, a...))
}

func NotFoundf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, a...))
}

func Conflictf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, a...))
}

// Persistencef wraps a storage error so that both ErrPersistence and the
// underlying driver error stay reachable through errors.Is / errors.As.
func Persistencef(err error, format string, a ...any) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, fmt.Sprintf(format, a...), err)
}

// StateError reports an operation attempted in the wrong status. The
// message always names the current and the required status.
type StateError struct {
	Entity   string
	Current  string
	Required string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s is %s, requires %s", e.Entity, e.Current, e.Required)
}

func (e *StateError) Unwrap() error { return ErrState }
