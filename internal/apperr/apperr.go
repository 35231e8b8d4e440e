// Package apperr defines the error taxonomy shared by the ledger, tracker,
// payment workflow, closure gate and carpool matcher.
//
// Callers wrap one of the sentinels with context and classify with errors.Is:
//
//	return fmt.Errorf("%w: activity %s", apperr.ErrNotFound, id)
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound reports a missing activity, participant or ticket.
	ErrNotFound = errors.New("not found")

	// ErrForbidden reports a caller without the required role.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict reports an invalid state transition or a request the
	// current state cannot accept.
	ErrConflict = errors.New("conflict")

	// ErrValidation reports a malformed request.
	ErrValidation = errors.New("validation failed")
)

// NotFound wraps ErrNotFound.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Forbidden wraps ErrForbidden.
func Forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

// Conflict wraps ErrConflict.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Validation wraps ErrValidation.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// BlockedError is returned when settlement is refused because obligations
// are still outstanding. It matches ErrConflict.
type BlockedError struct {
	ActivityID string
	BlockedBy  []string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("activity %s blocked by %s", e.ActivityID, strings.Join(e.BlockedBy, ", "))
}

func (e *BlockedError) Unwrap() error {
	return ErrConflict
}

// AsBlocked extracts a *BlockedError from err.
func AsBlocked(err error) (*BlockedError, bool) {
	var blocked *BlockedError
	if errors.As(err, &blocked) {
		return blocked, true
	}
	return nil, false
}

// IsNotFound reports whether err matches ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err matches ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
