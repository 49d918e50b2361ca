package types

import (
	"errors"
	"fmt"
)

// Domain error kinds. User-facing handlers report these verbatim;
// ErrStorage is logged and surfaced as a generic failure.
var (
	ErrStorage             = errors.New("record store unavailable")
	ErrDuplicateCandidacy  = errors.New("you already hold an active candidacy")
	ErrNotFound            = errors.New("no matching candidacy found")
	ErrTerminalState       = errors.New("candidacy is already decided")
	ErrInsufficientStamina = errors.New("not enough stamina")
	ErrNoCandidacy         = errors.New("you are not signed up or have withdrawn")
	ErrEmptyPool           = errors.New("no candidates match that race")
)

// ValidationError reports bad user input (length, range or enum).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validation builds a ValidationError.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsUserError reports whether an error should be shown to the caller
// verbatim rather than masked as a generic failure.
func IsUserError(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	for _, e := range []error{
		ErrDuplicateCandidacy, ErrNotFound, ErrTerminalState,
		ErrInsufficientStamina, ErrNoCandidacy, ErrEmptyPool,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
