// Package errs defines the pipeline's error taxonomy. Nothing here is fatal:
// every error maps to an explicit operator action (fix a field, unlock, retry,
// skip).
package errs

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// ValidationError marks a quotation document that is missing required fields
// before generation or send.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Detail)
}

// LockedError is returned when a send is attempted while the dispatch guard
// is locked. The attempted send has no side effects.
type LockedError struct{}

func (e *LockedError) Error() string { return "dispatch guard is locked" }

// TransportError records a failed send for one supplier. It is stored on the
// dispatch record and never retried automatically.
type TransportError struct {
	SupplierID int
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: supplier %d: %v", e.SupplierID, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NetworkError wraps a call to an external collaborator that could not
// complete. The batch pauses awaiting operator action.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// MatchLookupError is isolated to one line item during batch matching; the
// matcher absorbs it into that item's result.
type MatchLookupError struct {
	LineItemID int
	Err        error
}

func (e *MatchLookupError) Error() string {
	return fmt.Sprintf("match lookup: line item %d: %v", e.LineItemID, e.Err)
}

func (e *MatchLookupError) Unwrap() error { return e.Err }

func IsLocked(err error) bool {
	var le *LockedError
	return errors.As(err, &le)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Wrap adds call-site context without losing the typed cause.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return eris.Wrap(err, msg)
}
