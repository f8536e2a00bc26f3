package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the sentinel for missing scans, recommendations,
	// progress rows, and mode rows.
	ErrNotFound = errors.New("not found")
	// ErrSchemaNotProvisioned signals that a supporting table is not
	// available yet. Callers degrade to safe defaults instead of failing.
	ErrSchemaNotProvisioned = errors.New("schema not provisioned")
	// ErrValidationUnavailable signals that no dedicated validator exists
	// for a subfactor.
	ErrValidationUnavailable = errors.New("validation unavailable")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// InvalidTransitionError reports an illegal lifecycle transition with enough
// detail for the caller to render an actionable message.
type InvalidTransitionError struct {
	From          string
	To            string
	Reason        string
	DaysRemaining int
}

func (e *InvalidTransitionError) Error() string {
	if e == nil {
		return "invalid transition"
	}
	if e.DaysRemaining > 0 {
		return fmt.Sprintf("invalid transition %s -> %s: %s (%d days remaining)", e.From, e.To, e.Reason, e.DaysRemaining)
	}
	return fmt.Sprintf("invalid transition %s -> %s: %s", e.From, e.To, e.Reason)
}

// AsInvalidTransition unwraps err into an *InvalidTransitionError if possible.
func AsInvalidTransition(err error) (*InvalidTransitionError, bool) {
	var ite *InvalidTransitionError
	if errors.As(err, &ite) {
		return ite, true
	}
	return nil, false
}
