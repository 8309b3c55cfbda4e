package slot

import (
	"errors"
	"fmt"
)

// Integrity failures.
var (
	ErrDuplicateSystemEntry = errors.New("duplicate system entry")
	ErrMissingDQASlot       = errors.New(`missing "dqa" slot`)
	ErrMalformedSlot        = errors.New("malformed slot value")
)

// IntegrityError reports slot data that cannot be expanded or collapsed.
// The affected element or row is skipped.
type IntegrityError struct {
	Subject    string
	SystemType string
	SystemName string
	Cause      error
}

func (e *IntegrityError) Error() string {
	if e.SystemType != "" || e.SystemName != "" {
		return fmt.Sprintf("slot integrity error for %q (system %s/%s): %v", e.Subject, e.SystemType, e.SystemName, e.Cause)
	}
	return fmt.Sprintf("slot integrity error for %q: %v", e.Subject, e.Cause)
}

func (e *IntegrityError) Unwrap() error { return e.Cause }
