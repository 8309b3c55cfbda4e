package valuedomain

import (
	"errors"
	"fmt"
)

// ErrUnsupportedKind is returned for value domain kinds outside the closed set.
var ErrUnsupportedKind = errors.New("unsupported value domain kind")

// DecodeError reports a remote value domain that could not be flattened.
type DecodeError struct {
	RemoteType string
	Cause      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode value domain %q: %v", e.RemoteType, e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// EncodeError reports a local (variable_type, constraints) pair that could not
// be turned into a remote payload.
type EncodeError struct {
	VariableType string
	Cause        error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode value domain %q: %v", e.VariableType, e.Cause)
}

func (e *EncodeError) Unwrap() error { return e.Cause }
