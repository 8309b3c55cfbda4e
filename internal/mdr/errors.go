package mdr

import (
	"fmt"
	"net/http"
)

// ConfigurationError reports invalid local input or settings. It is always fatal.
type ConfigurationError struct {
	msg   string
	Cause error
}

// NewConfigurationError creates a configuration error.
func NewConfigurationError(msg string) *ConfigurationError {
	return &ConfigurationError{msg: msg}
}

// NewConfigurationErrorf creates a configuration error with formatting.
func NewConfigurationErrorf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{msg: fmt.Sprintf(format, args...)}
}

// WrapConfigurationError wraps an underlying error as a configuration error.
func WrapConfigurationError(msg string, cause error) *ConfigurationError {
	return &ConfigurationError{msg: msg, Cause: cause}
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.msg, e.Cause)
	}
	return "configuration error: " + e.msg
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }

// NamespaceResolutionError reports that a designation did not resolve to
// exactly one released namespace.
type NamespaceResolutionError struct {
	Designation string
	Role        Role
	Matches     int
}

func (e *NamespaceResolutionError) Error() string {
	if e.Matches == 0 {
		return fmt.Sprintf("namespace %q not found under role %s", e.Designation, e.Role)
	}
	return fmt.Sprintf("namespace %q is ambiguous under role %s: %d released matches", e.Designation, e.Role, e.Matches)
}

// NotFound reports whether no namespace matched.
func (e *NamespaceResolutionError) NotFound() bool { return e.Matches == 0 }

// RemoteFetchError reports a transport failure or a non-2xx response.
type RemoteFetchError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	Cause      error
}

func (e *RemoteFetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Cause)
	}
	msg := fmt.Sprintf("%s %s: unexpected status %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *RemoteFetchError) Unwrap() error { return e.Cause }
