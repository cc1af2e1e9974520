package voltalis

import (
	"errors"
	"fmt"
)

// ErrAuthentication is returned when the API rejects the credentials or the bearer token (HTTP 401).
var ErrAuthentication = errors.New("voltalis: authentication failed")

// TransportError wraps connection failures and unexpected HTTP statuses.
type TransportError struct {
	Method     string
	Path       string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("voltalis: %v %v: %v", e.Method, e.Path, e.Err)
	}

	return fmt.Sprintf("voltalis: %v %v: unexpected status %v", e.Method, e.Path, e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
