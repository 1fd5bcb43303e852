package keycloak

import (
	"fmt"
	"net/http"

	"waste_ops_backend/internal/identity"
)

// StatusError is a non-200 answer from Keycloak. It unwraps to the
// identity error class that the status code maps to.
type StatusError struct {
	StatusCode int
	Path       string
	class      error
}

func newStatusError(code int, path string) *StatusError {
	var class error
	switch {
	case code == http.StatusNotFound:
		class = identity.ErrNotFound
	case code >= http.StatusInternalServerError, code == http.StatusTooManyRequests:
		class = identity.ErrConnectivity
	default:
		class = identity.ErrUnexpectedResponse
	}
	return &StatusError{StatusCode: code, Path: path, class: class}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("keycloak %s returned HTTP %d", e.Path, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return e.class
}
