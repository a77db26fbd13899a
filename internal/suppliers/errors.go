package suppliers

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnsupportedType    = errors.New("unsupported supplier type")
	ErrMissingCredentials = errors.New("missing supplier credentials")
)

// APIError carries the upstream HTTP status and response body of a
// failed supplier API call.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supplier API request failed: %d - %s", e.StatusCode, e.Body)
}

func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// isNotFound reports whether err is an APIError for a missing resource,
// which single-item reads convert to a nil result.
func isNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.NotFound()
}
