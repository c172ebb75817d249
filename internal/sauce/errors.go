package sauce

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-success response from either endpoint. It is never retried.
type APIError struct {
	Status   int
	Body     string
	Endpoint string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("sauce api error (status %d) from %s", e.Status, e.Endpoint)
	}
	return fmt.Sprintf("sauce api error (status %d) from %s: %s", e.Status, e.Endpoint, e.Body)
}

// IsUnauthorized reports whether err is an APIError rejecting the credentials.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}
