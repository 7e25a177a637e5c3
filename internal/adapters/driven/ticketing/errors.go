package ticketing

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the ticketing API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the response body, if any.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ticketing api: %d %s: %s",
			e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	}
	return fmt.Sprintf("ticketing api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// IsNotFound checks if the error is a 404 response, however wrapped.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsMethodNotAllowed checks if the error is a 405 response, the
// signal that the deployment lacks the capability entirely.
func IsMethodNotAllowed(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusMethodNotAllowed
}
