package photoapi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized means the bearer credential was rejected. Callers
	// must discard the credential and send the user back to login.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound means the photo no longer exists, usually because
	// another session deleted it.
	ErrNotFound = errors.New("not found")

	// ErrValidation means the server refused the request as malformed.
	ErrValidation = errors.New("validation failed")
)

// APIError is a non-2xx response from the photo service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("photo service returned %d", e.StatusCode)
	}
	return fmt.Sprintf("photo service returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the status code onto the package sentinels so callers can
// use errors.Is without inspecting codes.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return ErrValidation
	}
	return nil
}
