package model

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrTimeout is returned when a wait deadline is exceeded.
	ErrTimeout = errors.New("timeout")
	// ErrProtocol is returned when the remote end violates the exec wire protocol.
	ErrProtocol = errors.New("protocol violation")
	// ErrClosed is returned when using an exec session that has been closed.
	ErrClosed = errors.New("closed")
)

// APIError is the error returned for non-2xx API responses and for error
// events received inside streamed responses (StatusCode is 0 in that case).
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// Unwrap maps well known status codes to the model sentinel errors so callers
// can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrAlreadyExists
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrNotValid
	default:
		return nil
	}
}
