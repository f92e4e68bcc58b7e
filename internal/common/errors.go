package common

import (
	"errors"
	"net/http"
)

// Error taxonomy shared by the services, the relay and the transports.
// Wrap with fmt.Errorf("...: %w", ErrX) and classify with errors.Is.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrPersistence    = errors.New("persistence failure")
)

// ErrorCode is the machine readable code carried by websocket error events.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrConflict):
		return "invalid_request"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "persistence_failure"
	}
}

func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
