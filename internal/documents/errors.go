package documents

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrDuplicate         = errors.New("document number already exists")
	ErrNoIdentity        = errors.New("no user principal or contact id")
	ErrUnknownJourney    = errors.New("unknown journey")
	ErrUnknownType       = errors.New("unknown document type")
	ErrNumberExhausted   = errors.New("could not generate a unique document number")
	ErrDraftLimit        = errors.New("draft limit reached")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidMonth      = errors.New("invalid month")
)

// MapHTTPStatus maps document errors to HTTP status codes.
// Unknown journeys and exhausted number generation are server faults.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoIdentity):
		return http.StatusForbidden
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrDraftLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidMonth):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
