package certificates

import (
	"errors"
	"net/http"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/documents"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/storage"
)

var (
	// ErrForbidden indicates the caller does not own a document in the required state.
	ErrForbidden = errors.New("document not owned or not in a permitted state")
	// ErrMissingNumber indicates the documentNumber header was absent.
	ErrMissingNumber = errors.New("documentNumber header required")
	// ErrNoArtifact indicates a completed document has no rendered artifact.
	ErrNoArtifact = errors.New("document has no rendered artifact")
	// ErrJourneyMismatch indicates the document number belongs to another journey.
	ErrJourneyMismatch = errors.New("document number does not match journey")
)

// MapHTTPStatus maps certificate, document, and storage errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrJourneyMismatch):
		return http.StatusForbidden
	case errors.Is(err, ErrMissingNumber):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoArtifact):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidKey):
		return storage.MapHTTPStatus(err)
	case errors.Is(err, documents.ErrUnknownJourney):
		return http.StatusInternalServerError
	default:
		return documents.MapHTTPStatus(err)
	}
}
