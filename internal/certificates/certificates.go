package certificates

import (
	"encoding/json"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/documents"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/pagination"
)

// CopyRequest is the confirm-copy-certificate payload.
type CopyRequest struct {
	VoidOriginal             bool   `json:"voidOriginal"`
	Journey                  string `json:"journey" validate:"required,oneof=catchCertificate processingStatement storageNotes"`
	CopyDocumentAcknowledged bool   `json:"copyDocumentAcknowledged" validate:"eq=true"`
	ExcludeLandings          bool   `json:"excludeLandings,omitempty"`
}

// CopyResult reports the original and the new document numbers.
type CopyResult struct {
	DocumentNumber           string `json:"documentNumber"`
	NewDocumentNumber        string `json:"newDocumentNumber"`
	VoidOriginal             bool   `json:"voidOriginal"`
	CopyDocumentAcknowledged bool   `json:"copyDocumentAcknowledged"`
}

// PDFSummary locates the rendered artifact of a document.
type PDFSummary struct {
	DocumentNumber string           `json:"documentNumber"`
	URI            string           `json:"uri"`
	Status         documents.Status `json:"status"`
}

// Dashboard groups a caller's in-progress and completed documents of one type.
type Dashboard struct {
	InProgress *pagination.PageResult[documents.Summary] `json:"inProgress"`
	Completed  *pagination.PageResult[documents.Summary] `json:"completed"`
}

// CompletedDocuments is a page of completed documents with the overall count.
type CompletedDocuments struct {
	Documents []documents.Summary `json:"documents"`
	Total     int                 `json:"total"`
	Page      int                 `json:"page"`
	Limit     int                 `json:"limit"`
}

// CreateDraftRequest is the payload for starting a new draft.
type CreateDraftRequest struct {
	UserReference  string `json:"userReference,omitempty" validate:"max=50"`
	RequestByAdmin bool   `json:"requestByAdmin,omitempty"`
}

// DraftDataRequest stores form state at a path.
type DraftDataRequest struct {
	Path string          `json:"path" validate:"required,max=200"`
	Data json.RawMessage `json:"data" validate:"required"`
}

// ReferenceRequest updates the user reference.
type ReferenceRequest struct {
	UserReference string `json:"userReference" validate:"max=50"`
}

// StatusRequest moves a draft between in-progress statuses. Completion
// goes through CompleteRequest.
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=DRAFT PENDING LOCKED BLOCKED"`
}

// CompleteRequest records the rendered artifact of a completed draft.
type CompleteRequest struct {
	DocumentURI string `json:"documentUri" validate:"required,max=500"`
}
