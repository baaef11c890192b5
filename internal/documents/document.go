package documents

import (
	"encoding/json"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Identity is the caller as known from the bearer token. Either field may be empty.
type Identity struct {
	UserPrincipal string `json:"userPrincipal"`
	ContactID     string `json:"contactId"`
}

// Valid reports whether at least one identity field is present.
func (i Identity) Valid() bool {
	return i.UserPrincipal != "" || i.ContactID != ""
}

// ExportData is the submitted export payload, keyed by section.
type ExportData map[string]json.RawMessage

// ExporterDetails is the exporter section of ExportData.
type ExporterDetails struct {
	ContactID        string `json:"contactId,omitempty"`
	AccountID        string `json:"accountId,omitempty"`
	ExporterFullName string `json:"exporterFullName,omitempty" validate:"max=100"`
	ExporterCompany  string `json:"exporterCompanyName" validate:"required,max=100"`
	AddressOne       string `json:"addressOne" validate:"required,max=100"`
	TownCity         string `json:"townCity,omitempty" validate:"max=60"`
	Postcode         string `json:"postcode" validate:"required,max=10"`
}

// ExporterDetails decodes the exporterDetails section. A missing or
// malformed section yields the zero value.
func (e ExportData) ExporterDetails() ExporterDetails {
	var d ExporterDetails
	if raw, ok := e["exporterDetails"]; ok {
		_ = json.Unmarshal(raw, &d)
	}
	return d
}

// SetExporterDetails replaces the exporterDetails section.
func (e ExportData) SetExporterDetails(d ExporterDetails) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	e["exporterDetails"] = raw
	return nil
}

// DraftData holds in-progress form state, keyed by form path.
type DraftData map[string]json.RawMessage

// Document is a persisted export document of any type.
type Document struct {
	ID             uuid.UUID  `json:"id"`
	Type           Type       `json:"type"`
	DocumentNumber string     `json:"documentNumber"`
	Status         Status     `json:"status"`
	CreatedBy      string     `json:"createdBy"`
	ContactID      string     `json:"contactId,omitempty"`
	CreatedByEmail string     `json:"createdByEmail,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	UserReference  string     `json:"userReference,omitempty"`
	DocumentURI    string     `json:"documentUri,omitempty"`
	ExportData     ExportData `json:"exportData,omitempty"`
	DraftData      DraftData  `json:"draftData,omitempty"`
	RequestByAdmin bool       `json:"requestByAdmin"`
	ClonedFrom     *string    `json:"clonedFrom,omitempty"`
}

// Summary is the client-facing projection of a document.
type Summary struct {
	DocumentNumber string    `json:"documentNumber"`
	DocumentURI    string    `json:"documentUri"`
	DocumentStatus Status    `json:"documentStatus"`
	CreatedAt      time.Time `json:"createdAt"`
	UserReference  string    `json:"userReference"`
}

// Summary projects d for clients.
func (d *Document) Summary() Summary {
	return Summary{
		DocumentNumber: d.DocumentNumber,
		DocumentURI:    d.DocumentURI,
		DocumentStatus: d.Status,
		CreatedAt:      d.CreatedAt,
		UserReference:  d.UserReference,
	}
}

// CreateDraftCommand carries the inputs for a new draft.
type CreateDraftCommand struct {
	Identity       Identity
	Email          string
	UserReference  string
	RequestByAdmin bool
}

// CloneOptions controls how a document is copied.
type CloneOptions struct {
	ExcludeLandings bool
	RequestByAdmin  bool
}

// ValidateDocumentOwner reports whether id owns d: the creator, the contact,
// or the exporter contact named in the export payload.
func ValidateDocumentOwner(d *Document, id Identity) bool {
	if d == nil || !id.Valid() {
		return false
	}
	if id.UserPrincipal != "" && d.CreatedBy == id.UserPrincipal {
		return true
	}
	if id.ContactID == "" {
		return false
	}
	return d.ContactID == id.ContactID || d.ExportData.ExporterDetails().ContactID == id.ContactID
}

// cloneDocument builds the draft copy of src under number. src is not modified.
func cloneDocument(src *Document, number string, opts CloneOptions, lineItems string, now time.Time) (*Document, error) {
	data := maps.Clone(src.ExportData)
	if data == nil {
		data = ExportData{}
	}
	if opts.ExcludeLandings && lineItems != "" {
		stripped, err := StripLineItems(data, lineItems)
		if err != nil {
			return nil, err
		}
		data = stripped
	}

	from := src.DocumentNumber
	return &Document{
		ID:             uuid.New(),
		Type:           src.Type,
		DocumentNumber: number,
		Status:         StatusDraft,
		CreatedBy:      src.CreatedBy,
		ContactID:      src.ContactID,
		CreatedByEmail: src.CreatedByEmail,
		CreatedAt:      now,
		UpdatedAt:      now,
		UserReference:  src.UserReference,
		ExportData:     data,
		DraftData:      DraftData{},
		RequestByAdmin: opts.RequestByAdmin,
		ClonedFrom:     &from,
	}, nil
}
