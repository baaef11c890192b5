package documents

import (
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/query"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/repository"
)

func newProjection(schema, table string) *query.ProjectionMap {
	return query.
		NewProjectionMap(schema, table, "d").
		Project("id", "ID").
		Project("document_number", "DocumentNumber").
		Project("status", "Status").
		Project("created_by", "CreatedBy").
		Project("contact_id", "ContactID").
		Project("created_by_email", "CreatedByEmail").
		Project("created_at", "CreatedAt").
		Project("updated_at", "UpdatedAt").
		Project("user_reference", "UserReference").
		Project("document_uri", "DocumentURI").
		Project("export_data", "ExportData").
		Project("draft_data", "DraftData").
		Project("request_by_admin", "RequestByAdmin").
		Project("cloned_from", "ClonedFrom").
		JSONPath("ExporterContactID", "export_data", "exporterDetails", "contactId")
}

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// sortable maps the sort names dashboards send to projection keys.
var sortable = map[string]string{
	"documentNumber": "DocumentNumber",
	"status":         "Status",
	"createdAt":      "CreatedAt",
	"updatedAt":      "UpdatedAt",
	"userReference":  "UserReference",
}

// sortFields translates requested sort fields, dropping any name outside
// sortable.
func sortFields(fields []query.SortField) []query.SortField {
	out := make([]query.SortField, 0, len(fields))
	for _, f := range fields {
		if key, ok := sortable[f.Field]; ok {
			out = append(out, query.SortField{Field: key, Descending: f.Descending})
		}
	}
	return out
}

// ownerMatches expresses the ownership rule as OR-ed equality matches.
func ownerMatches(id Identity) ([]query.Match, error) {
	if !id.Valid() {
		return nil, ErrNoIdentity
	}
	return []query.Match{
		{Field: "CreatedBy", Value: id.UserPrincipal},
		{Field: "ContactID", Value: id.ContactID},
		{Field: "ExporterContactID", Value: id.ContactID},
	}, nil
}

func statusArgs(statuses []Status) []any {
	args := make([]any, len(statuses))
	for i, s := range statuses {
		args[i] = string(s)
	}
	return args
}

func scanner(t Type) repository.ScanFunc[Document] {
	return func(s repository.Scanner) (Document, error) {
		var (
			d      Document
			status string
			export repository.JSON[ExportData]
			draft  repository.JSON[DraftData]
		)
		err := s.Scan(
			&d.ID,
			&d.DocumentNumber,
			&status,
			&d.CreatedBy,
			&d.ContactID,
			&d.CreatedByEmail,
			&d.CreatedAt,
			&d.UpdatedAt,
			&d.UserReference,
			&d.DocumentURI,
			&export,
			&draft,
			&d.RequestByAdmin,
			&d.ClonedFrom,
		)
		d.Type = t
		d.Status = Status(status)
		d.ExportData = export.V
		d.DraftData = draft.V
		return d, err
	}
}

func summaries(docs []Document) []Summary {
	out := make([]Summary, len(docs))
	for i := range docs {
		out[i] = docs[i].Summary()
	}
	return out
}
