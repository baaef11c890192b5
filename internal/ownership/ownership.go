// Package ownership decides whether a caller may act on a document.
package ownership

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/documents"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/drafts"
)

// Validator resolves an owned document. A nil document with a nil error
// means the caller has no document by that number in the given statuses;
// errors are reserved for store failures.
type Validator interface {
	Validate(ctx context.Context, id documents.Identity, number string, statuses []documents.Status) (*documents.Document, error)
}

type validator struct {
	docs   documents.System
	drafts drafts.System
	logger *slog.Logger
}

// New creates a Validator that consults the draft cache before the store.
func New(docs documents.System, cache drafts.System, logger *slog.Logger) Validator {
	return &validator{
		docs:   docs,
		drafts: cache,
		logger: logger.With("system", "ownership"),
	}
}

func (v *validator) Validate(ctx context.Context, id documents.Identity, number string, statuses []documents.Status) (*documents.Document, error) {
	if !id.Valid() || strings.TrimSpace(number) == "" {
		return nil, nil
	}
	number = strings.ToUpper(strings.TrimSpace(number))

	t := documents.ServiceName(number)
	store, err := v.docs.Store(t)
	if err != nil {
		return nil, nil
	}

	if store.Config().Cached && slices.Contains(statuses, documents.StatusDraft) {
		d, err := v.drafts.Get(ctx, id, t, number)
		if err != nil {
			v.logger.Warn("draft cache lookup failed", "document_number", number, "error", err)
		} else if d != nil && documents.ValidateDocumentOwner(d, id) {
			return d, nil
		}
	}

	return store.FindOwned(ctx, number, id, statuses)
}
