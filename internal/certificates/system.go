// Package certificates serves the caller-facing document operations: copying,
// voiding, artifact retrieval, exporter details, drafts, and dashboards.
package certificates

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/documents"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/drafts"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/ownership"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/pagination"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/storage"
)

// System composes the document stores, ownership validation, the draft
// cache, and artifact storage.
type System interface {
	CopyDocument(ctx context.Context, id documents.Identity, number string, req CopyRequest) (*CopyResult, error)
	CanCopy(ctx context.Context, id documents.Identity, number string) (bool, error)
	Void(ctx context.Context, id documents.Identity, number string) error
	DocumentSummary(ctx context.Context, id documents.Identity, number string) (*documents.Summary, error)
	Artifact(ctx context.Context, id documents.Identity, number string) (*storage.Artifact, error)

	ExporterDetails(ctx context.Context, id documents.Identity, t documents.Type, number string) (*documents.ExporterDetails, error)
	SetExporterDetails(ctx context.Context, id documents.Identity, t documents.Type, number string, details documents.ExporterDetails) (*documents.ExporterDetails, error)

	CreateDraft(ctx context.Context, id documents.Identity, email string, t documents.Type, req CreateDraftRequest) (*documents.Document, error)
	GetDraft(ctx context.Context, id documents.Identity, t documents.Type, number string) (*documents.Document, error)
	UpsertDraftData(ctx context.Context, id documents.Identity, t documents.Type, number string, req DraftDataRequest) (*documents.Document, error)
	UpdateUserReference(ctx context.Context, id documents.Identity, t documents.Type, number, ref string) (*documents.Document, error)
	UpdateStatus(ctx context.Context, id documents.Identity, t documents.Type, number string, to documents.Status) (*documents.Document, error)
	CompleteDraft(ctx context.Context, id documents.Identity, t documents.Type, number, documentURI string) (*documents.Document, error)
	DeleteDraft(ctx context.Context, id documents.Identity, t documents.Type, number string) error

	Dashboard(ctx context.Context, id documents.Identity, t documents.Type, page pagination.PageRequest) (*Dashboard, error)
	Completed(ctx context.Context, id documents.Identity, t documents.Type, page pagination.PageRequest) (*CompletedDocuments, error)
	ForMonth(ctx context.Context, id documents.Identity, t documents.Type, month string) ([]documents.Summary, error)
}

type system struct {
	docs      documents.System
	validator ownership.Validator
	drafts    drafts.System
	storage   storage.System
	logger    *slog.Logger
	now       func() time.Time
}

// New creates the certificates system.
func New(
	docs documents.System,
	validator ownership.Validator,
	draftCache drafts.System,
	store storage.System,
	logger *slog.Logger,
) System {
	return &system{
		docs:      docs,
		validator: validator,
		drafts:    draftCache,
		storage:   store,
		logger:    logger.With("system", "certificates"),
		now:       time.Now,
	}
}

func normalize(number string) string {
	return strings.ToUpper(strings.TrimSpace(number))
}

// owned resolves the store for number's type and the caller's document in statuses.
func (s *system) owned(ctx context.Context, id documents.Identity, number string, statuses []documents.Status) (documents.Store, *documents.Document, error) {
	number = normalize(number)
	store, err := s.docs.Store(documents.ServiceName(number))
	if err != nil {
		return nil, nil, ErrForbidden
	}

	d, err := s.validator.Validate(ctx, id, number, statuses)
	if err != nil {
		return nil, nil, err
	}
	if d == nil {
		return nil, nil, ErrForbidden
	}
	return store, d, nil
}

func (s *system) storeFor(t documents.Type, number string) (documents.Store, string, error) {
	number = normalize(number)
	if number == "" {
		return nil, "", ErrMissingNumber
	}
	if documents.ServiceName(number) != t {
		return nil, "", ErrJourneyMismatch
	}
	store, err := s.docs.Store(t)
	return store, number, err
}

// invalidate drops any cached copy of the document. Failures are logged only.
func (s *system) invalidate(ctx context.Context, id documents.Identity, t documents.Type, number string) {
	if err := s.drafts.Invalidate(ctx, id, t, number); err != nil {
		s.logger.Warn("draft cache invalidation failed", "document_number", number, "error", err)
	}
}

func (s *system) CopyDocument(ctx context.Context, id documents.Identity, number string, req CopyRequest) (*CopyResult, error) {
	t, err := documents.ParseJourney(req.Journey)
	if err != nil {
		return nil, err
	}
	number = normalize(number)
	if documents.ServiceName(number) != t {
		return nil, ErrForbidden
	}

	store, _, err := s.owned(ctx, id, number, documents.Completed)
	if err != nil {
		return nil, err
	}

	copied, err := store.Clone(ctx, number, id, documents.CloneOptions{ExcludeLandings: req.ExcludeLandings})
	if err != nil {
		return nil, fmt.Errorf("copy %s: %w", number, err)
	}

	if req.VoidOriginal {
		if err := store.Void(ctx, number, id); err != nil {
			return nil, fmt.Errorf("void %s after copying to %s: %w", number, copied.DocumentNumber, err)
		}
		s.invalidate(ctx, id, t, number)
	}

	s.logger.Info("document copied",
		"document_number", number,
		"new_document_number", copied.DocumentNumber,
		"void_original", req.VoidOriginal,
	)

	return &CopyResult{
		DocumentNumber:           number,
		NewDocumentNumber:        copied.DocumentNumber,
		VoidOriginal:             req.VoidOriginal,
		CopyDocumentAcknowledged: req.CopyDocumentAcknowledged,
	}, nil
}

func (s *system) CanCopy(ctx context.Context, id documents.Identity, number string) (bool, error) {
	d, err := s.validator.Validate(ctx, id, number, documents.Completed)
	return d != nil, err
}

func (s *system) Void(ctx context.Context, id documents.Identity, number string) error {
	store, d, err := s.owned(ctx, id, number, documents.Completed)
	if err != nil {
		return err
	}
	if err := store.Void(ctx, d.DocumentNumber, id); err != nil {
		return err
	}
	s.invalidate(ctx, id, d.Type, d.DocumentNumber)
	return nil
}

func (s *system) DocumentSummary(ctx context.Context, id documents.Identity, number string) (*documents.Summary, error) {
	return s.docs.GetDocument(ctx, number, id)
}

func (s *system) Artifact(ctx context.Context, id documents.Identity, number string) (*storage.Artifact, error) {
	_, d, err := s.owned(ctx, id, number, documents.Completed)
	if err != nil {
		return nil, err
	}
	if d.DocumentURI == "" {
		return nil, ErrNoArtifact
	}
	return s.storage.Download(ctx, d.DocumentURI)
}

func (s *system) ExporterDetails(ctx context.Context, id documents.Identity, t documents.Type, number string) (*documents.ExporterDetails, error) {
	d, err := s.GetDraft(ctx, id, t, number)
	if err != nil {
		return nil, err
	}
	details := d.ExportData.ExporterDetails()
	return &details, nil
}

func (s *system) SetExporterDetails(ctx context.Context, id documents.Identity, t documents.Type, number string, details documents.ExporterDetails) (*documents.ExporterDetails, error) {
	store, number, err := s.storeFor(t, number)
	if err != nil {
		return nil, err
	}
	if details.ContactID == "" {
		details.ContactID = id.ContactID
	}

	raw, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("encode exporter details: %w", err)
	}

	d, err := store.UpdateExportData(ctx, number, id, "exporterDetails", raw)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id, t, number)

	saved := d.ExportData.ExporterDetails()
	return &saved, nil
}

func (s *system) CreateDraft(ctx context.Context, id documents.Identity, email string, t documents.Type, req CreateDraftRequest) (*documents.Document, error) {
	store, err := s.docs.Store(t)
	if err != nil {
		return nil, err
	}
	return store.CreateDraft(ctx, documents.CreateDraftCommand{
		Identity:       id,
		Email:          email,
		UserReference:  req.UserReference,
		RequestByAdmin: req.RequestByAdmin,
	})
}

func (s *system) GetDraft(ctx context.Context, id documents.Identity, t documents.Type, number string) (*documents.Document, error) {
	store, number, err := s.storeFor(t, number)
	if err != nil {
		return nil, err
	}

	d, err := s.validator.Validate(ctx, id, number, []documents.Status{documents.StatusDraft})
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, documents.ErrNotFound
	}

	if store.Config().Cached {
		if err := s.drafts.Put(ctx, id, d); err != nil {
			s.logger.Warn("draft cache write failed", "document_number", number, "error", err)
		}
	}
	return d, nil
}

func (s *system) UpsertDraftData(ctx context.Context, id documents.Identity, t documents.Type, number string, req DraftDataRequest) (*documents.Document, error) {
	return s.write(ctx, id, t, number, func(store documents.Store, number string) (*documents.Document, error) {
		return store.UpsertDraftData(ctx, number, id, req.Path, req.Data)
	})
}

func (s *system) UpdateUserReference(ctx context.Context, id documents.Identity, t documents.Type, number, ref string) (*documents.Document, error) {
	return s.write(ctx, id, t, number, func(store documents.Store, number string) (*documents.Document, error) {
		return store.UpdateUserReference(ctx, number, id, ref)
	})
}

func (s *system) UpdateStatus(ctx context.Context, id documents.Identity, t documents.Type, number string, to documents.Status) (*documents.Document, error) {
	return s.write(ctx, id, t, number, func(store documents.Store, number string) (*documents.Document, error) {
		return store.UpdateStatus(ctx, number, id, to)
	})
}

func (s *system) CompleteDraft(ctx context.Context, id documents.Identity, t documents.Type, number, documentURI string) (*documents.Document, error) {
	return s.write(ctx, id, t, number, func(store documents.Store, number string) (*documents.Document, error) {
		return store.CompleteDraft(ctx, number, id, documentURI)
	})
}

func (s *system) DeleteDraft(ctx context.Context, id documents.Identity, t documents.Type, number string) error {
	_, err := s.write(ctx, id, t, number, func(store documents.Store, number string) (*documents.Document, error) {
		return nil, store.DeleteDraft(ctx, number, id)
	})
	return err
}

// write runs a store mutation and drops the cached draft afterwards.
func (s *system) write(ctx context.Context, id documents.Identity, t documents.Type, number string, fn func(documents.Store, string) (*documents.Document, error)) (*documents.Document, error) {
	store, number, err := s.storeFor(t, number)
	if err != nil {
		return nil, err
	}

	d, err := fn(store, number)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id, t, number)
	return d, nil
}

func (s *system) Dashboard(ctx context.Context, id documents.Identity, t documents.Type, page pagination.PageRequest) (*Dashboard, error) {
	store, err := s.docs.Store(t)
	if err != nil {
		return nil, err
	}

	var dash Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		dash.InProgress, err = store.ListDrafts(gctx, id, page)
		return err
	})
	g.Go(func() error {
		var err error
		dash.Completed, err = store.GetCompletedDocuments(gctx, id, page)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &dash, nil
}

func (s *system) Completed(ctx context.Context, id documents.Identity, t documents.Type, page pagination.PageRequest) (*CompletedDocuments, error) {
	store, err := s.docs.Store(t)
	if err != nil {
		return nil, err
	}

	var (
		result *pagination.PageResult[documents.Summary]
		total  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		result, err = store.GetCompletedDocuments(gctx, id, page)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = store.CountCompletedDocuments(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &CompletedDocuments{
		Documents: result.Data,
		Total:     total,
		Page:      result.Page,
		Limit:     result.PageSize,
	}, nil
}

func (s *system) ForMonth(ctx context.Context, id documents.Identity, t documents.Type, month string) ([]documents.Summary, error) {
	store, err := s.docs.Store(t)
	if err != nil {
		return nil, err
	}
	m, err := documents.ParseMonthYear(month, s.now())
	if err != nil {
		return nil, err
	}
	return store.ListForMonth(ctx, id, m)
}
