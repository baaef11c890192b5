package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/pagination"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/query"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/repository"
)

// Store persists documents of a single type. Lookups that take an Identity
// only see documents that identity owns.
type Store interface {
	// Config returns the type configuration the store was built from.
	Config() TypeConfig

	// GetDocument returns the owned document if it is COMPLETE or PENDING, else nil.
	GetDocument(ctx context.Context, number string, id Identity) (*Document, error)
	// FindOwned returns the owned document if its status is in statuses, else nil.
	FindOwned(ctx context.Context, number string, id Identity, statuses []Status) (*Document, error)
	// CheckDocument reports whether an owned document in statuses exists.
	CheckDocument(ctx context.Context, number string, id Identity, statuses []Status) (bool, error)
	// GetDraft returns the owned DRAFT document or ErrNotFound.
	GetDraft(ctx context.Context, number string, id Identity) (*Document, error)

	// ListDrafts returns a page of in-progress documents.
	ListDrafts(ctx context.Context, id Identity, page pagination.PageRequest) (*pagination.PageResult[Summary], error)
	// GetCompletedDocuments returns a page of COMPLETE documents.
	GetCompletedDocuments(ctx context.Context, id Identity, page pagination.PageRequest) (*pagination.PageResult[Summary], error)
	// CountCompletedDocuments counts COMPLETE documents.
	CountCompletedDocuments(ctx context.Context, id Identity) (int, error)
	// ListForMonth returns COMPLETE documents created within the month, newest first.
	ListForMonth(ctx context.Context, id Identity, month MonthYear) ([]Summary, error)

	// CreateDraft inserts a new DRAFT under a fresh document number.
	CreateDraft(ctx context.Context, cmd CreateDraftCommand) (*Document, error)
	// UpsertDraftData sets draftData[path] on a DRAFT or PENDING document.
	UpsertDraftData(ctx context.Context, number string, id Identity, path string, value json.RawMessage) (*Document, error)
	// UpdateExportData sets exportData[key] on a DRAFT document.
	UpdateExportData(ctx context.Context, number string, id Identity, key string, value json.RawMessage) (*Document, error)
	// UpdateUserReference sets the user reference on an in-progress document.
	UpdateUserReference(ctx context.Context, number string, id Identity, ref string) (*Document, error)
	// UpdateStatus moves a document to status to if the type's transitions allow it.
	UpdateStatus(ctx context.Context, number string, id Identity, to Status) (*Document, error)
	// CompleteDraft marks a DRAFT or PENDING document COMPLETE with its rendered artifact.
	CompleteDraft(ctx context.Context, number string, id Identity, documentURI string) (*Document, error)
	// DeleteDraft removes a DRAFT document.
	DeleteDraft(ctx context.Context, number string, id Identity) error
	// Clone copies an owned COMPLETE document into a new DRAFT. The original is unchanged.
	Clone(ctx context.Context, number string, id Identity, opts CloneOptions) (*Document, error)
	// Void marks an owned COMPLETE document VOID.
	Void(ctx context.Context, number string, id Identity) error
}

type store struct {
	cfg        TypeConfig
	db         *sql.DB
	projection *query.ProjectionMap
	logger     *slog.Logger
	pagination pagination.Config
	maxDrafts  int
	generate   NumberGenerator
	now        func() time.Time
}

func newStore(cfg TypeConfig, db *sql.DB, schema string, logger *slog.Logger, pg pagination.Config, maxDrafts int) *store {
	return &store{
		cfg:        cfg,
		db:         db,
		projection: newProjection(schema, cfg.Table),
		logger:     logger.With("type", cfg.Type.Code()),
		pagination: pg,
		maxDrafts:  maxDrafts,
		generate:   func(t Type) string { return GenerateNumber(t, time.Now()) },
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *store) Config() TypeConfig {
	return s.cfg
}

func (s *store) owned(id Identity, statuses []Status) (*query.Builder, error) {
	matches, err := ownerMatches(id)
	if err != nil {
		return nil, err
	}
	return query.
		NewBuilder(s.projection, defaultSort).
		WhereAny(matches...).
		WhereIn("Status", statusArgs(statuses)), nil
}

func (s *store) findOwned(ctx context.Context, q repository.Querier, number string, id Identity, statuses []Status, lock bool) (*Document, error) {
	qb, err := s.owned(id, statuses)
	if err != nil {
		return nil, err
	}
	sqlText, args := qb.WhereEquals("DocumentNumber", number).BuildSingleOrNull()
	if lock {
		sqlText += " FOR UPDATE"
	}

	d, err := repository.QueryOne(ctx, q, sqlText, args, scanner(s.cfg.Type))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s %s: %w", s.cfg.Type, number, repository.MapError(err, ErrNotFound, ErrDuplicate))
	}
	return &d, nil
}

func (s *store) GetDocument(ctx context.Context, number string, id Identity) (*Document, error) {
	return s.FindOwned(ctx, number, id, Retrievable)
}

func (s *store) FindOwned(ctx context.Context, number string, id Identity, statuses []Status) (*Document, error) {
	if !id.Valid() {
		return nil, nil
	}
	return s.findOwned(ctx, s.db, number, id, statuses, false)
}

func (s *store) CheckDocument(ctx context.Context, number string, id Identity, statuses []Status) (bool, error) {
	d, err := s.FindOwned(ctx, number, id, statuses)
	return d != nil, err
}

func (s *store) GetDraft(ctx context.Context, number string, id Identity) (*Document, error) {
	d, err := s.FindOwned(ctx, number, id, []Status{StatusDraft})
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrNotFound
	}
	return d, nil
}

func (s *store) ListDrafts(ctx context.Context, id Identity, page pagination.PageRequest) (*pagination.PageResult[Summary], error) {
	return s.page(ctx, id, InProgress, page)
}

func (s *store) GetCompletedDocuments(ctx context.Context, id Identity, page pagination.PageRequest) (*pagination.PageResult[Summary], error) {
	return s.page(ctx, id, Completed, page)
}

func (s *store) page(ctx context.Context, id Identity, statuses []Status, page pagination.PageRequest) (*pagination.PageResult[Summary], error) {
	page.Normalize(s.pagination)

	qb, err := s.pageQuery(id, statuses, page)
	if err != nil {
		return nil, err
	}

	countSQL, countArgs := qb.BuildCount()
	total, err := repository.QueryCount(ctx, s.db, countSQL, countArgs)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", s.cfg.Type, err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	docs, err := repository.QueryMany(ctx, s.db, pageSQL, pageArgs, scanner(s.cfg.Type))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.cfg.Type, err)
	}

	result := pagination.NewPageResult(summaries(docs), total, page.Page, page.PageSize)
	return &result, nil
}

func (s *store) pageQuery(id Identity, statuses []Status, page pagination.PageRequest) (*query.Builder, error) {
	qb, err := s.owned(id, statuses)
	if err != nil {
		return nil, err
	}
	qb.WhereSearch(page.Search, "DocumentNumber", "UserReference")
	if sort := sortFields(page.Sort); len(sort) > 0 {
		qb.OrderByFields(sort)
	}
	return qb, nil
}

func (s *store) CountCompletedDocuments(ctx context.Context, id Identity) (int, error) {
	return s.count(ctx, id, Completed)
}

func (s *store) count(ctx context.Context, id Identity, statuses []Status) (int, error) {
	qb, err := s.owned(id, statuses)
	if err != nil {
		return 0, err
	}
	q, args := qb.BuildCount()
	n, err := repository.QueryCount(ctx, s.db, q, args)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", s.cfg.Type, err)
	}
	return n, nil
}

func (s *store) ListForMonth(ctx context.Context, id Identity, month MonthYear) ([]Summary, error) {
	matches, err := ownerMatches(id)
	if err != nil {
		return nil, err
	}
	from, to := month.Range()

	q, args := query.
		NewBuilder(s.projection, defaultSort).
		WhereAny(matches...).
		WhereIn("Status", statusArgs(Completed)).
		WhereRange("CreatedAt", from, to).
		Build()

	docs, err := repository.QueryMany(ctx, s.db, q, args, scanner(s.cfg.Type))
	if err != nil {
		return nil, fmt.Errorf("list %s for %s: %w", s.cfg.Type, month, err)
	}
	return summaries(docs), nil
}

func (s *store) exists(ctx context.Context, number string) (bool, error) {
	q, args := query.NewBuilder(s.projection).WhereEquals("DocumentNumber", number).BuildCount()
	n, err := repository.QueryCount(ctx, s.db, q, args)
	return n > 0, err
}

func (s *store) CreateDraft(ctx context.Context, cmd CreateDraftCommand) (*Document, error) {
	if !cmd.Identity.Valid() {
		return nil, ErrNoIdentity
	}

	drafts, err := s.count(ctx, cmd.Identity, []Status{StatusDraft})
	if err != nil {
		return nil, err
	}
	if s.maxDrafts > 0 && drafts >= s.maxDrafts {
		return nil, fmt.Errorf("%w: %d %s drafts", ErrDraftLimit, drafts, s.cfg.Type)
	}

	number, err := UniqueDocumentNumber(ctx, s.cfg.Type, s.generate, s.exists)
	if err != nil {
		return nil, err
	}

	now := s.now()
	d := &Document{
		ID:             uuid.New(),
		Type:           s.cfg.Type,
		DocumentNumber: number,
		Status:         StatusDraft,
		CreatedBy:      cmd.Identity.UserPrincipal,
		ContactID:      cmd.Identity.ContactID,
		CreatedByEmail: cmd.Email,
		CreatedAt:      now,
		UpdatedAt:      now,
		UserReference:  cmd.UserReference,
		ExportData:     ExportData{},
		DraftData:      DraftData{},
		RequestByAdmin: cmd.RequestByAdmin,
	}

	created, err := s.insert(ctx, d)
	if err != nil {
		return nil, err
	}
	s.logger.Info("draft created", "document_number", created.DocumentNumber)
	return created, nil
}

func (s *store) insert(ctx context.Context, d *Document) (*Document, error) {
	q := fmt.Sprintf(`
		INSERT INTO %s (id, document_number, status, created_by, contact_id, created_by_email,
			created_at, updated_at, user_reference, document_uri, export_data, draft_data,
			request_by_admin, cloned_from)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING %s`, s.projection.Name(), s.projection.Returning())

	args := []any{
		d.ID, d.DocumentNumber, string(d.Status), d.CreatedBy, d.ContactID, d.CreatedByEmail,
		d.CreatedAt, d.UpdatedAt, d.UserReference, d.DocumentURI,
		repository.JSON[ExportData]{V: d.ExportData},
		repository.JSON[DraftData]{V: d.DraftData},
		d.RequestByAdmin, d.ClonedFrom,
	}

	created, err := repository.QueryOne(ctx, s.db, q, args, scanner(s.cfg.Type))
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", s.cfg.Type, repository.MapError(err, ErrNotFound, ErrDuplicate))
	}
	return &created, nil
}

// mutate locks the owned document, applies fn and writes the mutable
// columns back in one transaction.
func (s *store) mutate(ctx context.Context, number string, id Identity, statuses []Status, fn func(d *Document) error) (*Document, error) {
	if !id.Valid() {
		return nil, ErrNoIdentity
	}

	return repository.WithTx(ctx, s.db, func(tx *sql.Tx) (*Document, error) {
		d, err := s.findOwned(ctx, tx, number, id, statuses, true)
		if err != nil {
			return nil, err
		}
		if d == nil {
			return nil, ErrNotFound
		}
		if err := fn(d); err != nil {
			return nil, err
		}
		d.UpdatedAt = s.now()

		q := fmt.Sprintf(`
			UPDATE %s
			SET status = $2, user_reference = $3, document_uri = $4, export_data = $5,
				draft_data = $6, created_at = $7, updated_at = $8
			WHERE id = $1
			RETURNING %s`, s.projection.Name(), s.projection.Returning())

		args := []any{
			d.ID, string(d.Status), d.UserReference, d.DocumentURI,
			repository.JSON[ExportData]{V: d.ExportData},
			repository.JSON[DraftData]{V: d.DraftData},
			d.CreatedAt, d.UpdatedAt,
		}

		updated, err := repository.QueryOne(ctx, tx, q, args, scanner(s.cfg.Type))
		if err != nil {
			return nil, fmt.Errorf("update %s %s: %w", s.cfg.Type, number, repository.MapError(err, ErrNotFound, ErrDuplicate))
		}
		return &updated, nil
	})
}

func (s *store) UpsertDraftData(ctx context.Context, number string, id Identity, path string, value json.RawMessage) (*Document, error) {
	return s.mutate(ctx, number, id, []Status{StatusDraft, StatusPending}, func(d *Document) error {
		if d.DraftData == nil {
			d.DraftData = DraftData{}
		}
		d.DraftData[path] = value
		return nil
	})
}

func (s *store) UpdateExportData(ctx context.Context, number string, id Identity, key string, value json.RawMessage) (*Document, error) {
	return s.mutate(ctx, number, id, []Status{StatusDraft}, func(d *Document) error {
		if d.ExportData == nil {
			d.ExportData = ExportData{}
		}
		d.ExportData[key] = value
		return nil
	})
}

func (s *store) UpdateUserReference(ctx context.Context, number string, id Identity, ref string) (*Document, error) {
	return s.mutate(ctx, number, id, InProgress, func(d *Document) error {
		d.UserReference = ref
		return nil
	})
}

func (s *store) UpdateStatus(ctx context.Context, number string, id Identity, to Status) (*Document, error) {
	from := s.cfg.Transitions.Sources(to)
	if len(from) == 0 {
		return nil, fmt.Errorf("%w: to %s", ErrInvalidTransition, to)
	}

	return s.mutate(ctx, number, id, from, func(d *Document) error {
		if !s.cfg.Transitions.Allows(d.Status, to) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, d.Status, to)
		}
		d.Status = to
		return nil
	})
}

func (s *store) CompleteDraft(ctx context.Context, number string, id Identity, documentURI string) (*Document, error) {
	d, err := s.mutate(ctx, number, id, []Status{StatusDraft, StatusPending}, func(d *Document) error {
		d.Status = StatusComplete
		d.DocumentURI = documentURI
		d.CreatedAt = s.now()
		d.DraftData = DraftData{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("document completed", "document_number", d.DocumentNumber)
	return d, nil
}

func (s *store) DeleteDraft(ctx context.Context, number string, id Identity) error {
	if !id.Valid() {
		return ErrNoIdentity
	}

	err := repository.InTx(ctx, s.db, func(tx *sql.Tx) error {
		d, err := s.findOwned(ctx, tx, number, id, []Status{StatusDraft}, true)
		if err != nil {
			return err
		}
		if d == nil {
			return ErrNotFound
		}
		q := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.projection.Name())
		return repository.ExecExpectOne(ctx, tx, q, d.ID)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	s.logger.Info("draft deleted", "document_number", number)
	return nil
}

func (s *store) Clone(ctx context.Context, number string, id Identity, opts CloneOptions) (*Document, error) {
	src, err := s.FindOwned(ctx, number, id, Completed)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, ErrNotFound
	}

	newNumber, err := UniqueDocumentNumber(ctx, s.cfg.Type, s.generate, s.exists)
	if err != nil {
		return nil, err
	}

	copied, err := cloneDocument(src, newNumber, opts, s.cfg.LineItems, s.now())
	if err != nil {
		return nil, fmt.Errorf("clone %s: %w", number, err)
	}

	created, err := s.insert(ctx, copied)
	if err != nil {
		return nil, err
	}
	s.logger.Info("document cloned", "from", number, "document_number", created.DocumentNumber)
	return created, nil
}

func (s *store) Void(ctx context.Context, number string, id Identity) error {
	_, err := s.mutate(ctx, number, id, Completed, func(d *Document) error {
		d.Status = StatusVoid
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("document voided", "document_number", number)
	return nil
}
