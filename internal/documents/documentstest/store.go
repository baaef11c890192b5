// Package documentstest provides an in-memory documents.Store for tests.
package documentstest

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/documents"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/pagination"
)

// Store is an in-memory documents.Store. Failure hooks, when set, replace
// the corresponding operation's result with their error.
type Store struct {
	mu    sync.Mutex
	cfg   documents.TypeConfig
	docs  map[string]*documents.Document
	calls map[string]int
	seq   int

	Now        func() time.Time
	FailVoid   error
	FailClone  error
	FailLookup error
}

var _ documents.Store = (*Store)(nil)

// NewStore returns an empty store for t.
func NewStore(t documents.Type) *Store {
	cfg, err := documents.Config(t)
	if err != nil {
		panic(err)
	}
	return &Store{
		cfg:   cfg,
		docs:  make(map[string]*documents.Document),
		calls: make(map[string]int),
		Now:   func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	}
}

// System wraps stores in a documents.System.
func System(stores ...*Store) documents.System {
	m := make(map[documents.Type]documents.Store, len(stores))
	for _, s := range stores {
		m[s.cfg.Type] = s
	}
	return documents.NewWithStores(m, discardLogger())
}

// Put stores a copy of d, filling in its type and ID.
func (s *Store) Put(d documents.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.Type = s.cfg.Type
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	s.docs[d.DocumentNumber] = clone(&d)
}

// Get returns a copy of the stored document regardless of owner, or nil.
func (s *Store) Get(number string) *documents.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.docs[number]; ok {
		return clone(d)
	}
	return nil
}

// Calls returns how many times the named operation ran.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Store) Config() documents.TypeConfig {
	return s.cfg
}

func (s *Store) GetDocument(ctx context.Context, number string, id documents.Identity) (*documents.Document, error) {
	return s.FindOwned(ctx, number, id, documents.Retrievable)
}

func (s *Store) FindOwned(_ context.Context, number string, id documents.Identity, statuses []documents.Status) (*documents.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["FindOwned"]++
	if s.FailLookup != nil {
		return nil, s.FailLookup
	}
	if d := s.owned(number, id, statuses); d != nil {
		return clone(d), nil
	}
	return nil, nil
}

func (s *Store) CheckDocument(ctx context.Context, number string, id documents.Identity, statuses []documents.Status) (bool, error) {
	d, err := s.FindOwned(ctx, number, id, statuses)
	return d != nil, err
}

func (s *Store) GetDraft(ctx context.Context, number string, id documents.Identity) (*documents.Document, error) {
	d, err := s.FindOwned(ctx, number, id, []documents.Status{documents.StatusDraft})
	if err == nil && d == nil {
		err = documents.ErrNotFound
	}
	return d, err
}

func (s *Store) ListDrafts(_ context.Context, id documents.Identity, page pagination.PageRequest) (*pagination.PageResult[documents.Summary], error) {
	return s.page(id, documents.InProgress, page)
}

func (s *Store) GetCompletedDocuments(_ context.Context, id documents.Identity, page pagination.PageRequest) (*pagination.PageResult[documents.Summary], error) {
	return s.page(id, documents.Completed, page)
}

func (s *Store) CountCompletedDocuments(_ context.Context, id documents.Identity) (int, error) {
	if !id.Valid() {
		return 0, documents.ErrNoIdentity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.filter(id, documents.Completed, nil)), nil
}

func (s *Store) ListForMonth(_ context.Context, id documents.Identity, month documents.MonthYear) ([]documents.Summary, error) {
	if !id.Valid() {
		return nil, documents.ErrNoIdentity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return summaries(s.filter(id, documents.Completed, func(d *documents.Document) bool {
		return month.Contains(d.CreatedAt)
	})), nil
}

func (s *Store) CreateDraft(_ context.Context, cmd documents.CreateDraftCommand) (*documents.Document, error) {
	if !cmd.Identity.Valid() {
		return nil, documents.ErrNoIdentity
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	d := &documents.Document{
		ID:             uuid.New(),
		Type:           s.cfg.Type,
		DocumentNumber: s.nextNumber(now),
		Status:         documents.StatusDraft,
		CreatedBy:      cmd.Identity.UserPrincipal,
		ContactID:      cmd.Identity.ContactID,
		CreatedByEmail: cmd.Email,
		CreatedAt:      now,
		UpdatedAt:      now,
		UserReference:  cmd.UserReference,
		ExportData:     documents.ExportData{},
		DraftData:      documents.DraftData{},
		RequestByAdmin: cmd.RequestByAdmin,
	}
	s.docs[d.DocumentNumber] = d
	return clone(d), nil
}

func (s *Store) UpsertDraftData(_ context.Context, number string, id documents.Identity, path string, value json.RawMessage) (*documents.Document, error) {
	return s.mutate(number, id, []documents.Status{documents.StatusDraft, documents.StatusPending}, func(d *documents.Document) error {
		d.DraftData[path] = value
		return nil
	})
}

func (s *Store) UpdateExportData(_ context.Context, number string, id documents.Identity, key string, value json.RawMessage) (*documents.Document, error) {
	return s.mutate(number, id, []documents.Status{documents.StatusDraft}, func(d *documents.Document) error {
		d.ExportData[key] = value
		return nil
	})
}

func (s *Store) UpdateUserReference(_ context.Context, number string, id documents.Identity, ref string) (*documents.Document, error) {
	return s.mutate(number, id, documents.InProgress, func(d *documents.Document) error {
		d.UserReference = ref
		return nil
	})
}

func (s *Store) UpdateStatus(_ context.Context, number string, id documents.Identity, to documents.Status) (*documents.Document, error) {
	from := s.cfg.Transitions.Sources(to)
	if len(from) == 0 {
		return nil, fmt.Errorf("%w: to %s", documents.ErrInvalidTransition, to)
	}
	return s.mutate(number, id, from, func(d *documents.Document) error {
		if !s.cfg.Transitions.Allows(d.Status, to) {
			return documents.ErrInvalidTransition
		}
		d.Status = to
		return nil
	})
}

func (s *Store) CompleteDraft(_ context.Context, number string, id documents.Identity, documentURI string) (*documents.Document, error) {
	return s.mutate(number, id, []documents.Status{documents.StatusDraft, documents.StatusPending}, func(d *documents.Document) error {
		d.Status = documents.StatusComplete
		d.DocumentURI = documentURI
		d.CreatedAt = s.Now()
		d.DraftData = documents.DraftData{}
		return nil
	})
}

func (s *Store) DeleteDraft(_ context.Context, number string, id documents.Identity) error {
	if !id.Valid() {
		return documents.ErrNoIdentity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owned(number, id, []documents.Status{documents.StatusDraft}) == nil {
		return documents.ErrNotFound
	}
	delete(s.docs, number)
	return nil
}

func (s *Store) Clone(_ context.Context, number string, id documents.Identity, opts documents.CloneOptions) (*documents.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["Clone"]++
	if s.FailClone != nil {
		return nil, s.FailClone
	}

	src := s.owned(number, id, documents.Completed)
	if src == nil {
		return nil, documents.ErrNotFound
	}

	now := s.Now()
	from := src.DocumentNumber
	d := clone(src)
	d.ID = uuid.New()
	d.DocumentNumber = s.nextNumber(now)
	d.Status = documents.StatusDraft
	d.DocumentURI = ""
	d.CreatedAt, d.UpdatedAt = now, now
	d.DraftData = documents.DraftData{}
	d.RequestByAdmin = opts.RequestByAdmin
	d.ClonedFrom = &from
	if opts.ExcludeLandings {
		stripped, err := documents.StripLineItems(d.ExportData, s.cfg.LineItems)
		if err != nil {
			return nil, err
		}
		d.ExportData = stripped
	}

	s.docs[d.DocumentNumber] = d
	return clone(d), nil
}

func (s *Store) Void(_ context.Context, number string, id documents.Identity) error {
	s.mu.Lock()
	s.calls["Void"]++
	fail := s.FailVoid
	s.mu.Unlock()
	if fail != nil {
		return fail
	}

	_, err := s.mutate(number, id, documents.Completed, func(d *documents.Document) error {
		d.Status = documents.StatusVoid
		return nil
	})
	return err
}

func (s *Store) mutate(number string, id documents.Identity, statuses []documents.Status, fn func(*documents.Document) error) (*documents.Document, error) {
	if !id.Valid() {
		return nil, documents.ErrNoIdentity
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.owned(number, id, statuses)
	if d == nil {
		return nil, documents.ErrNotFound
	}
	next := clone(d)
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.Now()
	s.docs[number] = next
	return clone(next), nil
}

func (s *Store) owned(number string, id documents.Identity, statuses []documents.Status) *documents.Document {
	d, ok := s.docs[number]
	if !ok || !slices.Contains(statuses, d.Status) || !documents.ValidateDocumentOwner(d, id) {
		return nil
	}
	return d
}

func (s *Store) filter(id documents.Identity, statuses []documents.Status, keep func(*documents.Document) bool) []*documents.Document {
	out := make([]*documents.Document, 0)
	for _, d := range s.docs {
		if !slices.Contains(statuses, d.Status) || !documents.ValidateDocumentOwner(d, id) {
			continue
		}
		if keep != nil && !keep(d) {
			continue
		}
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b *documents.Document) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.DocumentNumber, b.DocumentNumber)
	})
	return out
}

func (s *Store) page(id documents.Identity, statuses []documents.Status, page pagination.PageRequest) (*pagination.PageResult[documents.Summary], error) {
	if !id.Valid() {
		return nil, documents.ErrNoIdentity
	}
	page.Normalize(pagination.Config{DefaultPageSize: 10, MaxPageSize: 100})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["page"]++

	all := s.filter(id, statuses, nil)
	start := min(page.Offset(), len(all))
	end := min(start+page.PageSize, len(all))

	result := pagination.NewPageResult(summaries(all[start:end]), len(all), page.Page, page.PageSize)
	return &result, nil
}

func (s *Store) nextNumber(now time.Time) string {
	s.seq++
	return fmt.Sprintf("GBR-%d-%s-%09d", now.Year(), s.cfg.Type.Code(), s.seq)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func clone(d *documents.Document) *documents.Document {
	c := *d
	c.ExportData = maps.Clone(d.ExportData)
	if c.ExportData == nil {
		c.ExportData = documents.ExportData{}
	}
	c.DraftData = maps.Clone(d.DraftData)
	if c.DraftData == nil {
		c.DraftData = documents.DraftData{}
	}
	if d.ClonedFrom != nil {
		from := *d.ClonedFrom
		c.ClonedFrom = &from
	}
	return &c
}

func summaries(docs []*documents.Document) []documents.Summary {
	out := make([]documents.Summary, len(docs))
	for i, d := range docs {
		out[i] = d.Summary()
	}
	return out
}
