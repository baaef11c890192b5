// Package documents models export documents and persists them per type.
package documents

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/pagination"
)

// System dispatches to the store for each document type.
type System interface {
	// Store returns the store for t. TypeUnknown yields ErrUnknownType.
	Store(t Type) (Store, error)
	// GetDocument looks the number up in the store its service code names.
	// Unknown codes, missing or unowned documents, and statuses other than
	// COMPLETE or PENDING all yield nil.
	GetDocument(ctx context.Context, number string, id Identity) (*Summary, error)
}

type system struct {
	stores map[Type]Store
	logger *slog.Logger
}

// New creates a System backed by one store per document type.
func New(
	db *sql.DB,
	schema string,
	logger *slog.Logger,
	pagination pagination.Config,
	maxDrafts int,
) System {
	logger = logger.With("system", "documents")

	stores := make(map[Type]Store, len(Types))
	for _, t := range Types {
		cfg, _ := Config(t)
		stores[t] = newStore(cfg, db, schema, logger, pagination, maxDrafts)
	}

	return NewWithStores(stores, logger)
}

// NewWithStores creates a System over explicit stores.
func NewWithStores(stores map[Type]Store, logger *slog.Logger) System {
	return &system{stores: stores, logger: logger}
}

func (s *system) Store(t Type) (Store, error) {
	if st, ok := s.stores[t]; ok {
		return st, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
}

func (s *system) GetDocument(ctx context.Context, number string, id Identity) (*Summary, error) {
	number = strings.ToUpper(strings.TrimSpace(number))

	t := ServiceName(number)
	if t == TypeUnknown {
		return nil, nil
	}

	st, err := s.Store(t)
	if err != nil {
		return nil, err
	}

	d, err := st.GetDocument(ctx, number, id)
	if err != nil || d == nil {
		return nil, err
	}
	if !slices.Contains(Retrievable, d.Status) {
		return nil, nil
	}

	sm := d.Summary()
	return &sm, nil
}
