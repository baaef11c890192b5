// Package drafts caches DRAFT documents per caller so repeated form reads
// skip the store. The cache is never authoritative.
package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/documents"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/cache"
)

// System reads and writes cached drafts.
type System interface {
	// Get returns the cached draft or nil on a miss.
	Get(ctx context.Context, id documents.Identity, t documents.Type, number string) (*documents.Document, error)
	// Put caches d if it is a DRAFT. Other statuses are ignored.
	Put(ctx context.Context, id documents.Identity, d *documents.Document) error
	// Invalidate drops every cached copy of the document, whichever caller
	// cached it.
	Invalidate(ctx context.Context, id documents.Identity, t documents.Type, number string) error
}

type drafts struct {
	cache  cache.System
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a draft cache over the key/value cache with entries expiring after ttl.
func New(c cache.System, ttl time.Duration, logger *slog.Logger) System {
	return &drafts{
		cache:  c,
		ttl:    ttl,
		logger: logger.With("system", "drafts"),
	}
}

// Key returns the cache key for a caller's document:
// drafts:<userPrincipal>:<contactId>:<journey>:<DOCUMENTNUMBER>.
func Key(id documents.Identity, t documents.Type, number string) string {
	return fmt.Sprintf("drafts:%s:%s:%s:%s", id.UserPrincipal, id.ContactID, t.Journey(), number)
}

func (d *drafts) Get(ctx context.Context, id documents.Identity, t documents.Type, number string) (*documents.Document, error) {
	b, err := d.cache.Get(ctx, Key(id, t, number))
	if errors.Is(err, cache.ErrMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var doc documents.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		d.logger.Warn("discarding unreadable cached draft", "document_number", number, "error", err)
		return nil, d.Invalidate(ctx, id, t, number)
	}
	if doc.Status != documents.StatusDraft || doc.DocumentNumber != number {
		return nil, nil
	}
	return &doc, nil
}

func (d *drafts) Put(ctx context.Context, id documents.Identity, doc *documents.Document) error {
	if doc == nil || doc.Status != documents.StatusDraft {
		return nil
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode draft %s: %w", doc.DocumentNumber, err)
	}
	return d.cache.Set(ctx, Key(id, doc.Type, doc.DocumentNumber), b, d.ttl)
}

// Invalidate deletes the caller's own key first, then any key another
// principal or contact holds for the same document.
func (d *drafts) Invalidate(ctx context.Context, id documents.Identity, t documents.Type, number string) error {
	if err := d.cache.Delete(ctx, Key(id, t, number)); err != nil {
		return err
	}
	n, err := d.cache.DeleteMatching(ctx, documentPattern(t, number))
	if err != nil {
		return err
	}
	if n > 0 {
		d.logger.Debug("dropped shared draft entries", "document_number", number, "keys", n)
	}
	return nil
}

// documentPattern matches the document's key for any caller.
func documentPattern(t documents.Type, number string) string {
	return fmt.Sprintf("drafts:*:*:%s:%s", t.Journey(), globEscaper.Replace(number))
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
