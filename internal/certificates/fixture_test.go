package certificates_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/certificates"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/documents"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/documents/documentstest"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/drafts"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/ownership"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/cache"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/lifecycle"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/storage"
)

const (
	ccNumber = "GBR-2024-CC-000000101"
	psNumber = "GBR-2024-PS-000000201"
)

var (
	discard  = slog.New(slog.NewTextHandler(io.Discard, nil))
	caller   = documents.Identity{UserPrincipal: "user-1", ContactID: "contact-1"}
	stranger = documents.Identity{UserPrincipal: "user-2", ContactID: "contact-2"}
)

type fakeStorage struct {
	blobs map[string][]byte
}

func (f *fakeStorage) Start(*lifecycle.Coordinator) error { return nil }

func (f *fakeStorage) Download(_ context.Context, key string) (*storage.Artifact, error) {
	data, ok := f.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Artifact{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentType:   "application/pdf",
		ContentLength: int64(len(data)),
	}, nil
}

func (f *fakeStorage) Exists(_ context.Context, key string) (bool, error) {
	_, ok := f.blobs[key]
	return ok, nil
}

type fixture struct {
	sys     certificates.System
	drafts  drafts.System
	cc      *documentstest.Store
	ps      *documentstest.Store
	sd      *documentstest.Store
	storage *fakeStorage
}

func setup(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg := &cache.Config{Addr: mr.Addr()}
	require.NoError(t, cfg.Finalize(nil))

	dc := drafts.New(cache.New(cfg, discard), time.Hour, discard)
	cc := documentstest.NewStore(documents.TypeCatchCertificate)
	ps := documentstest.NewStore(documents.TypeProcessingStatement)
	sd := documentstest.NewStore(documents.TypeStorageDocument)
	docs := documentstest.System(cc, ps, sd)
	fs := &fakeStorage{blobs: map[string][]byte{}}

	return &fixture{
		sys:     certificates.New(docs, ownership.New(docs, dc, discard), dc, fs, discard),
		drafts:  dc,
		cc:      cc,
		ps:      ps,
		sd:      sd,
		storage: fs,
	}
}

func raw(t *testing.T, s string) json.RawMessage {
	t.Helper()
	require.True(t, json.Valid([]byte(s)), "invalid json: %s", s)
	return json.RawMessage(strings.TrimSpace(s))
}

// completed returns a COMPLETE catch certificate owned by caller.
func completed(t *testing.T) documents.Document {
	return documents.Document{
		DocumentNumber: ccNumber,
		Status:         documents.StatusComplete,
		CreatedBy:      caller.UserPrincipal,
		ContactID:      caller.ContactID,
		CreatedAt:      time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC),
		DocumentURI:    "export-certificates/" + ccNumber + ".pdf",
		ExportData: documents.ExportData{
			"exporterDetails": raw(t, `{"exporterCompanyName":"Fish Co","addressOne":"1 Quay","postcode":"AB1 2CD"}`),
			"products":        raw(t, `[{"species":"COD","landings":[{"id":"L1"}]}]`),
		},
	}
}

func draft(number string) documents.Document {
	return documents.Document{
		DocumentNumber: number,
		Status:         documents.StatusDraft,
		CreatedBy:      caller.UserPrincipal,
		ContactID:      caller.ContactID,
		CreatedAt:      time.Date(2024, 4, 20, 9, 0, 0, 0, time.UTC),
	}
}
