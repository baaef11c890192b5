package ownership_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/documents"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/documents/documentstest"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/drafts"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/ownership"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/cache"
)

var (
	discard   = slog.New(slog.NewTextHandler(io.Discard, nil))
	caller    = documents.Identity{UserPrincipal: "user-1", ContactID: "contact-1"}
	draftOnly = []documents.Status{documents.StatusDraft}
)

type fixture struct {
	validator ownership.Validator
	drafts    drafts.System
	cc        *documentstest.Store
	ps        *documentstest.Store
	redis     *miniredis.Miniredis
}

func setup(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg := &cache.Config{Addr: mr.Addr()}
	require.NoError(t, cfg.Finalize(nil))

	dc := drafts.New(cache.New(cfg, discard), time.Hour, discard)
	cc := documentstest.NewStore(documents.TypeCatchCertificate)
	ps := documentstest.NewStore(documents.TypeProcessingStatement)
	sys := documentstest.System(cc, ps, documentstest.NewStore(documents.TypeStorageDocument))

	return &fixture{
		validator: ownership.New(sys, dc, discard),
		drafts:    dc,
		cc:        cc,
		ps:        ps,
		redis:     mr,
	}
}

func TestCacheHitSkipsStore(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	cached := &documents.Document{
		Type:           documents.TypeCatchCertificate,
		DocumentNumber: "GBR-2024-CC-CACHED001",
		Status:         documents.StatusDraft,
		CreatedBy:      "user-1",
	}
	require.NoError(t, f.drafts.Put(ctx, caller, cached))

	got, err := f.validator.Validate(ctx, caller, "gbr-2024-cc-cached001", draftOnly)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "GBR-2024-CC-CACHED001", got.DocumentNumber)
	assert.Zero(t, f.cc.Calls("FindOwned"), "store must not be consulted on a cache hit")
}

func TestCacheMissFallsThroughToStore(t *testing.T) {
	f := setup(t)
	f.cc.Put(documents.Document{
		DocumentNumber: "GBR-2024-CC-STORED001",
		Status:         documents.StatusDraft,
		ContactID:      "contact-1",
	})

	got, err := f.validator.Validate(context.Background(), caller, "GBR-2024-CC-STORED001", draftOnly)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, f.cc.Calls("FindOwned"))
}

func TestCacheSkippedWithoutDraftStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.drafts.Put(ctx, caller, &documents.Document{
		Type:           documents.TypeCatchCertificate,
		DocumentNumber: "GBR-2024-CC-CACHED001",
		Status:         documents.StatusDraft,
		CreatedBy:      "user-1",
	}))

	got, err := f.validator.Validate(ctx, caller, "GBR-2024-CC-CACHED001", documents.Completed)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 1, f.cc.Calls("FindOwned"))
}

func TestUncachedTypeUsesStore(t *testing.T) {
	f := setup(t)
	f.ps.Put(documents.Document{
		DocumentNumber: "GBR-2024-PS-STORED001",
		Status:         documents.StatusDraft,
		CreatedBy:      "user-1",
	})

	got, err := f.validator.Validate(context.Background(), caller, "GBR-2024-PS-STORED001", draftOnly)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, f.ps.Calls("FindOwned"))
}

func TestCacheFailureFallsThrough(t *testing.T) {
	f := setup(t)
	f.cc.Put(documents.Document{
		DocumentNumber: "GBR-2024-CC-STORED001",
		Status:         documents.StatusDraft,
		CreatedBy:      "user-1",
	})
	f.redis.Close()

	got, err := f.validator.Validate(context.Background(), caller, "GBR-2024-CC-STORED001", draftOnly)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, f.cc.Calls("FindOwned"))
}

func TestDenials(t *testing.T) {
	f := setup(t)
	f.cc.Put(documents.Document{
		DocumentNumber: "GBR-2024-CC-STORED001",
		Status:         documents.StatusComplete,
		CreatedBy:      "user-1",
	})

	tests := []struct {
		name   string
		id     documents.Identity
		number string
	}{
		{"no identity", documents.Identity{}, "GBR-2024-CC-STORED001"},
		{"empty number", caller, "  "},
		{"unknown type", caller, "GBR-2024-ZZ-STORED001"},
		{"not owned", documents.Identity{UserPrincipal: "user-9"}, "GBR-2024-CC-STORED001"},
		{"wrong status", caller, "GBR-2024-CC-STORED001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statuses := documents.Completed
			if tt.name == "wrong status" {
				statuses = draftOnly
			}
			got, err := f.validator.Validate(context.Background(), tt.id, tt.number, statuses)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestStoreErrorPropagates(t *testing.T) {
	f := setup(t)
	boom := errors.New("connection refused")
	f.ps.FailLookup = boom

	_, err := f.validator.Validate(context.Background(), caller, "GBR-2024-PS-STORED001", draftOnly)
	assert.ErrorIs(t, err, boom)
}
