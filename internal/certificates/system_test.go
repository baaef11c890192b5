package certificates_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/certificates"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/documents"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/pagination"
)

func copyRequest(void bool) certificates.CopyRequest {
	return certificates.CopyRequest{
		VoidOriginal:             void,
		Journey:                  "catchCertificate",
		CopyDocumentAcknowledged: true,
	}
}

func TestCopyDocument(t *testing.T) {
	f := setup(t)
	f.cc.Put(completed(t))

	result, err := f.sys.CopyDocument(context.Background(), caller, ccNumber, copyRequest(true))
	require.NoError(t, err)

	assert.Equal(t, ccNumber, result.DocumentNumber)
	assert.NotEqual(t, ccNumber, result.NewDocumentNumber)
	assert.True(t, result.VoidOriginal)
	assert.True(t, result.CopyDocumentAcknowledged)

	copied := f.cc.Get(result.NewDocumentNumber)
	require.NotNil(t, copied)
	assert.Equal(t, documents.StatusDraft, copied.Status)
	require.NotNil(t, copied.ClonedFrom)
	assert.Equal(t, ccNumber, *copied.ClonedFrom)
	assert.Empty(t, copied.DocumentURI)

	assert.Equal(t, documents.StatusVoid, f.cc.Get(ccNumber).Status)
}

func TestCopyDocumentLowercaseNumber(t *testing.T) {
	f := setup(t)
	f.cc.Put(completed(t))

	result, err := f.sys.CopyDocument(context.Background(), caller, "gbr-2024-cc-000000101", copyRequest(false))
	require.NoError(t, err)
	assert.Equal(t, ccNumber, result.DocumentNumber)
	assert.Equal(t, documents.StatusComplete, f.cc.Get(ccNumber).Status)
	assert.Zero(t, f.cc.Calls("Void"))
}

func TestCopyDocumentExcludeLandings(t *testing.T) {
	f := setup(t)
	f.cc.Put(completed(t))

	req := copyRequest(false)
	req.ExcludeLandings = true
	result, err := f.sys.CopyDocument(context.Background(), caller, ccNumber, req)
	require.NoError(t, err)

	copied := f.cc.Get(result.NewDocumentNumber)
	assert.JSONEq(t, `[{"species":"COD"}]`, string(copied.ExportData["products"]))
	assert.Contains(t, string(f.cc.Get(ccNumber).ExportData["products"]), "landings")
}

func TestCopyDocumentVoidFailureKeepsClone(t *testing.T) {
	f := setup(t)
	f.cc.Put(completed(t))
	f.cc.FailVoid = errors.New("connection reset")

	_, err := f.sys.CopyDocument(context.Background(), caller, ccNumber, copyRequest(true))
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection reset")

	assert.Equal(t, 1, f.cc.Calls("Clone"))
	assert.Equal(t, documents.StatusComplete, f.cc.Get(ccNumber).Status)

	page, err := f.cc.ListDrafts(context.Background(), caller, pagination.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestCopyDocumentDenied(t *testing.T) {
	tests := []struct {
		name   string
		id     documents.Identity
		number string
		mutate func(*documents.Document)
		want   error
	}{
		{"other owner", stranger, ccNumber, nil, certificates.ErrForbidden},
		{"not complete", caller, ccNumber, func(d *documents.Document) { d.Status = documents.StatusDraft }, certificates.ErrForbidden},
		{"journey mismatch", caller, "GBR-2024-PS-000000101", nil, certificates.ErrForbidden},
		{"no identity", documents.Identity{}, ccNumber, nil, certificates.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			d := completed(t)
			if tt.mutate != nil {
				tt.mutate(&d)
			}
			f.cc.Put(d)

			_, err := f.sys.CopyDocument(context.Background(), tt.id, tt.number, copyRequest(true))
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, f.cc.Calls("Clone"))
		})
	}
}

func TestCopyDocumentUnknownJourney(t *testing.T) {
	f := setup(t)
	req := copyRequest(false)
	req.Journey = "fishingLicence"

	_, err := f.sys.CopyDocument(context.Background(), caller, ccNumber, req)
	require.ErrorIs(t, err, documents.ErrUnknownJourney)
	assert.Equal(t, 500, certificates.MapHTTPStatus(err))
}

func TestCanCopy(t *testing.T) {
	f := setup(t)
	f.cc.Put(completed(t))
	f.cc.Put(draft("GBR-2024-CC-000000102"))
	ctx := context.Background()

	ok, err := f.sys.CanCopy(ctx, caller, ccNumber)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.sys.CanCopy(ctx, caller, "GBR-2024-CC-000000102")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.sys.CanCopy(ctx, stranger, ccNumber)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVoid(t *testing.T) {
	f := setup(t)
	f.cc.Put(completed(t))

	require.ErrorIs(t, f.sys.Void(context.Background(), stranger, ccNumber), certificates.ErrForbidden)
	require.NoError(t, f.sys.Void(context.Background(), caller, ccNumber))
	assert.Equal(t, documents.StatusVoid, f.cc.Get(ccNumber).Status)
}

func TestDocumentSummary(t *testing.T) {
	f := setup(t)
	f.cc.Put(completed(t))
	ctx := context.Background()

	sm, err := f.sys.DocumentSummary(ctx, caller, ccNumber)
	require.NoError(t, err)
	require.NotNil(t, sm)
	assert.Equal(t, ccNumber, sm.DocumentNumber)

	sm, err = f.sys.DocumentSummary(ctx, stranger, ccNumber)
	require.NoError(t, err)
	assert.Nil(t, sm)
}

func TestArtifact(t *testing.T) {
	f := setup(t)
	d := completed(t)
	f.cc.Put(d)
	f.storage.blobs[d.DocumentURI] = []byte("%PDF-1.4")

	art, err := f.sys.Artifact(context.Background(), caller, ccNumber)
	require.NoError(t, err)
	defer art.Body.Close()
	assert.Equal(t, int64(8), art.ContentLength)

	d.DocumentNumber = "GBR-2024-CC-000000103"
	d.DocumentURI = ""
	f.cc.Put(d)
	_, err = f.sys.Artifact(context.Background(), caller, d.DocumentNumber)
	assert.ErrorIs(t, err, certificates.ErrNoArtifact)
}

func TestDraftLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	d, err := f.sys.CreateDraft(ctx, caller, "user@example.com", documents.TypeCatchCertificate, certificates.CreateDraftRequest{UserReference: "ref-1"})
	require.NoError(t, err)
	number := d.DocumentNumber

	got, err := f.sys.GetDraft(ctx, caller, documents.TypeCatchCertificate, number)
	require.NoError(t, err)
	assert.Equal(t, "ref-1", got.UserReference)

	cached, err := f.drafts.Get(ctx, caller, documents.TypeCatchCertificate, number)
	require.NoError(t, err)
	require.NotNil(t, cached, "cc drafts are cached after a read")

	_, err = f.sys.UpdateUserReference(ctx, caller, documents.TypeCatchCertificate, number, "ref-2")
	require.NoError(t, err)

	cached, err = f.drafts.Get(ctx, caller, documents.TypeCatchCertificate, number)
	require.NoError(t, err)
	assert.Nil(t, cached, "writes invalidate the cached draft")

	got, err = f.sys.GetDraft(ctx, caller, documents.TypeCatchCertificate, number)
	require.NoError(t, err)
	assert.Equal(t, "ref-2", got.UserReference)

	_, err = f.sys.UpsertDraftData(ctx, caller, documents.TypeCatchCertificate, number, certificates.DraftDataRequest{
		Path: "/create-catch-certificate/what-are-you-exporting",
		Data: raw(t, `{"species":"COD"}`),
	})
	require.NoError(t, err)

	done, err := f.sys.CompleteDraft(ctx, caller, documents.TypeCatchCertificate, number, "export-certificates/"+number+".pdf")
	require.NoError(t, err)
	assert.Equal(t, documents.StatusComplete, done.Status)

	_, err = f.sys.GetDraft(ctx, caller, documents.TypeCatchCertificate, number)
	assert.ErrorIs(t, err, documents.ErrNotFound)
}

func TestDraftJourneyMismatch(t *testing.T) {
	f := setup(t)
	f.ps.Put(draft(psNumber))

	_, err := f.sys.GetDraft(context.Background(), caller, documents.TypeCatchCertificate, psNumber)
	require.ErrorIs(t, err, certificates.ErrJourneyMismatch)
	assert.Equal(t, 403, certificates.MapHTTPStatus(err))

	_, err = f.sys.GetDraft(context.Background(), caller, documents.TypeCatchCertificate, "")
	assert.ErrorIs(t, err, certificates.ErrMissingNumber)
}

func TestDeleteDraft(t *testing.T) {
	f := setup(t)
	f.ps.Put(draft(psNumber))
	ctx := context.Background()

	require.ErrorIs(t, f.sys.DeleteDraft(ctx, stranger, documents.TypeProcessingStatement, psNumber), documents.ErrNotFound)
	require.NoError(t, f.sys.DeleteDraft(ctx, caller, documents.TypeProcessingStatement, psNumber))
	assert.Nil(t, f.ps.Get(psNumber))
}

func TestDeleteDraftDropsColleagueCache(t *testing.T) {
	f := setup(t)
	f.cc.Put(draft(ccNumber))
	ctx := context.Background()
	colleague := documents.Identity{UserPrincipal: "user-2", ContactID: caller.ContactID}

	cached, err := f.sys.GetDraft(ctx, colleague, documents.TypeCatchCertificate, ccNumber)
	require.NoError(t, err)
	require.NotNil(t, cached)

	require.NoError(t, f.sys.DeleteDraft(ctx, caller, documents.TypeCatchCertificate, ccNumber))

	got, err := f.drafts.Get(ctx, colleague, documents.TypeCatchCertificate, ccNumber)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = f.sys.GetDraft(ctx, colleague, documents.TypeCatchCertificate, ccNumber)
	assert.ErrorIs(t, err, documents.ErrNotFound)
}

func TestUpdateStatus(t *testing.T) {
	f := setup(t)
	f.sd.Put(draft("GBR-2024-SD-000000301"))
	ctx := context.Background()

	d, err := f.sys.UpdateStatus(ctx, caller, documents.TypeStorageDocument, "GBR-2024-SD-000000301", documents.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, documents.StatusPending, d.Status)

	_, err = f.sys.UpdateStatus(ctx, caller, documents.TypeStorageDocument, "GBR-2024-SD-000000301", documents.StatusVoid)
	assert.ErrorIs(t, err, documents.ErrInvalidTransition)
}

func TestUpdateStatusCannotComplete(t *testing.T) {
	f := setup(t)
	f.cc.Put(draft(ccNumber))
	ctx := context.Background()

	_, err := f.sys.UpdateStatus(ctx, caller, documents.TypeCatchCertificate, ccNumber, documents.StatusComplete)
	require.ErrorIs(t, err, documents.ErrInvalidTransition)

	stored := f.cc.Get(ccNumber)
	assert.Equal(t, documents.StatusDraft, stored.Status)
	assert.Empty(t, stored.DocumentURI)

	canCopy, err := f.sys.CanCopy(ctx, caller, ccNumber)
	require.NoError(t, err)
	assert.False(t, canCopy)
}

func TestUpdateStatusOutsideSourceSet(t *testing.T) {
	f := setup(t)
	f.cc.Put(completed(t))
	ctx := context.Background()

	_, err := f.sys.UpdateStatus(ctx, caller, documents.TypeCatchCertificate, ccNumber, documents.StatusDraft)
	assert.ErrorIs(t, err, documents.ErrNotFound)
	assert.Equal(t, documents.StatusComplete, f.cc.Get(ccNumber).Status)
}

func TestExporterDetails(t *testing.T) {
	f := setup(t)
	f.cc.Put(draft(ccNumber))
	ctx := context.Background()

	saved, err := f.sys.SetExporterDetails(ctx, caller, documents.TypeCatchCertificate, ccNumber, documents.ExporterDetails{
		ExporterFullName: "Jo Bloggs",
		ExporterCompany:  "Fish Co",
		AddressOne:       "1 Quay",
		Postcode:         "AB1 2CD",
	})
	require.NoError(t, err)
	assert.Equal(t, caller.ContactID, saved.ContactID)

	got, err := f.sys.ExporterDetails(ctx, caller, documents.TypeCatchCertificate, ccNumber)
	require.NoError(t, err)
	assert.Equal(t, "Fish Co", got.ExporterCompany)
	assert.Equal(t, "Jo Bloggs", got.ExporterFullName)
}

func TestDashboard(t *testing.T) {
	f := setup(t)
	f.cc.Put(completed(t))
	f.cc.Put(draft("GBR-2024-CC-000000102"))
	f.cc.Put(draft("GBR-2024-CC-000000103"))

	dash, err := f.sys.Dashboard(context.Background(), caller, documents.TypeCatchCertificate, pagination.PageRequest{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, dash.InProgress.Total)
	assert.Equal(t, 1, dash.Completed.Total)

	_, err = f.sys.Dashboard(context.Background(), documents.Identity{}, documents.TypeCatchCertificate, pagination.PageRequest{})
	assert.ErrorIs(t, err, documents.ErrNoIdentity)
}

func TestCompleted(t *testing.T) {
	f := setup(t)
	for _, n := range []string{"GBR-2024-CC-000000101", "GBR-2024-CC-000000102", "GBR-2024-CC-000000103"} {
		d := completed(t)
		d.DocumentNumber = n
		f.cc.Put(d)
	}

	result, err := f.sys.Completed(context.Background(), caller, documents.TypeCatchCertificate, pagination.PageRequest{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Page)
	assert.Equal(t, 2, result.Limit)
	assert.Len(t, result.Documents, 1)
}

func TestForMonth(t *testing.T) {
	f := setup(t)
	f.cc.Put(completed(t))
	ctx := context.Background()

	docs, err := f.sys.ForMonth(ctx, caller, documents.TypeCatchCertificate, "04-2024")
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	docs, err = f.sys.ForMonth(ctx, caller, documents.TypeCatchCertificate, "05-2024")
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = f.sys.ForMonth(ctx, caller, documents.TypeCatchCertificate, "13-2024")
	assert.ErrorIs(t, err, documents.ErrInvalidMonth)
}
