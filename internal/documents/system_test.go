package documents_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/documents"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/documents/documentstest"
)

var owner = documents.Identity{UserPrincipal: "user-1", ContactID: "contact-1"}

func TestGetDocument(t *testing.T) {
	cc := documentstest.NewStore(documents.TypeCatchCertificate)
	created := time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC)

	cc.Put(documents.Document{
		DocumentNumber: "GBR-2024-CC-COMPLETE1",
		Status:         documents.StatusComplete,
		CreatedBy:      "user-1",
		CreatedAt:      created,
		DocumentURI:    "GBR-2024-CC-COMPLETE1.pdf",
		UserReference:  "ref-1",
	})
	cc.Put(documents.Document{
		DocumentNumber: "GBR-2024-CC-DRAFT0001",
		Status:         documents.StatusDraft,
		CreatedBy:      "user-1",
	})
	cc.Put(documents.Document{
		DocumentNumber: "GBR-2024-CC-PENDING01",
		Status:         documents.StatusPending,
		ContactID:      "contact-1",
	})

	sys := documentstest.System(
		cc,
		documentstest.NewStore(documents.TypeProcessingStatement),
		documentstest.NewStore(documents.TypeStorageDocument),
	)
	ctx := context.Background()

	t.Run("complete returns summary", func(t *testing.T) {
		got, err := sys.GetDocument(ctx, "gbr-2024-cc-complete1", owner)
		if err != nil {
			t.Fatal(err)
		}
		want := documents.Summary{
			DocumentNumber: "GBR-2024-CC-COMPLETE1",
			DocumentURI:    "GBR-2024-CC-COMPLETE1.pdf",
			DocumentStatus: documents.StatusComplete,
			CreatedAt:      created,
			UserReference:  "ref-1",
		}
		if got == nil || *got != want {
			t.Errorf("GetDocument = %+v, want %+v", got, want)
		}
	})

	tests := []struct {
		name   string
		number string
		id     documents.Identity
		isNil  bool
	}{
		{"pending via contact", "GBR-2024-CC-PENDING01", documents.Identity{ContactID: "contact-1"}, false},
		{"draft yields nil", "GBR-2024-CC-DRAFT0001", owner, true},
		{"unknown type yields nil", "GBR-2024-XX-COMPLETE1", owner, true},
		{"missing yields nil", "GBR-2024-CC-MISSING01", owner, true},
		{"not owned yields nil", "GBR-2024-CC-COMPLETE1", documents.Identity{UserPrincipal: "user-2"}, true},
		{"empty store type yields nil", "GBR-2024-PS-COMPLETE1", owner, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sys.GetDocument(ctx, tt.number, tt.id)
			if err != nil {
				t.Fatal(err)
			}
			if (got == nil) != tt.isNil {
				t.Errorf("GetDocument(%s) = %+v, want nil=%v", tt.number, got, tt.isNil)
			}
		})
	}
}

func TestStoreDispatch(t *testing.T) {
	sys := documentstest.System(documentstest.NewStore(documents.TypeStorageDocument))

	st, err := sys.Store(documents.TypeStorageDocument)
	if err != nil || st.Config().Table != "storage_documents" {
		t.Fatalf("Store(SD) = %v, %v", st, err)
	}
	if _, err := sys.Store(documents.TypeUnknown); !errors.Is(err, documents.ErrUnknownType) {
		t.Errorf("err = %v, want ErrUnknownType", err)
	}
}

func TestCloneLeavesOriginalUntouched(t *testing.T) {
	cc := documentstest.NewStore(documents.TypeCatchCertificate)
	cc.Put(documents.Document{
		DocumentNumber: "GBR-2024-CC-ORIGINAL1",
		Status:         documents.StatusComplete,
		CreatedBy:      "user-1",
		DocumentURI:    "original.pdf",
		ExportData: documents.ExportData{
			"products": json.RawMessage(`[{"species":"COD","landings":[{"id":1}]}]`),
		},
	})
	before := cc.Get("GBR-2024-CC-ORIGINAL1")

	copied, err := cc.Clone(context.Background(), "GBR-2024-CC-ORIGINAL1", owner, documents.CloneOptions{ExcludeLandings: true})
	if err != nil {
		t.Fatal(err)
	}

	after := cc.Get("GBR-2024-CC-ORIGINAL1")
	if after.Status != before.Status || after.DocumentURI != before.DocumentURI ||
		string(after.ExportData["products"]) != string(before.ExportData["products"]) {
		t.Errorf("original changed: before %+v after %+v", before, after)
	}

	if copied.Status != documents.StatusDraft || copied.DocumentURI != "" {
		t.Errorf("clone = %+v", copied)
	}
	if copied.ClonedFrom == nil || *copied.ClonedFrom != "GBR-2024-CC-ORIGINAL1" {
		t.Errorf("ClonedFrom = %v", copied.ClonedFrom)
	}
	if copied.DocumentNumber == before.DocumentNumber {
		t.Error("clone reused the original number")
	}
}
