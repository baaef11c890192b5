package api

import (
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/certificates"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/documents"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/drafts"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/ownership"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Documents    documents.System
	Drafts       drafts.System
	Ownership    ownership.Validator
	Certificates certificates.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	docsSystem := documents.New(
		runtime.Database.Connection(),
		runtime.Database.Schema(),
		runtime.Logger,
		runtime.API.Pagination,
		runtime.Documents.DraftLimit,
	)

	draftCache := drafts.New(
		runtime.Cache,
		runtime.Documents.DraftCacheTTLDuration(),
		runtime.Logger,
	)

	validator := ownership.New(docsSystem, draftCache, runtime.Logger)

	return &Domain{
		Documents:    docsSystem,
		Drafts:       draftCache,
		Ownership:    validator,
		Certificates: certificates.New(docsSystem, validator, draftCache, runtime.Storage, runtime.Logger),
	}
}
