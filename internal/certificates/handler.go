package certificates

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/documents"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/auth"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/formatting"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/handlers"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/pagination"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/routes"
)

// NumberHeader carries the document number on single-document routes.
const NumberHeader = "documentNumber"

// Handler provides HTTP endpoints for certificate operations.
type Handler struct {
	sys         System
	logger      *slog.Logger
	pagination  pagination.Config
	maxArtifact int64
}

// NewHandler creates a Handler. Artifacts larger than maxArtifact bytes are
// streamed without a page count.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config, maxArtifact int64) *Handler {
	return &Handler{
		sys:         sys,
		logger:      logger.With("handler", "certificates"),
		pagination:  pagination,
		maxArtifact: maxArtifact,
	}
}

// Routes returns the route groups for certificate endpoints.
func (h *Handler) Routes() []routes.Group {
	return []routes.Group{
		{
			Routes: []routes.Route{
				{Method: "POST", Pattern: "/confirm-copy-certificate", Handler: h.ConfirmCopy},
				{Method: "GET", Pattern: "/check-copy-certificate", Handler: h.CheckCopy},
				{Method: "POST", Pattern: "/void-certificate", Handler: h.Void},
				{Method: "GET", Pattern: "/document/pdf", Handler: h.Summary},
				{Method: "GET", Pattern: "/document/pdf/download", Handler: h.Download},
			},
		},
		{
			Prefix: "/exporter/{journey}",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "", Handler: h.GetExporter},
				{Method: "POST", Pattern: "", Handler: h.SetExporter},
			},
		},
		{
			Prefix: "/documents/{journey}",
			Routes: []routes.Route{
				{Method: "POST", Pattern: "", Handler: h.CreateDraft},
				{Method: "GET", Pattern: "", Handler: h.Dashboard},
				{Method: "GET", Pattern: "/completed", Handler: h.Completed},
				{Method: "GET", Pattern: "/month", Handler: h.ForMonth},
			},
		},
		{
			Prefix: "/draft/{journey}",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "", Handler: h.GetDraft},
				{Method: "DELETE", Pattern: "", Handler: h.DeleteDraft},
				{Method: "POST", Pattern: "/data", Handler: h.UpsertDraftData},
				{Method: "PUT", Pattern: "/reference", Handler: h.UpdateReference},
				{Method: "POST", Pattern: "/status", Handler: h.UpdateStatus},
				{Method: "POST", Pattern: "/complete", Handler: h.CompleteDraft},
			},
		},
	}
}

func identity(r *http.Request) (documents.Identity, string) {
	c, _ := auth.FromContext(r.Context())
	return documents.Identity{UserPrincipal: c.Subject, ContactID: c.ContactID}, c.Email
}

func (h *Handler) fail(w http.ResponseWriter, tag string, err error) {
	handlers.RespondError(w, h.logger.With("tag", tag), MapHTTPStatus(err), err)
}

// decode reads and validates a JSON body, writing the 400 response itself.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, tag string, dst any) bool {
	if err := handlers.DecodeJSON(r, dst); err != nil {
		handlers.RespondError(w, h.logger.With("tag", tag), http.StatusBadRequest, err)
		return false
	}
	if fields := handlers.Validate(dst); fields != nil {
		handlers.RespondValidation(w, fields)
		return false
	}
	return true
}

func (h *Handler) journey(w http.ResponseWriter, r *http.Request, tag string) (documents.Type, bool) {
	t, err := documents.ParseJourney(r.PathValue("journey"))
	if err != nil {
		h.fail(w, tag, err)
		return documents.TypeUnknown, false
	}
	return t, true
}

// ConfirmCopy clones a completed document and optionally voids the original.
func (h *Handler) ConfirmCopy(w http.ResponseWriter, r *http.Request) {
	const tag = "confirm-copy-certificate"
	id, _ := identity(r)

	var req CopyRequest
	if !h.decode(w, r, tag, &req) {
		return
	}

	result, err := h.sys.CopyDocument(r.Context(), id, r.Header.Get(NumberHeader), req)
	if err != nil {
		h.fail(w, tag, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, result)
}

// CheckCopy reports whether the caller may copy the document.
func (h *Handler) CheckCopy(w http.ResponseWriter, r *http.Request) {
	id, _ := identity(r)
	ok, err := h.sys.CanCopy(r.Context(), id, r.Header.Get(NumberHeader))
	if err != nil {
		h.fail(w, "check-copy-certificate", err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, map[string]bool{"canCopy": ok})
}

// Void marks a completed document void.
func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
	id, _ := identity(r)
	if err := h.sys.Void(r.Context(), id, r.Header.Get(NumberHeader)); err != nil {
		h.fail(w, "void-certificate", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Summary returns the document summary, or null when there is none to show.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	id, _ := identity(r)
	sm, err := h.sys.DocumentSummary(r.Context(), id, r.Header.Get(NumberHeader))
	if err != nil {
		h.fail(w, "document-pdf", err)
		return
	}
	if sm == nil {
		handlers.RespondJSON(w, http.StatusOK, nil)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, PDFSummary{
		DocumentNumber: sm.DocumentNumber,
		URI:            sm.DocumentURI,
		Status:         sm.DocumentStatus,
	})
}

// Download streams the rendered artifact of a completed document.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	const tag = "document-pdf-download"
	id, _ := identity(r)
	number := r.Header.Get(NumberHeader)

	art, err := h.sys.Artifact(r.Context(), id, number)
	if err != nil {
		h.fail(w, tag, err)
		return
	}
	defer art.Body.Close()

	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+normalize(number)+`.pdf"`)

	if art.ContentLength <= 0 || art.ContentLength > h.maxArtifact {
		h.logger.Debug("streaming artifact without page count", "size", formatting.FormatBytes(art.ContentLength, 1))
		if _, err := io.Copy(w, art.Body); err != nil {
			h.logger.With("tag", tag).Warn("artifact stream interrupted", "error", err)
		}
		return
	}

	data, err := io.ReadAll(art.Body)
	if err != nil {
		h.fail(w, tag, err)
		return
	}
	if n, ok := pageCount(h.logger, data, art.ContentType); ok {
		w.Header().Set("X-Page-Count", strconv.Itoa(n))
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func pageCount(logger *slog.Logger, data []byte, contentType string) (int, bool) {
	if contentType != "application/pdf" {
		return 0, false
	}
	n, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		logger.Warn("failed to read artifact page count", "error", err)
		return 0, false
	}
	return n, true
}

// GetExporter returns the exporter details of a draft.
func (h *Handler) GetExporter(w http.ResponseWriter, r *http.Request) {
	const tag = "get-exporter-details"
	t, ok := h.journey(w, r, tag)
	if !ok {
		return
	}
	id, _ := identity(r)

	details, err := h.sys.ExporterDetails(r.Context(), id, t, r.Header.Get(NumberHeader))
	if err != nil {
		h.fail(w, tag, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, details)
}

// SetExporter validates and saves the exporter details of a draft.
func (h *Handler) SetExporter(w http.ResponseWriter, r *http.Request) {
	const tag = "add-exporter-details"
	t, ok := h.journey(w, r, tag)
	if !ok {
		return
	}
	id, _ := identity(r)

	var details documents.ExporterDetails
	if err := handlers.DecodeJSON(r, &details); err != nil {
		handlers.RespondError(w, h.logger.With("tag", tag), http.StatusBadRequest, err)
		return
	}
	fields := handlers.Validate(details)
	if t == documents.TypeCatchCertificate && details.ExporterFullName == "" {
		if fields == nil {
			fields = map[string]string{}
		}
		fields["exporterFullName"] = "exporterFullName is required"
	}
	if fields != nil {
		handlers.RespondValidation(w, fields)
		return
	}

	saved, err := h.sys.SetExporterDetails(r.Context(), id, t, r.Header.Get(NumberHeader), details)
	if err != nil {
		h.fail(w, tag, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, saved)
}

// CreateDraft starts a new draft of the journey's type.
func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	const tag = "create-draft"
	t, ok := h.journey(w, r, tag)
	if !ok {
		return
	}
	id, email := identity(r)

	var req CreateDraftRequest
	if err := handlers.DecodeJSON(r, &req); err != nil && !errors.Is(err, handlers.ErrEmptyBody) {
		handlers.RespondError(w, h.logger.With("tag", tag), http.StatusBadRequest, err)
		return
	}
	if fields := handlers.Validate(req); fields != nil {
		handlers.RespondValidation(w, fields)
		return
	}

	d, err := h.sys.CreateDraft(r.Context(), id, email, t, req)
	if err != nil {
		h.fail(w, tag, err)
		return
	}
	handlers.RespondJSON(w, http.StatusCreated, map[string]string{"documentNumber": d.DocumentNumber})
}

// Dashboard returns the caller's in-progress and completed documents.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	const tag = "dashboard"
	t, ok := h.journey(w, r, tag)
	if !ok {
		return
	}
	id, _ := identity(r)

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	dash, err := h.sys.Dashboard(r.Context(), id, t, page)
	if err != nil {
		h.fail(w, tag, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, dash)
}

// Completed returns a page of completed documents and their total.
func (h *Handler) Completed(w http.ResponseWriter, r *http.Request) {
	const tag = "completed-documents"
	t, ok := h.journey(w, r, tag)
	if !ok {
		return
	}
	id, _ := identity(r)

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	result, err := h.sys.Completed(r.Context(), id, t, page)
	if err != nil {
		h.fail(w, tag, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, result)
}

// ForMonth returns completed documents created in ?month=MM-YYYY.
func (h *Handler) ForMonth(w http.ResponseWriter, r *http.Request) {
	const tag = "documents-by-month"
	t, ok := h.journey(w, r, tag)
	if !ok {
		return
	}
	id, _ := identity(r)

	docs, err := h.sys.ForMonth(r.Context(), id, t, r.URL.Query().Get("month"))
	if err != nil {
		h.fail(w, tag, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, docs)
}

// GetDraft returns a draft, served from the cache for cached types.
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	const tag = "get-draft"
	t, ok := h.journey(w, r, tag)
	if !ok {
		return
	}
	id, _ := identity(r)

	d, err := h.sys.GetDraft(r.Context(), id, t, r.Header.Get(NumberHeader))
	if err != nil {
		h.fail(w, tag, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, d)
}

// DeleteDraft removes a draft.
func (h *Handler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	const tag = "delete-draft"
	t, ok := h.journey(w, r, tag)
	if !ok {
		return
	}
	id, _ := identity(r)

	if err := h.sys.DeleteDraft(r.Context(), id, t, r.Header.Get(NumberHeader)); err != nil {
		h.fail(w, tag, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpsertDraftData stores form state on a draft.
func (h *Handler) UpsertDraftData(w http.ResponseWriter, r *http.Request) {
	const tag = "upsert-draft-data"
	t, ok := h.journey(w, r, tag)
	if !ok {
		return
	}
	id, _ := identity(r)

	var req DraftDataRequest
	if !h.decode(w, r, tag, &req) {
		return
	}
	d, err := h.sys.UpsertDraftData(r.Context(), id, t, r.Header.Get(NumberHeader), req)
	if err != nil {
		h.fail(w, tag, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, d.DraftData)
}

// UpdateReference sets the user reference on an in-progress document.
func (h *Handler) UpdateReference(w http.ResponseWriter, r *http.Request) {
	const tag = "update-user-reference"
	t, ok := h.journey(w, r, tag)
	if !ok {
		return
	}
	id, _ := identity(r)

	var req ReferenceRequest
	if !h.decode(w, r, tag, &req) {
		return
	}
	d, err := h.sys.UpdateUserReference(r.Context(), id, t, r.Header.Get(NumberHeader), req.UserReference)
	if err != nil {
		h.fail(w, tag, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, map[string]string{"userReference": d.UserReference})
}

// UpdateStatus moves a draft to another lifecycle status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	const tag = "update-status"
	t, ok := h.journey(w, r, tag)
	if !ok {
		return
	}
	id, _ := identity(r)

	var req StatusRequest
	if !h.decode(w, r, tag, &req) {
		return
	}
	status, err := documents.ParseStatus(req.Status)
	if err != nil {
		h.fail(w, tag, err)
		return
	}
	d, err := h.sys.UpdateStatus(r.Context(), id, t, r.Header.Get(NumberHeader), status)
	if err != nil {
		h.fail(w, tag, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, d.Summary())
}

// CompleteDraft marks a draft complete with its rendered artifact.
func (h *Handler) CompleteDraft(w http.ResponseWriter, r *http.Request) {
	const tag = "complete-draft"
	t, ok := h.journey(w, r, tag)
	if !ok {
		return
	}
	id, _ := identity(r)

	var req CompleteRequest
	if !h.decode(w, r, tag, &req) {
		return
	}
	d, err := h.sys.CompleteDraft(r.Context(), id, t, r.Header.Get(NumberHeader), req.DocumentURI)
	if err != nil {
		h.fail(w, tag, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, d.Summary())
}
