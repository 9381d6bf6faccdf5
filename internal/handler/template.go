package handler

import (
	"context"
	"net/http"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/formschema"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/listing"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/store"
)

// TemplateHandler implements HTTP handlers for form template authoring.
type TemplateHandler struct {
	svc *listing.Service
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(svc *listing.Service) *TemplateHandler {
	return &TemplateHandler{svc: svc}
}

// CreateTemplate handles POST /v1/templates.
func (h *TemplateHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	audit, ok := parseAuditContext(w, r)
	if !ok {
		return
	}
	var in listing.TemplateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	if in.Name == "" {
		writeError(w, http.StatusBadRequest, "MISSING_NAME", "name is required")
		return
	}
	if !in.SellerType.Known() {
		writeError(w, http.StatusBadRequest, "INVALID_SELLER_TYPE", "sellerType must be individual, broker or builder")
		return
	}
	t, err := h.svc.CreateTemplate(r.Context(), audit.Actor, in)
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// ListTemplates handles GET /v1/templates.
func (h *TemplateHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.TemplateFilter{
		Status:     formschema.Status(q.Get("status")),
		SellerType: formschema.SellerType(q.Get("seller_type")),
		CategoryID: q.Get("category_id"),
	}
	list, err := h.svc.ListTemplates(r.Context(), f)
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	if list == nil {
		list = []*formschema.FormTemplate{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetTemplate handles GET /v1/templates/{id}.
func (h *TemplateHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	t, err := h.svc.GetFormTemplate(r.Context(), id)
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// UpdateTemplate handles PUT /v1/templates/{id}.
func (h *TemplateHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	audit, ok := parseAuditContext(w, r)
	if !ok {
		return
	}
	var in listing.TemplateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	t, err := h.svc.UpdateTemplate(r.Context(), audit.Actor, id, in)
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CheckTemplate handles GET /v1/templates/{id}/issues.
func (h *TemplateHandler) CheckTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	issues, err := h.svc.CheckTemplate(r.Context(), id)
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	if issues == nil {
		issues = formschema.Issues{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"issues": issues})
}

// PublishTemplate handles POST /v1/templates/{id}/publish.
func (h *TemplateHandler) PublishTemplate(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.svc.PublishTemplate)
}

// ArchiveTemplate handles POST /v1/templates/{id}/archive.
func (h *TemplateHandler) ArchiveTemplate(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.svc.ArchiveTemplate)
}

// ReviseTemplate handles POST /v1/templates/{id}/revise.
func (h *TemplateHandler) ReviseTemplate(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.svc.ReviseTemplate)
}

// CloneTemplate handles POST /v1/templates/{id}/clone. The body may name
// the copy.
func (h *TemplateHandler) CloneTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	audit, ok := parseAuditContext(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
			return
		}
	}
	t, err := h.svc.CloneTemplate(r.Context(), audit.Actor, id, req.Name)
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

type lifecycleFunc func(ctx context.Context, actor, id string) (*formschema.FormTemplate, error)

func (h *TemplateHandler) lifecycle(w http.ResponseWriter, r *http.Request, fn lifecycleFunc) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	audit, ok := parseAuditContext(w, r)
	if !ok {
		return
	}
	t, err := fn(r.Context(), audit.Actor, id)
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
