package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/engine"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/eventbus"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/listing"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/store"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/workflow"
)

// Queue lists the listings waiting for a moderator.
type Queue interface {
	Pending() []eventbus.QueueItem
}

// ListingHandler implements HTTP handlers for listings and their workflow.
type ListingHandler struct {
	svc   *listing.Service
	queue Queue
}

// NewListingHandler creates a new ListingHandler. queue may be nil.
func NewListingHandler(svc *listing.Service, queue Queue) *ListingHandler {
	return &ListingHandler{svc: svc, queue: queue}
}

// listingView is a listing with its display flags and the states each role
// may request next.
type listingView struct {
	*store.Listing
	Flags workflow.Flags                      `json:"flags"`
	Next  map[workflow.Actor][]workflow.State `json:"next"`
}

func viewOf(l *store.Listing) listingView {
	return listingView{
		Listing: l,
		Flags:   listing.Flags(l),
		Next: map[workflow.Actor][]workflow.State{
			workflow.Owner:     workflow.Next(l.State, workflow.Owner),
			workflow.Moderator: workflow.Next(l.State, workflow.Moderator),
		},
	}
}

// CreateListing handles POST /v1/listings.
func (h *ListingHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	audit, ok := parseAuditContext(w, r)
	if !ok {
		return
	}
	var req struct {
		TemplateID string         `json:"templateId"`
		Values     map[string]any `json:"values"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	if req.TemplateID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TEMPLATE", "templateId is required")
		return
	}
	l, err := h.svc.CreateListing(r.Context(), audit.Actor, req.TemplateID, req.Values)
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(l))
}

// GetListing handles GET /v1/listings/{id}.
func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	l, err := h.svc.GetListing(r.Context(), id)
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(l))
}

// GetListingForm handles GET /v1/listings/{id}/form. It renders the
// listing's saved values; ?stage=N narrows to one stage and ?validate=true
// attaches the current validation messages.
func (h *ListingHandler) GetListingForm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	eng, _, err := h.svc.NewEngine(r.Context(), "", id)
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	if r.URL.Query().Get("validate") == "true" {
		eng.Validate(r.Context())
	}
	var sections []engine.SectionView
	if v := r.URL.Query().Get("stage"); v != "" {
		stage, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_STAGE", "stage must be a number")
			return
		}
		sections = eng.RenderStage(r.Context(), stage)
	} else {
		sections = eng.RenderAll(r.Context())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"templateId": eng.Template().ID,
		"stages":     eng.Template().Stages(),
		"sections":   sections,
		"errors":     eng.GetErrors(),
	})
}

// SaveValues handles PUT /v1/listings/{id}/values.
func (h *ListingHandler) SaveValues(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	audit, ok := parseAuditContext(w, r)
	if !ok {
		return
	}
	var req struct {
		Values map[string]any `json:"values"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	if req.Values == nil {
		req.Values = map[string]any{}
	}
	l, err := h.svc.SaveDraftValues(r.Context(), audit.Actor, id, req.Values)
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(l))
}

// SubmitListing handles POST /v1/listings/{id}/submit. An empty body submits
// the saved values.
func (h *ListingHandler) SubmitListing(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	audit, ok := parseAuditContext(w, r)
	if !ok {
		return
	}
	var req struct {
		Values map[string]any `json:"values"`
	}
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	l, err := h.svc.SubmitListing(r.Context(), audit.Actor, id, req.Values)
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(l))
}

// TransitionListing handles POST /v1/listings/{id}/transition.
func (h *ListingHandler) TransitionListing(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	audit, ok := parseAuditContext(w, r)
	if !ok {
		return
	}
	var req struct {
		Target string `json:"target"`
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	target, err := workflow.ParseState(req.Target)
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	l, err := h.svc.TransitionWorkflow(r.Context(), audit.Actor, audit.Role, id, target, req.Reason)
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(l))
}

// GetHistory handles GET /v1/listings/{id}/history.
func (h *ListingHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	history, err := h.svc.History(r.Context(), id)
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	if history == nil {
		history = []store.Transition{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transitions": history})
}

// ModerationQueue handles GET /v1/moderation/queue.
func (h *ListingHandler) ModerationQueue(w http.ResponseWriter, r *http.Request) {
	items := []eventbus.QueueItem{}
	if h.queue != nil {
		items = h.queue.Pending()
	}
	total := len(items)
	if limit := parseLimit(r, total, 500); limit < total {
		items = items[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total_count": total})
}
