package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/options"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/types"
)

// RefDataHandler serves the reference lists the form engine draws options
// from.
type RefDataHandler struct {
	providers options.Providers
}

// NewRefDataHandler creates a new RefDataHandler.
func NewRefDataHandler(p options.Providers) *RefDataHandler {
	return &RefDataHandler{providers: p}
}

// ListCategories handles GET /v1/categories.
func (h *RefDataHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.providers.Categories(r.Context())
	if err != nil {
		zap.L().Error("listing categories", zap.Error(err))
		writeError(w, http.StatusBadGateway, "LOOKUP_FAILED", "categories unavailable")
		return
	}
	if cats == nil {
		cats = []types.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

// ListSubcategories handles GET /v1/categories/{name}/children.
func (h *RefDataHandler) ListSubcategories(w http.ResponseWriter, r *http.Request) {
	h.linked(w, r, chi.URLParam(r, "name"))
}

// ListStates handles GET /v1/states.
func (h *RefDataHandler) ListStates(w http.ResponseWriter, r *http.Request) {
	states, err := h.providers.States(r.Context())
	if err != nil {
		zap.L().Error("listing states", zap.Error(err))
		writeError(w, http.StatusBadGateway, "LOOKUP_FAILED", "states unavailable")
		return
	}
	if states == nil {
		states = []types.State{}
	}
	writeJSON(w, http.StatusOK, states)
}

// ListCities handles GET /v1/states/{state}/cities. An unknown state has no
// cities.
func (h *RefDataHandler) ListCities(w http.ResponseWriter, r *http.Request) {
	h.linked(w, r, chi.URLParam(r, "state"))
}

func (h *RefDataHandler) linked(w http.ResponseWriter, r *http.Request, parent string) {
	opts, err := h.providers.LinkedOptions(r.Context(), parent)
	if err != nil {
		zap.L().Error("linked lookup", zap.String("parent", parent), zap.Error(err))
		writeError(w, http.StatusBadGateway, "LOOKUP_FAILED", "options unavailable")
		return
	}
	if opts == nil {
		opts = []types.LinkedOption{}
	}
	writeJSON(w, http.StatusOK, opts)
}
