// Package handler implements the HTTP handlers of the listing API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/formschema"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/listing"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/store"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/workflow"
)

// AuditInfo holds audit metadata extracted from request headers.
type AuditInfo struct {
	Actor string
	Role  workflow.Actor
}

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("writeJSON encode error", zap.Error(err))
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// parseUUID extracts and validates a UUID path parameter.
func parseUUID(w http.ResponseWriter, r *http.Request, paramName string) (string, bool) {
	raw := chi.URLParam(r, paramName)
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "invalid UUID: "+raw)
		return "", false
	}
	return id.String(), true
}

// parseLimit reads the limit query parameter, clamped to max.
func parseLimit(r *http.Request, def, max int) int {
	n := def
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			n = parsed
		}
	}
	if n > max {
		n = max
	}
	return n
}

// validationBody is the 422 response of a blocked operation.
type validationBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
	Issues formschema.Issues `json:"issues,omitempty"`
}

// serviceErrorToHTTP maps listing service errors to HTTP responses.
func serviceErrorToHTTP(w http.ResponseWriter, err error) {
	var verr *listing.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, validationBody{
			Error: err.Error(), Code: "VALIDATION_ERROR", Fields: verr.Fields,
		})
		return
	}
	var serr *listing.SchemaError
	if errors.As(err, &serr) {
		writeJSON(w, http.StatusUnprocessableEntity, validationBody{
			Error: err.Error(), Code: "SCHEMA_ERROR", Issues: serr.Issues,
		})
		return
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, listing.ErrStale):
		writeError(w, http.StatusConflict, "STALE", err.Error())
	case errors.Is(err, workflow.ErrIllegalTransition), errors.Is(err, workflow.ErrReadOnly):
		writeError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, workflow.ErrUnknownState):
		writeError(w, http.StatusBadRequest, "UNKNOWN_STATE", err.Error())
	case errors.Is(err, workflow.ErrReasonRequired):
		writeError(w, http.StatusUnprocessableEntity, "REASON_REQUIRED", err.Error())
	case errors.Is(err, workflow.ErrForbidden), errors.Is(err, listing.ErrNotOwner):
		writeError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, listing.ErrActorRequired):
		writeError(w, http.StatusBadRequest, "MISSING_ACTOR", err.Error())
	case errors.Is(err, listing.ErrTemplateNotOffered),
		errors.Is(err, formschema.ErrNotDraft),
		errors.Is(err, formschema.ErrNotPublished),
		errors.Is(err, formschema.ErrInvalidStatus):
		writeError(w, http.StatusConflict, "TEMPLATE_STATUS", err.Error())
	default:
		zap.L().Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// parseAuditContext extracts the actor and role from request headers. The
// role defaults to owner.
func parseAuditContext(w http.ResponseWriter, r *http.Request) (AuditInfo, bool) {
	actor := r.Header.Get("X-Actor")
	if actor == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ACTOR", "X-Actor header is required")
		return AuditInfo{}, false
	}
	role := workflow.Owner
	if v := r.Header.Get("X-Role"); v != "" {
		role = workflow.Actor(v)
		if !role.Valid() {
			writeError(w, http.StatusBadRequest, "INVALID_ROLE", "X-Role must be owner or moderator")
			return AuditInfo{}, false
		}
	}
	return AuditInfo{Actor: actor, Role: role}, true
}
