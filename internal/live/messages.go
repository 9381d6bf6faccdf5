// Package live drives a form engine over a WebSocket: the client sends field
// edits and the server answers with rendered input contracts, validation
// results and the outcome of submit.
package live

import (
	"encoding/json"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/engine"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/render"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // "open", "set_value", "validate", "render", "save", "submit", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// OpenData is the payload for "open". ListingID resumes a saved listing;
// otherwise TemplateID starts a new form from the template's defaults.
type OpenData struct {
	TemplateID string `json:"templateId,omitempty"`
	ListingID  string `json:"listingId,omitempty"`
}

// SetValueData is the payload for "set_value".
type SetValueData struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// RenderData is the payload for "render". A zero stage renders every
// section.
type RenderData struct {
	Stage int `json:"stage,omitempty"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "session", "form", "field", "options", "errors", "saved", "submitted", "error", "pong"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// SessionData carries session information.
type SessionData struct {
	SessionID string `json:"session_id"`
	Actor     string `json:"actor"`
}

// FormData is a rendered form.
type FormData struct {
	TemplateID string               `json:"templateId"`
	ListingID  string               `json:"listingId,omitempty"`
	State      string               `json:"state,omitempty"`
	Stages     []int                `json:"stages"`
	Sections   []engine.SectionView `json:"sections"`
}

// FieldData is the re-rendered field after a set_value.
type FieldData struct {
	Field render.InputContract `json:"field"`
}

// OptionsData is pushed when the options of a linked field have been
// re-resolved for LinkedValue. Clients discard pushes whose LinkedValue is
// no longer the parent's value.
type OptionsData struct {
	Key         string               `json:"key"`
	LinkedValue string               `json:"linkedValue"`
	Field       render.InputContract `json:"field"`
}

// ErrorsData carries validation messages keyed by field.
type ErrorsData struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

// ListingData reports where the form is stored.
type ListingData struct {
	ListingID string `json:"listingId"`
	State     string `json:"state"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
