package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/engine"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/formschema"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/listing"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/store"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/workflow"
)

// Handler manages WebSocket connections for live form sessions.
type Handler struct {
	sessions *Manager
	svc      *listing.Service
	logger   *zap.Logger
}

// NewHandler creates a WebSocket handler.
func NewHandler(sessions *Manager, svc *listing.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sessions: sessions, svc: svc, logger: logger.Named("live")}
}

// ServeHTTP upgrades to WebSocket and runs the message loop. The actor comes
// from the X-Actor header or the actor query parameter.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor := r.Header.Get("X-Actor")
	if actor == "" {
		actor = r.URL.Query().Get("actor")
	}
	if actor == "" {
		http.Error(w, "actor is required", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Warn("websocket accept", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	sess := h.sessions.Create(actor)
	defer h.sessions.Remove(sess.ID)
	ctx := r.Context()

	h.send(ctx, conn, ServerMessage{
		Type: "session",
		Data: SessionData{SessionID: sess.ID, Actor: actor},
	})

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				h.logger.Debug("connection closed", zap.String("session", sess.ID), zap.Int("status", int(status)))
			}
			return
		}
		sess.Touch()

		if msg.Type == "ping" {
			h.send(ctx, conn, ServerMessage{Type: "pong", RequestID: msg.ID})
			continue
		}
		if msg.Type == "open" {
			h.handleOpen(ctx, conn, sess, msg)
			continue
		}
		if sess.Engine == nil {
			h.sendError(ctx, conn, msg.ID, "no_form", "send open first")
			continue
		}
		switch msg.Type {
		case "set_value":
			h.handleSetValue(ctx, conn, sess, msg)
		case "validate":
			errs := sess.Engine.Validate(ctx)
			h.send(ctx, conn, ServerMessage{Type: "errors", RequestID: msg.ID, Data: ErrorsData{Valid: len(errs) == 0, Errors: errs}})
		case "render":
			h.handleRender(ctx, conn, sess, msg)
		case "save":
			h.handleSave(ctx, conn, sess, msg)
		case "submit":
			h.handleSubmit(ctx, conn, sess, msg)
		default:
			h.sendError(ctx, conn, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

func (h *Handler) handleOpen(ctx context.Context, conn *websocket.Conn, sess *Session, msg ClientMessage) {
	var data OpenData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid open data")
		return
	}
	if data.TemplateID == "" && data.ListingID == "" {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "templateId or listingId is required")
		return
	}
	eng, l, err := h.svc.NewEngine(ctx, data.TemplateID, data.ListingID, engine.WithLogger(h.logger))
	if err != nil {
		h.sendServiceError(ctx, conn, msg.ID, err)
		return
	}
	if l != nil && l.OwnerID != sess.Actor {
		h.sendServiceError(ctx, conn, msg.ID, listing.ErrNotOwner)
		return
	}
	if l == nil && !eng.Template().Offered() {
		h.sendServiceError(ctx, conn, msg.ID, listing.ErrTemplateNotOffered)
		return
	}

	var listingID, state string
	if l != nil {
		listingID, state = l.ID, string(l.State)
	}
	sess.Open(eng, listingID, state)
	eng.OnSubmit(h.submitHandler(sess))
	h.sendForm(ctx, conn, sess, msg.ID, eng.RenderAll(ctx))
}

// submitHandler persists a submitted form: as a new listing when the session
// has none, otherwise by resubmitting the bound listing with the form's
// values. The server re-validates in both cases.
func (h *Handler) submitHandler(sess *Session) engine.SubmitHandler {
	return func(ctx context.Context, evt engine.SubmitEvent) error {
		id, _ := sess.Listing()
		if id == "" {
			l, err := h.svc.CreateListing(ctx, sess.Actor, evt.TemplateID, evt.Values)
			if err != nil {
				return err
			}
			id = l.ID
			sess.Bind(l.ID, string(l.State))
		}
		l, err := h.svc.SubmitListing(ctx, sess.Actor, id, evt.Values)
		if err != nil {
			return err
		}
		sess.Bind(l.ID, string(l.State))
		return nil
	}
}

func (h *Handler) handleSetValue(ctx context.Context, conn *websocket.Conn, sess *Session, msg ClientMessage) {
	var data SetValueData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid set_value data")
		return
	}
	eng := sess.Engine
	values, unknown := engine.Normalize(eng.Template(), map[string]any{data.Key: data.Value})
	if len(unknown) > 0 {
		h.sendError(ctx, conn, msg.ID, "unknown_field", "unknown field: "+data.Key)
		return
	}
	if err := eng.SetValue(data.Key, values[data.Key]); err != nil {
		h.sendError(ctx, conn, msg.ID, "unknown_field", err.Error())
		return
	}

	field, _ := eng.Render(ctx, data.Key)
	h.send(ctx, conn, ServerMessage{Type: "field", RequestID: msg.ID, Data: FieldData{Field: field}})
	for _, dep := range eng.Template().Dependents(data.Key) {
		if f, ok := eng.Template().Field(dep); ok {
			h.refreshOptions(ctx, conn, sess, msg.ID, f)
		}
	}
}

// refreshOptions re-resolves a linked field in the background and pushes the
// result as an options message. A result superseded by a later set_value on
// the parent is dropped, so the last value set wins whatever order the
// fetches finish in.
func (h *Handler) refreshOptions(ctx context.Context, conn *websocket.Conn, sess *Session, requestID string, f formschema.FieldSchema) {
	eng, tr := sess.Engine, sess.Tracker()
	applied := eng.Resolver().ResolveAsync(ctx, f, eng.LinkedValue(f), tr)
	go func() {
		if !<-applied || sess.Tracker() != tr {
			return
		}
		linked, opts, ok := tr.Applied(f.Key)
		if !ok {
			return
		}
		c, _ := eng.RenderWithOptions(f.Key, opts)
		h.send(ctx, conn, ServerMessage{
			Type:      "options",
			RequestID: requestID,
			Data:      OptionsData{Key: f.Key, LinkedValue: linked, Field: c},
		})
	}()
}

func (h *Handler) handleRender(ctx context.Context, conn *websocket.Conn, sess *Session, msg ClientMessage) {
	var data RenderData
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid render data")
			return
		}
	}
	var sections []engine.SectionView
	if data.Stage > 0 {
		sections = sess.Engine.RenderStage(ctx, data.Stage)
	} else {
		sections = sess.Engine.RenderAll(ctx)
	}
	h.sendForm(ctx, conn, sess, msg.ID, sections)
}

func (h *Handler) handleSave(ctx context.Context, conn *websocket.Conn, sess *Session, msg ClientMessage) {
	values := sess.Engine.GetValues()
	id, _ := sess.Listing()
	var (
		l   *store.Listing
		err error
	)
	if id == "" {
		l, err = h.svc.CreateListing(ctx, sess.Actor, sess.Engine.Template().ID, values)
	} else {
		l, err = h.svc.SaveDraftValues(ctx, sess.Actor, id, values)
	}
	if err != nil {
		h.sendServiceError(ctx, conn, msg.ID, err)
		return
	}
	sess.Bind(l.ID, string(l.State))
	h.send(ctx, conn, ServerMessage{Type: "saved", RequestID: msg.ID, Data: ListingData{ListingID: l.ID, State: string(l.State)}})
}

func (h *Handler) handleSubmit(ctx context.Context, conn *websocket.Conn, sess *Session, msg ClientMessage) {
	if _, err := sess.Engine.Submit(ctx); err != nil {
		h.sendServiceError(ctx, conn, msg.ID, err)
		return
	}
	id, state := sess.Listing()
	h.send(ctx, conn, ServerMessage{Type: "submitted", RequestID: msg.ID, Data: ListingData{ListingID: id, State: state}})
}

func (h *Handler) sendForm(ctx context.Context, conn *websocket.Conn, sess *Session, requestID string, sections []engine.SectionView) {
	id, state := sess.Listing()
	h.send(ctx, conn, ServerMessage{
		Type:      "form",
		RequestID: requestID,
		Data: FormData{
			TemplateID: sess.Engine.Template().ID,
			ListingID:  id,
			State:      state,
			Stages:     sess.Engine.Template().Stages(),
			Sections:   sections,
		},
	})
}

// sendServiceError reports validation failures as an errors message and
// everything else as an error message.
func (h *Handler) sendServiceError(ctx context.Context, conn *websocket.Conn, requestID string, err error) {
	var eerr *engine.ValidationError
	if errors.As(err, &eerr) {
		h.send(ctx, conn, ServerMessage{Type: "errors", RequestID: requestID, Data: ErrorsData{Errors: eerr.Fields}})
		return
	}
	var verr *listing.ValidationError
	if errors.As(err, &verr) {
		h.send(ctx, conn, ServerMessage{Type: "errors", RequestID: requestID, Data: ErrorsData{Errors: verr.Fields}})
		return
	}

	code := "internal"
	switch {
	case errors.Is(err, store.ErrNotFound):
		code = "not_found"
	case errors.Is(err, listing.ErrNotOwner), errors.Is(err, workflow.ErrForbidden):
		code = "forbidden"
	case errors.Is(err, workflow.ErrIllegalTransition), errors.Is(err, workflow.ErrReadOnly):
		code = "invalid_transition"
	case errors.Is(err, listing.ErrTemplateNotOffered):
		code = "template_not_offered"
	case errors.Is(err, listing.ErrStale):
		code = "stale"
	default:
		h.logger.Error("live session", zap.Error(err))
	}
	h.sendError(ctx, conn, requestID, code, err.Error())
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		h.logger.Debug("write error", zap.Error(err))
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	h.send(ctx, conn, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data:      ErrorData{Code: code, Message: message},
	})
}
