// Package listing is the authoritative server side of the form engine:
// template authoring, draft saves, submit with re-validation and workflow
// transitions, each persisted atomically and recorded as a domain event.
package listing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/engine"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/event"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/formschema"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/options"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/store"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/workflow"
)

var (
	// ErrValidation is wrapped by *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotOwner is returned when an owner action comes from someone else.
	ErrNotOwner = errors.New("listing belongs to another owner")
	// ErrTemplateNotOffered is returned when creating a listing from a
	// template that is not published.
	ErrTemplateNotOffered = errors.New("template is not open for new listings")
	// ErrSchema is returned when publishing a template with schema errors.
	ErrSchema = errors.New("template has schema errors")
	// ErrActorRequired is returned when an operation names no actor.
	ErrActorRequired = errors.New("actor is required")
	// ErrStale is returned when a listing changed between reading its saved
	// values and submitting them.
	ErrStale = errors.New("listing was modified concurrently")
)

const msgUnknownField = "unknown field"

// ValidationError carries the per-field messages that blocked an operation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return fmt.Sprintf("%v: %s", ErrValidation, strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// SchemaError carries the issues that blocked a publish.
type SchemaError struct {
	Issues formschema.Issues
}

func (e *SchemaError) Error() string { return e.Issues.Err().Error() }

func (e *SchemaError) Unwrap() error { return ErrSchema }

// Config configures a Service.
type Config struct {
	Store     store.Store
	Providers options.Providers
	Recorder  event.Recorder
	Logger    *zap.Logger
	// LenientOptions disables the check that dropdown and radio values are
	// among the currently resolved options.
	LenientOptions bool
}

// Service implements the listing and template operations.
type Service struct {
	store     store.Store
	providers options.Providers
	recorder  event.Recorder
	validator *engine.Validator
	logger    *zap.Logger
	strict    bool
	now       func() time.Time
}

// NewService creates a Service.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rec := cfg.Recorder
	if rec == nil {
		rec = event.Nop{}
	}
	s := &Service{
		store:     cfg.Store,
		providers: cfg.Providers,
		recorder:  rec,
		logger:    logger.Named("listing"),
		strict:    !cfg.LenientOptions,
		now:       time.Now,
	}
	s.validator = engine.NewValidator(options.NewResolver(cfg.Providers, s.logger), s.strict)
	return s
}

// Providers returns the option providers the service validates against.
func (s *Service) Providers() options.Providers { return s.providers }

// record writes evt after a successful state change. The change is already
// committed, so a recording failure is logged rather than returned.
func (s *Service) record(ctx context.Context, evt event.DomainEvent) {
	if err := s.recorder.Record(ctx, evt); err != nil {
		s.logger.Error("recording event failed",
			zap.String("type", evt.EventType), zap.String("id", evt.ID), zap.Error(err))
	}
}

// NewEngine builds a form engine for the template of a listing, seeded with
// the listing's saved values. With listingID empty the engine starts from
// the template's defaults.
func (s *Service) NewEngine(ctx context.Context, templateID, listingID string, opts ...engine.Option) (*engine.Engine, *store.Listing, error) {
	var l *store.Listing
	if listingID != "" {
		var err error
		l, err = s.store.GetListing(ctx, listingID)
		if err != nil {
			return nil, nil, err
		}
		templateID = l.TemplateID
	}
	tpl, err := s.GetFormTemplate(ctx, templateID)
	if err != nil {
		return nil, nil, err
	}
	all := append([]engine.Option{engine.WithLogger(s.logger), engine.WithStrictOptions(s.strict)}, opts...)
	if l != nil {
		all = append(all, engine.WithValues(stored(tpl, l.Values)))
	}
	return engine.New(tpl, s.providers, all...), l, nil
}

// normalize converts raw values to the template's canonical shapes. Unknown
// keys fail with a ValidationError.
func normalize(tpl *formschema.FormTemplate, raw map[string]any) (engine.Values, error) {
	values, unknown := engine.Normalize(tpl, raw)
	if len(unknown) > 0 {
		fields := make(map[string]string, len(unknown))
		for _, k := range unknown {
			fields[k] = msgUnknownField
		}
		return nil, &ValidationError{Fields: fields}
	}
	return values, nil
}

// stored brings values read back from the store into canonical shape. A
// decoded file set arrives as a slice of maps, for instance. Keys the
// template no longer names are dropped.
func stored(tpl *formschema.FormTemplate, values engine.Values) engine.Values {
	out, _ := engine.Normalize(tpl, values)
	return out
}

func newListingID() string { return uuid.New().String() }

func transitionPayload(l *store.Listing, tr *store.Transition) event.ListingTransitionedPayload {
	return event.ListingTransitionedPayload{
		ListingID: l.ID,
		OwnerID:   l.OwnerID,
		From:      string(tr.From),
		To:        string(tr.To),
		Actor:     tr.Actor,
		Role:      string(tr.Role),
		Reason:    tr.Reason,
		OnEdit:    tr.OnEdit,
	}
}

// Flags describes a listing's workflow state for display collaborators. The
// last approved values stay on show from the first edit after approval until
// the next approval, including while the edit is under review.
func Flags(l *store.Listing) workflow.Flags {
	fl := l.State.Describe()
	fl.ShowLastApproved = l.LastApprovedValues != nil
	return fl
}
