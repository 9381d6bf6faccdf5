// Package engine holds the in-progress values of one form instance, resolves
// options and render contracts per field, validates the whole form and emits
// a submit event when the form is valid.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/formschema"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/options"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/render"
)

var (
	// ErrUnknownField is returned by SetValue for a key the template lacks.
	ErrUnknownField = errors.New("unknown field")
	// ErrInvalid is wrapped by the error Submit returns when validation fails.
	ErrInvalid = errors.New("form has validation errors")
)

// ValidationError carries the per-field messages of a failed submit.
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
	return fmt.Sprintf("%v: %s", ErrInvalid, strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// SubmitEvent is emitted by Submit once the form validates.
type SubmitEvent struct {
	TemplateID      string
	TemplateVersion int
	Values          Values
}

// SubmitHandler receives submit events. Returning an error fails Submit.
type SubmitHandler func(ctx context.Context, evt SubmitEvent) error

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithStrictOptions controls whether a dropdown or radio value outside the
// currently resolved options fails validation. Enabled by default.
func WithStrictOptions(strict bool) Option {
	return func(e *Engine) { e.strict = strict }
}

// WithValues seeds the engine with previously saved values. Defaults still
// apply to fields the saved values do not mention.
func WithValues(v Values) Option {
	return func(e *Engine) { e.initial = v }
}

// Engine is one editing session over a form template. It is safe for
// concurrent use.
type Engine struct {
	tpl       *formschema.FormTemplate
	resolver  *options.Resolver
	validator *Validator
	logger    *zap.Logger
	strict    bool
	initial   Values

	mu       sync.RWMutex
	values   Values
	errors   map[string]string
	handlers []SubmitHandler
}

// New creates an engine for tpl. Schema problems are logged, never fatal:
// unknown types render as text and broken links yield no options.
func New(tpl *formschema.FormTemplate, providers options.Providers, opts ...Option) *Engine {
	e := &Engine{
		tpl:    tpl,
		logger: zap.NewNop(),
		strict: true,
		errors: make(map[string]string),
	}
	for _, o := range opts {
		o(e)
	}
	e.resolver = options.NewResolver(providers, e.logger)
	e.validator = NewValidator(e.resolver, e.strict)

	for _, issue := range formschema.Check(tpl) {
		e.logger.Warn("form schema issue",
			zap.String("template", tpl.ID),
			zap.String("path", issue.Path),
			zap.String("code", issue.Code),
			zap.String("message", issue.Message))
	}

	e.values = defaults(tpl.Fields())
	for k, v := range e.initial {
		if _, ok := tpl.Field(k); ok {
			e.values[k] = v
		}
	}
	e.initial = nil
	return e
}

// Template returns the template the engine edits.
func (e *Engine) Template() *formschema.FormTemplate { return e.tpl }

// GetValues returns a copy of the current values.
func (e *Engine) GetValues() Values {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.values.Clone()
}

// Value returns the current value of key.
func (e *Engine) Value(key string) any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.values[key]
}

// SetValue replaces the value at key. It has no cross-field side effects:
// fields linked to key get fresh options on their next resolution, but
// their stored values are left as they are.
func (e *Engine) SetValue(key string, value any) error {
	if _, ok := e.tpl.Field(key); !ok {
		return fmt.Errorf("set %q: %w", key, ErrUnknownField)
	}
	e.mu.Lock()
	e.values[key] = value
	e.mu.Unlock()
	return nil
}

// LinkedValue returns the string form of the value the field's options
// depend on, or "" when the field is not linked.
func (e *Engine) LinkedValue(field formschema.FieldSchema) string {
	if !field.Linked() {
		return ""
	}
	return render.StringValue(e.Value(field.LinkedFieldKey))
}

// Options resolves the current option list for key.
func (e *Engine) Options(ctx context.Context, key string) []string {
	f, ok := e.tpl.Field(key)
	if !ok {
		return []string{}
	}
	return e.resolver.Resolve(ctx, f, e.LinkedValue(f))
}

// ResolveAll resolves every field's options concurrently.
func (e *Engine) ResolveAll(ctx context.Context) map[string][]string {
	fields := e.tpl.Fields()
	results := make([][]string, len(fields))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range fields {
		linked := e.LinkedValue(f)
		g.Go(func() error {
			results[i] = e.resolver.Resolve(gctx, f, linked)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string][]string, len(fields))
	for i, f := range fields {
		out[f.Key] = results[i]
	}
	return out
}

// Resolver returns the resolver the engine reads options through.
func (e *Engine) Resolver() *options.Resolver { return e.resolver }

// Render returns the input contract for key.
func (e *Engine) Render(ctx context.Context, key string) (render.InputContract, bool) {
	if _, ok := e.tpl.Field(key); !ok {
		return render.InputContract{}, false
	}
	return e.RenderWithOptions(key, e.Options(ctx, key))
}

// RenderWithOptions renders key against opts instead of resolving them.
func (e *Engine) RenderWithOptions(key string, opts []string) (render.InputContract, bool) {
	f, ok := e.tpl.Field(key)
	if !ok {
		return render.InputContract{}, false
	}
	e.mu.RLock()
	value, errMsg := e.values[key], e.errors[key]
	e.mu.RUnlock()
	return render.Render(f, value, opts, errMsg), true
}

// SectionView is a rendered section.
type SectionView struct {
	ID     string                 `json:"id"`
	Name   string                 `json:"name"`
	Stage  int                    `json:"stage"`
	Fields []render.InputContract `json:"fields"`
}

// Stage returns the fields shown on stage, in template order.
func (e *Engine) Stage(stage int) []formschema.FieldSchema {
	var out []formschema.FieldSchema
	for _, s := range e.tpl.StageSections(stage) {
		out = append(out, s.Fields...)
	}
	return out
}

// RenderStage renders the sections shown on stage. Staging is presentation
// only; Validate always covers every stage.
func (e *Engine) RenderStage(ctx context.Context, stage int) []SectionView {
	return e.renderSections(ctx, e.tpl.StageSections(stage))
}

// RenderAll renders every section in order.
func (e *Engine) RenderAll(ctx context.Context) []SectionView {
	return e.renderSections(ctx, e.tpl.Sections)
}

func (e *Engine) renderSections(ctx context.Context, sections []formschema.SectionSchema) []SectionView {
	opts := e.ResolveAll(ctx)
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]SectionView, 0, len(sections))
	for _, s := range sections {
		view := SectionView{ID: s.ID, Name: s.Name, Stage: s.Stage}
		for _, f := range s.Fields {
			view.Fields = append(view.Fields, render.Render(f, e.values[f.Key], opts[f.Key], e.errors[f.Key]))
		}
		out = append(out, view)
	}
	return out
}

// Validate checks every field and records the result for GetErrors.
func (e *Engine) Validate(ctx context.Context) map[string]string {
	values := e.GetValues()
	errs := e.validator.Validate(ctx, e.tpl, values)
	e.mu.Lock()
	e.errors = errs
	e.mu.Unlock()
	return copyErrors(errs)
}

// GetErrors returns the messages recorded by the last Validate or Submit.
func (e *Engine) GetErrors() map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return copyErrors(e.errors)
}

// OnSubmit registers a handler for the submit event.
func (e *Engine) OnSubmit(h SubmitHandler) {
	e.mu.Lock()
	e.handlers = append(e.handlers, h)
	e.mu.Unlock()
}

// Submit validates the form and, if it is valid, emits the submit event to
// every handler in registration order. An invalid form returns a
// *ValidationError and no handler is called.
func (e *Engine) Submit(ctx context.Context) (Values, error) {
	errs := e.Validate(ctx)
	if len(errs) > 0 {
		e.logger.Debug("submit blocked by validation",
			zap.String("template", e.tpl.ID), zap.Int("errors", len(errs)))
		return nil, &ValidationError{Fields: errs}
	}

	values := e.GetValues()
	e.mu.RLock()
	handlers := append([]SubmitHandler(nil), e.handlers...)
	e.mu.RUnlock()

	evt := SubmitEvent{TemplateID: e.tpl.ID, TemplateVersion: e.tpl.Version, Values: values}
	for _, h := range handlers {
		if err := h(ctx, evt); err != nil {
			return nil, err
		}
	}
	return values, nil
}

func copyErrors(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
