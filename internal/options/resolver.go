// Package options resolves the concrete, ordered option labels of a field
// from its source descriptor and the current value of its linked field.
package options

import (
	"context"

	"go.uber.org/zap"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/formschema"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/types"
)

// Providers is the reference data the resolver reads. It is injected so the
// engine carries no process-wide cache and can be tested with fakes.
type Providers interface {
	Categories(ctx context.Context) ([]types.Category, error)
	States(ctx context.Context) ([]types.State, error)
	LinkedOptions(ctx context.Context, parentValue string) ([]types.LinkedOption, error)
}

// Resolver produces option lists for fields.
type Resolver struct {
	providers Providers
	logger    *zap.Logger
}

// NewResolver creates a Resolver. A nil logger discards logs; nil providers
// make every dynamic source resolve to no options.
func NewResolver(p Providers, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{providers: p, logger: logger}
}

// Resolve is the package-level form of Resolver.Resolve without logging.
func Resolve(ctx context.Context, field formschema.FieldSchema, linkedValue string, p Providers) []string {
	return NewResolver(p, nil).Resolve(ctx, field, linkedValue)
}

// Resolve returns the option labels for field. linkedValue is the current
// value of the field named by LinkedFieldKey and is ignored for other
// sources. Resolve never fails: an unknown source, a missing provider or a
// provider error all yield an empty list.
//
// A previously selected value of the field is not consulted here; whether a
// stale selection should be cleared when its parent changes is left to
// validation.
func (r *Resolver) Resolve(ctx context.Context, field formschema.FieldSchema, linkedValue string) []string {
	switch field.SourceType {
	case formschema.SourceNone:
		return field.StaticOptions
	case formschema.SourceCategoryMaster, formschema.SourceStateMaster, formschema.SourceLinkedToParent:
	default:
		r.logger.Warn("unknown option source",
			zap.String("field", field.Key), zap.String("source", string(field.SourceType)))
		return []string{}
	}
	if r.providers == nil {
		return []string{}
	}

	switch field.SourceType {
	case formschema.SourceCategoryMaster:
		cats, err := r.providers.Categories(ctx)
		if err != nil {
			r.fetchFailed(field, err)
			return []string{}
		}
		out := make([]string, len(cats))
		for i, c := range cats {
			out[i] = c.Name
		}
		return out

	case formschema.SourceStateMaster:
		states, err := r.providers.States(ctx)
		if err != nil {
			r.fetchFailed(field, err)
			return []string{}
		}
		out := make([]string, len(states))
		for i, s := range states {
			out[i] = s.Name
		}
		return out

	default: // linked_to_parent
		if field.LinkedFieldKey == "" {
			r.logger.Warn("linked field has no linkedFieldKey", zap.String("field", field.Key))
			return []string{}
		}
		if linkedValue == "" {
			return []string{}
		}
		linked, err := r.providers.LinkedOptions(ctx, linkedValue)
		if err != nil {
			r.fetchFailed(field, err)
			return []string{}
		}
		out := make([]string, len(linked))
		for i, o := range linked {
			out[i] = o.Name
		}
		return out
	}
}

func (r *Resolver) fetchFailed(field formschema.FieldSchema, err error) {
	r.logger.Warn("option fetch failed",
		zap.String("field", field.Key),
		zap.String("source", string(field.SourceType)),
		zap.Error(err))
}
