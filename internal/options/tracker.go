package options

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/formschema"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/types"
)

// Tracker holds the latest resolved options per field when resolution runs
// asynchronously. A fetch result is applied only if the linked value it was
// issued for is still the field's current linked value, so results win by
// key, not by completion order. In-flight fetches for stale values are never
// cancelled; their results are dropped.
type Tracker struct {
	mu      sync.Mutex
	want    map[string]string
	applied map[string]appliedOptions
}

type appliedOptions struct {
	linked  string
	options []string
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		want:    make(map[string]string),
		applied: make(map[string]appliedOptions),
	}
}

// Want records linked as the current linked value of field.
func (t *Tracker) Want(field, linked string) {
	t.mu.Lock()
	t.want[field] = linked
	t.mu.Unlock()
}

// Apply stores options fetched for linked if linked is still wanted.
func (t *Tracker) Apply(field, linked string, options []string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if w, ok := t.want[field]; !ok || w != linked {
		return false
	}
	t.applied[field] = appliedOptions{linked: linked, options: options}
	return true
}

// Options returns the options applied for the field's current linked value.
// ok is false while no matching result has arrived.
func (t *Tracker) Options(field string) (options []string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, found := t.applied[field]
	if !found || a.linked != t.want[field] {
		return nil, false
	}
	return a.options, true
}

// Applied returns the linked value and options of the field's current
// result. ok is false while no result for the wanted linked value exists.
func (t *Tracker) Applied(field string) (linked string, options []string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, found := t.applied[field]
	if !found || a.linked != t.want[field] {
		return "", nil, false
	}
	return a.linked, a.options, true
}

// ResolveAsync marks linkedValue as wanted for field and resolves in the
// background. The returned channel yields once, when the fetch completes:
// true if its result was applied, false if a newer linked value superseded
// it.
func (r *Resolver) ResolveAsync(ctx context.Context, field formschema.FieldSchema, linkedValue string, t *Tracker) <-chan bool {
	t.Want(field.Key, linkedValue)
	done := make(chan bool, 1)
	go func() {
		defer close(done)
		opts := r.Resolve(ctx, field, linkedValue)
		done <- t.Apply(field.Key, linkedValue, opts)
	}()
	return done
}

// Shared wraps Providers so that concurrent identical lookups share one
// fetch. Completed results are not cached; later calls fetch again.
type Shared struct {
	next  Providers
	group singleflight.Group
}

// NewShared wraps next.
func NewShared(next Providers) *Shared {
	return &Shared{next: next}
}

func (s *Shared) Categories(ctx context.Context) ([]types.Category, error) {
	v, err, _ := s.group.Do("categories", func() (any, error) {
		return s.next.Categories(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]types.Category), nil
}

func (s *Shared) States(ctx context.Context) ([]types.State, error) {
	v, err, _ := s.group.Do("states", func() (any, error) {
		return s.next.States(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]types.State), nil
}

func (s *Shared) LinkedOptions(ctx context.Context, parentValue string) ([]types.LinkedOption, error) {
	v, err, _ := s.group.Do("linked:"+parentValue, func() (any, error) {
		return s.next.LinkedOptions(ctx, parentValue)
	})
	if err != nil {
		return nil, err
	}
	return v.([]types.LinkedOption), nil
}
