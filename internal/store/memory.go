package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/formschema"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/types"
)

// MemoryStore implements Store with maps guarded by one mutex.
type MemoryStore struct {
	mu          sync.RWMutex
	templates   map[string]*formschema.FormTemplate
	categories  []types.Category
	listings    map[string]*Listing
	transitions map[string][]Transition
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		templates:   make(map[string]*formschema.FormTemplate),
		listings:    make(map[string]*Listing),
		transitions: make(map[string][]Transition),
	}
}

func (s *MemoryStore) SaveTemplate(_ context.Context, t *formschema.FormTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.ID] = t.Copy()
	return nil
}

func (s *MemoryStore) GetTemplate(_ context.Context, id string) (*formschema.FormTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return t.Copy(), nil
}

func (s *MemoryStore) ListTemplates(_ context.Context, f TemplateFilter) ([]*formschema.FormTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*formschema.FormTemplate
	for _, t := range s.templates {
		if f.match(t) {
			out = append(out, t.Copy())
		}
	}
	sortTemplates(out)
	return out, nil
}

func (s *MemoryStore) SaveCategories(_ context.Context, cats []types.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID := make(map[string]int, len(s.categories))
	for i, c := range s.categories {
		byID[c.ID] = i
	}
	for _, c := range cats {
		if i, ok := byID[c.ID]; ok {
			s.categories[i] = c
			continue
		}
		byID[c.ID] = len(s.categories)
		s.categories = append(s.categories, c)
	}
	return nil
}

func (s *MemoryStore) ListCategories(_ context.Context) ([]types.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]types.Category(nil), s.categories...)
	sortCategories(out)
	return out, nil
}

func (s *MemoryStore) CreateListing(_ context.Context, l *Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[l.ID]; ok {
		return fmt.Errorf("listing %s: %w", l.ID, ErrConflict)
	}
	s.listings[l.ID] = l.Copy()
	return nil
}

func (s *MemoryStore) GetListing(_ context.Context, id string) (*Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	if !ok {
		return nil, fmt.Errorf("listing %s: %w", id, ErrNotFound)
	}
	return l.Copy(), nil
}

func (s *MemoryStore) UpdateListing(_ context.Context, id string, fn MutateFunc) (*Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.listings[id]
	if !ok {
		return nil, fmt.Errorf("listing %s: %w", id, ErrNotFound)
	}
	next := cur.Copy()
	tr, err := fn(next)
	if err != nil {
		return nil, err
	}
	next.ID = cur.ID
	next.UpdatedAt = time.Now()
	s.listings[id] = next
	if tr != nil {
		tr.ListingID = id
		if tr.OccurredAt.IsZero() {
			tr.OccurredAt = next.UpdatedAt
		}
		s.transitions[id] = append(s.transitions[id], *tr)
	}
	return next.Copy(), nil
}

func (s *MemoryStore) History(_ context.Context, listingID string) ([]Transition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.listings[listingID]; !ok {
		return nil, fmt.Errorf("listing %s: %w", listingID, ErrNotFound)
	}
	return append([]Transition(nil), s.transitions[listingID]...), nil
}

func (s *MemoryStore) Close() error { return nil }

func sortTemplates(ts []*formschema.FormTemplate) {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
			return ts[i].CreatedAt.Before(ts[j].CreatedAt)
		}
		return ts[i].ID < ts[j].ID
	})
}

// sortCategories orders by parent, then authored order.
func sortCategories(cs []types.Category) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].ParentID != cs[j].ParentID {
			return cs[i].ParentID < cs[j].ParentID
		}
		return cs[i].Order < cs[j].Order
	})
}
