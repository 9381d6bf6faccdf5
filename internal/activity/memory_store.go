package activity

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/types"
)

// MemoryStore implements Store in process memory, keyed by indexed entity.
// Used by tests and by the server when no database is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	byEntity map[entityKey][]types.ActivityEntry
	all      []types.ActivityEntry
}

type entityKey struct{ typ, id string }

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byEntity: make(map[entityKey][]types.ActivityEntry)}
}

func (s *MemoryStore) WriteEntries(_ context.Context, entries []types.ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		k := entityKey{e.IndexedEntityType, e.IndexedEntityID}
		s.byEntity[k] = append(s.byEntity[k], e)
	}
	s.all = append(s.all, entries...)
	return nil
}

// Len reports how many entries have been written.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.all)
}

func (s *MemoryStore) QueryByEntity(_ context.Context, entityType, entityID string, opts QueryOptions) ([]types.ActivityEntry, string, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cursor, hasCursor := opts.cursor()
	var matched []types.ActivityEntry
	var total int
	for _, e := range s.byEntity[entityKey{entityType, entityID}] {
		if !opts.matches(e) {
			continue
		}
		total++
		if hasCursor && !e.OccurredAt.Before(cursor) {
			continue
		}
		matched = append(matched, e)
	}
	newestFirst(matched)

	limit := opts.limit()
	var nextCursor string
	if len(matched) > limit {
		matched = matched[:limit]
		nextCursor = cursorOf(matched[len(matched)-1].OccurredAt)
	}
	return matched, nextCursor, total, nil
}

// Search matches query case-insensitively against the summary and actor.
func (s *MemoryStore) Search(_ context.Context, query string, opts SearchOptions) ([]types.ActivityEntry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	var matched []types.ActivityEntry
	for _, e := range s.all {
		if !strings.Contains(strings.ToLower(e.Summary), q) && !strings.Contains(strings.ToLower(e.Actor), q) {
			continue
		}
		if opts.EntityType != "" && e.IndexedEntityType != opts.EntityType {
			continue
		}
		if opts.Since != nil && e.OccurredAt.Before(*opts.Since) {
			continue
		}
		if len(opts.Categories) > 0 && !slices.Contains(opts.Categories, e.Category) {
			continue
		}
		matched = append(matched, e)
	}
	newestFirst(matched)

	total := len(matched)
	if limit := opts.limit(); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func newestFirst(entries []types.ActivityEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].OccurredAt.After(entries[j].OccurredAt)
	})
}
