// Package activity provides the activity store interface and implementations
// for the per-entity activity stream over listing and template events.
package activity

import (
	"slices"
	"time"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/types"
)

// QueryOptions controls filtering and pagination for entity activity queries.
type QueryOptions struct {
	Since      *time.Time
	Until      *time.Time
	Categories []string // "template", "listing"
	EventTypes []string
	Limit      int    // max results (default: 100, max: 500)
	Cursor     string // cursor for pagination
}

// SearchOptions controls filtering for summary search.
type SearchOptions struct {
	EntityType string
	Since      *time.Time
	Categories []string
	Limit      int // max results (default: 20)
}

// DefaultQueryOptions returns QueryOptions with sensible defaults.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{Limit: 100}
}

// DefaultSearchOptions returns SearchOptions with sensible defaults.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{Limit: 20}
}

func (o QueryOptions) limit() int {
	if o.Limit <= 0 || o.Limit > 500 {
		return 100
	}
	return o.Limit
}

func (o SearchOptions) limit() int {
	if o.Limit <= 0 {
		return 20
	}
	return o.Limit
}

// matches applies the time window, category and event-type filters.
func (o QueryOptions) matches(e types.ActivityEntry) bool {
	if o.Since != nil && e.OccurredAt.Before(*o.Since) {
		return false
	}
	if o.Until != nil && e.OccurredAt.After(*o.Until) {
		return false
	}
	if len(o.Categories) > 0 && !slices.Contains(o.Categories, e.Category) {
		return false
	}
	if len(o.EventTypes) > 0 && !slices.Contains(o.EventTypes, e.EventType) {
		return false
	}
	return true
}

func (o QueryOptions) cursor() (time.Time, bool) {
	if o.Cursor == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, o.Cursor)
	return t, err == nil
}

func cursorOf(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }
