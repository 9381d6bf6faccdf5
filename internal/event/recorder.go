// Package event provides domain event recording for the listing service.
// Events are fanned out as ActivityEntry records via the activity.Store
// interface, then published to the in-process event bus for downstream
// consumers.
package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/activity"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/types"
)

// Recorder writes domain events to the activity store.
type Recorder interface {
	Record(ctx context.Context, evt DomainEvent) error
}

// Publisher sends domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt DomainEvent)
}

// ActivityRecorder implements Recorder by fanning out a DomainEvent into
// one ActivityEntry per affected entity, then writing via activity.Store.
// If a Publisher is set, the event is also published to the event bus
// after the store write succeeds.
type ActivityRecorder struct {
	store activity.Store
	bus   Publisher
}

// NewActivityRecorder creates a new ActivityRecorder backed by the given store.
func NewActivityRecorder(store activity.Store) *ActivityRecorder {
	return &ActivityRecorder{store: store}
}

// SetPublisher attaches an event bus. Events are published after store writes.
func (r *ActivityRecorder) SetPublisher(p Publisher) {
	r.bus = p
}

// ErrNoEntities is returned for an event that references no entity and so
// would never appear in any activity feed.
var ErrNoEntities = errors.New("event has no affected entities")

// Record fans out a DomainEvent into ActivityEntry records, writes them,
// and publishes to the event bus. A missing id or timestamp is filled in.
func (r *ActivityRecorder) Record(ctx context.Context, evt DomainEvent) error {
	if len(evt.AffectedEntities) == 0 {
		return fmt.Errorf("%s: %w", evt.EventType, ErrNoEntities)
	}
	if evt.ID == "" {
		evt.ID = newID()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}
	if err := r.store.WriteEntries(ctx, Entries(evt)); err != nil {
		return fmt.Errorf("write activity for %s %s: %w", evt.EventType, evt.ID, err)
	}
	if r.bus != nil {
		r.bus.Publish(ctx, evt)
	}
	return nil
}

// Entries returns the activity entries of evt, one per affected entity.
func Entries(evt DomainEvent) []types.ActivityEntry {
	entries := make([]types.ActivityEntry, 0, len(evt.AffectedEntities))
	for _, ref := range evt.AffectedEntities {
		entries = append(entries, types.ActivityEntry{
			EventID:           evt.ID,
			EventType:         evt.EventType,
			OccurredAt:        evt.OccurredAt,
			IndexedEntityType: ref.EntityType,
			IndexedEntityID:   ref.EntityID,
			EntityRole:        ref.Role,
			SourceRefs:        evt.AffectedEntities,
			Summary:           evt.Summary,
			Category:          evt.Category,
			Actor:             evt.Actor,
			Payload:           evt.Payload,
		})
	}
	return entries
}

// Nop discards events. It is the recorder used when none is configured.
type Nop struct{}

func (Nop) Record(context.Context, DomainEvent) error { return nil }
