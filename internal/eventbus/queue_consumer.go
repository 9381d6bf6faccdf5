package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/event"
)

// QueueItem is a listing waiting for a moderator.
type QueueItem struct {
	ListingID string    `json:"listingId"`
	OwnerID   string    `json:"ownerId"`
	State     string    `json:"state"`
	Since     time.Time `json:"since"`
}

// moderationStates are the states in which a moderator must act next.
var moderationStates = map[string]bool{
	"submitted":        true,
	"under_review":     true,
	"needs_reapproval": true,
}

// QueueConsumer keeps the moderation queue projected from listing transition
// events.
type QueueConsumer struct {
	mu    sync.RWMutex
	items map[string]QueueItem
}

func NewQueueConsumer() *QueueConsumer {
	return &QueueConsumer{items: make(map[string]QueueItem)}
}

func (c *QueueConsumer) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	if evt.EventType != event.TypeListingTransitioned {
		return nil
	}
	var p event.ListingTransitionedPayload
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return fmt.Errorf("decoding transition payload: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !moderationStates[p.To] {
		delete(c.items, p.ListingID)
		return nil
	}
	c.items[p.ListingID] = QueueItem{ListingID: p.ListingID, OwnerID: p.OwnerID, State: p.To, Since: evt.OccurredAt}
	return nil
}

// Pending returns the queue, oldest first.
func (c *QueueConsumer) Pending() []QueueItem {
	c.mu.RLock()
	out := make([]QueueItem, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, it)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Since.Equal(out[j].Since) {
			return out[i].ListingID < out[j].ListingID
		}
		return out[i].Since.Before(out[j].Since)
	})
	return out
}
