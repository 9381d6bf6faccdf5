package signals

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/event"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/types"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func transition(to string, onEdit bool, daysAgo int) types.ActivityEntry {
	raw, _ := json.Marshal(event.ListingTransitionedPayload{ListingID: "l1", To: to, OnEdit: onEdit})
	return types.ActivityEntry{
		EventID:           "evt-" + to,
		EventType:         event.TypeListingTransitioned,
		OccurredAt:        now.AddDate(0, 0, -daysAgo),
		IndexedEntityType: "listing",
		IndexedEntityID:   "l1",
		EntityRole:        "subject",
		Summary:           "moved to " + to,
		Category:          event.CategoryListing,
		Payload:           raw,
	}
}

func aggregate(entries ...types.ActivityEntry) Summary {
	return Aggregate(entries, "listing", "l1", now.AddDate(0, 0, -60), now)
}

func TestAggregate_CategoryCounts(t *testing.T) {
	s := aggregate(
		transition("submitted", false, 10),
		transition("under_review", false, 9),
		transition("approved", false, 8),
		transition("needs_reapproval", true, 2),
		types.ActivityEntry{EventType: event.TypeListingCreated, OccurredAt: now},
	)

	if len(s.Signals) != 4 {
		t.Fatalf("got %d signals, want 4", len(s.Signals))
	}
	if s.Categories[CategoryModeration].SignalCount != 3 {
		t.Errorf("moderation count = %d, want 3", s.Categories[CategoryModeration].SignalCount)
	}
	if s.Categories[CategoryEditing].SignalCount != 1 {
		t.Errorf("editing count = %d, want 1", s.Categories[CategoryEditing].SignalCount)
	}
	if s.Categories[CategoryModeration].DominantPolarity != "neutral" {
		t.Errorf("dominant polarity = %q, want neutral", s.Categories[CategoryModeration].DominantPolarity)
	}
	if s.OverallSentiment != "positive" {
		t.Errorf("sentiment = %q, want positive", s.OverallSentiment)
	}
	if !s.Signals[0].OccurredAt.Before(s.Signals[len(s.Signals)-1].OccurredAt) {
		t.Error("signals should be in time order")
	}
}

func TestAggregate_RepeatRejection(t *testing.T) {
	s := aggregate(
		transition("rejected", false, 20),
		transition("rejected", false, 10),
		transition("rejected", false, 1),
	)
	if len(s.Escalations) != 1 {
		t.Fatalf("got %d escalations, want 1", len(s.Escalations))
	}
	es := s.Escalations[0]
	if es.Rule.ID != "mod_repeat_rejection" {
		t.Errorf("rule = %q", es.Rule.ID)
	}
	if es.TriggeringCount != 3 {
		t.Errorf("count = %d, want 3", es.TriggeringCount)
	}
	if !es.EarliestOccurred.Equal(now.AddDate(0, 0, -20)) {
		t.Errorf("earliest = %v", es.EarliestOccurred)
	}
	if s.OverallSentiment != "concerning" {
		t.Errorf("sentiment = %q, want concerning", s.OverallSentiment)
	}
}

func TestAggregate_WindowExcludesOldRejections(t *testing.T) {
	s := aggregate(
		transition("rejected", false, 45),
		transition("rejected", false, 10),
		transition("rejected", false, 1),
	)
	for _, es := range s.Escalations {
		if es.Rule.ID == "mod_repeat_rejection" {
			t.Error("rejection 45 days ago is outside the 30 day window")
		}
	}
}

func TestAggregate_CrossCategoryCritical(t *testing.T) {
	s := aggregate(
		transition("rejected", false, 12),
		transition("rejected", false, 6),
		transition("needs_reapproval", true, 1),
	)
	found := false
	for _, es := range s.Escalations {
		if es.Rule.ID == "cross_reject_and_reedit" {
			found = true
			if es.TriggeringCount != 3 {
				t.Errorf("count = %d, want 3", es.TriggeringCount)
			}
		}
	}
	if !found {
		t.Fatal("cross-category rule should fire")
	}
	if s.OverallSentiment != "critical" {
		t.Errorf("sentiment = %q, want critical", s.OverallSentiment)
	}
}

func TestAggregate_Trend(t *testing.T) {
	s := aggregate(
		transition("rejected", false, 5),
		transition("rejected", false, 3),
		transition("rejected", false, 1),
	)
	if got := s.Categories[CategoryModeration].Trend; got != "declining" {
		t.Errorf("trend = %q, want declining", got)
	}
}

func TestAggregate_Empty(t *testing.T) {
	s := aggregate()
	if len(s.Categories) != 0 || len(s.Escalations) != 0 {
		t.Error("empty input should produce an empty summary")
	}
	if s.OverallSentiment != "positive" {
		t.Errorf("sentiment = %q, want positive", s.OverallSentiment)
	}
}
