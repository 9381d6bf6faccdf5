// Package signals classifies listing and template activity into weighted
// moderation signals and aggregates them per entity, so a moderator can see
// at a glance whether a listing keeps bouncing between owner and review.
package signals

import (
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/event"
)

// Signal categories.
const (
	CategoryModeration = "moderation"
	CategoryEditing    = "editing"
	CategoryAuthoring  = "authoring"
)

// WeightOrder maps signal weights to numeric severity (lower = more severe).
var WeightOrder = map[string]int{
	"critical": 1,
	"strong":   2,
	"moderate": 3,
	"weak":     4,
	"info":     5,
}

// Registration classifies one event type, optionally only when Condition
// matches the event payload.
type Registration struct {
	ID              string           `json:"id"`
	EventType       string           `json:"event_type"`
	Condition       string           `json:"condition,omitempty"`
	Category        string           `json:"category"`
	Weight          string           `json:"weight"`
	Polarity        string           `json:"polarity"` // "positive", "negative", "neutral"
	Description     string           `json:"description"`
	EscalationRules []EscalationRule `json:"escalation_rules,omitempty"`
}

// EscalationRule raises a pattern of signals to a heavier weight.
type EscalationRule struct {
	ID                   string             `json:"id"`
	Description          string             `json:"description"`
	TriggerType          string             `json:"trigger_type"` // "count", "cross_category"
	SignalCategory       string             `json:"signal_category,omitempty"`
	SignalPolarity       string             `json:"signal_polarity,omitempty"`
	SignalID             string             `json:"signal_id,omitempty"`
	Count                int                `json:"count,omitempty"`
	WithinDays           int                `json:"within_days"`
	RequiredCategories   []CategoryRequired `json:"required_categories,omitempty"`
	EscalatedWeight      string             `json:"escalated_weight"`
	EscalatedDescription string             `json:"escalated_description"`
	RecommendedAction    string             `json:"recommended_action,omitempty"`
}

// CategoryRequired is one leg of a cross-category rule.
type CategoryRequired struct {
	Category string `json:"category"`
	SignalID string `json:"signal_id,omitempty"`
	MinCount int    `json:"min_count"`
}

// Registry contains every signal registration.
var Registry = []Registration{
	// === Moderation ===
	{
		ID:          "listing_submitted",
		EventType:   event.TypeListingTransitioned,
		Condition:   "to == submitted",
		Category:    CategoryModeration,
		Weight:      "info",
		Polarity:    "neutral",
		Description: "Listing submitted for review",
	},
	{
		ID:          "listing_review_started",
		EventType:   event.TypeListingTransitioned,
		Condition:   "to == under_review",
		Category:    CategoryModeration,
		Weight:      "info",
		Polarity:    "neutral",
		Description: "Moderator picked up the listing",
	},
	{
		ID:          "listing_approved",
		EventType:   event.TypeListingTransitioned,
		Condition:   "to == approved",
		Category:    CategoryModeration,
		Weight:      "moderate",
		Polarity:    "positive",
		Description: "Listing approved",
	},
	{
		ID:          "listing_live",
		EventType:   event.TypeListingTransitioned,
		Condition:   "to == live",
		Category:    CategoryModeration,
		Weight:      "moderate",
		Polarity:    "positive",
		Description: "Listing published",
	},
	{
		ID:          "listing_rejected",
		EventType:   event.TypeListingTransitioned,
		Condition:   "to == rejected",
		Category:    CategoryModeration,
		Weight:      "moderate",
		Polarity:    "negative",
		Description: "Listing rejected by a moderator",
		EscalationRules: []EscalationRule{
			{
				ID:                   "mod_repeat_rejection",
				Description:          "Owner keeps resubmitting without fixing the rejection reason",
				TriggerType:          "count",
				SignalID:             "listing_rejected",
				Count:                3,
				WithinDays:           30,
				EscalatedWeight:      "strong",
				EscalatedDescription: "Rejected 3+ times in 30 days.",
				RecommendedAction:    "Contact the owner directly before the next review.",
			},
		},
	},

	// === Editing ===
	{
		ID:          "listing_draft_saved",
		EventType:   event.TypeListingDraftSaved,
		Category:    CategoryEditing,
		Weight:      "info",
		Polarity:    "neutral",
		Description: "Owner saved listing values",
	},
	{
		ID:          "listing_reapproval",
		EventType:   event.TypeListingTransitioned,
		Condition:   "on_edit == true",
		Category:    CategoryEditing,
		Weight:      "weak",
		Polarity:    "negative",
		Description: "Owner edited an approved listing",
		EscalationRules: []EscalationRule{
			{
				ID:                   "edit_churn",
				Description:          "Approved listing edited repeatedly",
				TriggerType:          "count",
				SignalID:             "listing_reapproval",
				Count:                3,
				WithinDays:           14,
				EscalatedWeight:      "moderate",
				EscalatedDescription: "Sent back for reapproval 3+ times in 2 weeks.",
				RecommendedAction:    "Review the full change history, not only the latest diff.",
			},
		},
	},

	// === Authoring ===
	{
		ID:          "template_published",
		EventType:   event.TypeTemplatePublished,
		Category:    CategoryAuthoring,
		Weight:      "info",
		Polarity:    "positive",
		Description: "Template published",
	},
	{
		ID:          "template_archived",
		EventType:   event.TypeTemplateArchived,
		Category:    CategoryAuthoring,
		Weight:      "weak",
		Polarity:    "neutral",
		Description: "Template archived",
	},
	{
		ID:          "template_revised",
		EventType:   event.TypeTemplateRevised,
		Category:    CategoryAuthoring,
		Weight:      "info",
		Polarity:    "neutral",
		Description: "Draft revision opened",
	},
}

// CrossCategoryRules span more than one category.
var CrossCategoryRules = []EscalationRule{
	{
		ID:          "cross_reject_and_reedit",
		Description: "Listing is both rejected and re-edited after approval",
		TriggerType: "cross_category",
		WithinDays:  30,
		RequiredCategories: []CategoryRequired{
			{Category: CategoryModeration, SignalID: "listing_rejected", MinCount: 2},
			{Category: CategoryEditing, SignalID: "listing_reapproval", MinCount: 1},
		},
		EscalatedWeight:      "critical",
		EscalatedDescription: "Repeated rejections plus post-approval edits.",
		RecommendedAction:    "Hold the listing and audit the owner's other listings.",
	},
}

var (
	registryByEventType = map[string][]Registration{}
	registryByID        = map[string]Registration{}
)

func init() {
	for _, reg := range Registry {
		registryByEventType[reg.EventType] = append(registryByEventType[reg.EventType], reg)
		registryByID[reg.ID] = reg
	}
}

// Lookup returns all registrations matching the given event type.
func Lookup(eventType string) []Registration {
	return registryByEventType[eventType]
}

// ByID returns the registration with the given id.
func ByID(id string) (Registration, bool) {
	reg, ok := registryByID[id]
	return reg, ok
}

// WeightSeverity returns the numeric severity for a weight (lower = more severe).
// Returns 6 for unknown weights.
func WeightSeverity(weight string) int {
	if s, ok := WeightOrder[weight]; ok {
		return s
	}
	return 6
}

// IsAtLeastWeight returns true if actual is at least as severe as minimum.
func IsAtLeastWeight(actual, minimum string) bool {
	return WeightSeverity(actual) <= WeightSeverity(minimum)
}
