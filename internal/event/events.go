package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/types"
)

// DomainEvent carries the canonical shape of every domain event.
type DomainEvent struct {
	ID               string
	EventType        string
	OccurredAt       time.Time
	AffectedEntities []types.SourceRef
	Summary          string
	Category         string // "template", "listing"
	Actor            string
	Payload          json.RawMessage
}

const (
	CategoryTemplate = "template"
	CategoryListing  = "listing"
)

// Event types.
const (
	TypeTemplateCreated     = "template_created"
	TypeTemplateUpdated     = "template_updated"
	TypeTemplatePublished   = "template_published"
	TypeTemplateArchived    = "template_archived"
	TypeTemplateCloned      = "template_cloned"
	TypeTemplateRevised     = "template_revised"
	TypeListingCreated      = "listing_created"
	TypeListingDraftSaved   = "listing_draft_saved"
	TypeListingTransitioned = "listing_transitioned"
)

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ── Template events ─────────────────────────────────────────────────────────

// TemplatePayload carries event-specific data for template lifecycle events.
type TemplatePayload struct {
	TemplateID string `json:"template_id"`
	Name       string `json:"name"`
	SellerType string `json:"seller_type"`
	CategoryID string `json:"category_id"`
	Version    int    `json:"version"`
	Status     string `json:"status"`
	// SourceID is the template a clone or revision was derived from.
	SourceID string `json:"source_id,omitempty"`
}

func templateEvent(eventType, verb, actor string, p TemplatePayload) DomainEvent {
	refs := []types.SourceRef{
		{EntityType: "template", EntityID: p.TemplateID, Role: "subject"},
	}
	if p.CategoryID != "" {
		refs = append(refs, types.SourceRef{EntityType: "category", EntityID: p.CategoryID, Role: "context"})
	}
	if p.SourceID != "" {
		refs = append(refs, types.SourceRef{EntityType: "template", EntityID: p.SourceID, Role: "related"})
	}
	return DomainEvent{
		ID:               newID(),
		EventType:        eventType,
		OccurredAt:       time.Now(),
		AffectedEntities: refs,
		Summary:          fmt.Sprintf("Template %q v%d %s", p.Name, p.Version, verb),
		Category:         CategoryTemplate,
		Actor:            actor,
		Payload:          mustJSON(p),
	}
}

func NewTemplateCreated(actor string, p TemplatePayload) DomainEvent {
	return templateEvent(TypeTemplateCreated, "created", actor, p)
}

func NewTemplateUpdated(actor string, p TemplatePayload) DomainEvent {
	return templateEvent(TypeTemplateUpdated, "updated", actor, p)
}

func NewTemplatePublished(actor string, p TemplatePayload) DomainEvent {
	return templateEvent(TypeTemplatePublished, "published", actor, p)
}

func NewTemplateArchived(actor string, p TemplatePayload) DomainEvent {
	return templateEvent(TypeTemplateArchived, "archived", actor, p)
}

func NewTemplateCloned(actor string, p TemplatePayload) DomainEvent {
	return templateEvent(TypeTemplateCloned, "cloned from "+short(p.SourceID), actor, p)
}

func NewTemplateRevised(actor string, p TemplatePayload) DomainEvent {
	return templateEvent(TypeTemplateRevised, "revised from "+short(p.SourceID), actor, p)
}

// ── Listing events ──────────────────────────────────────────────────────────

// ListingCreatedPayload carries event-specific data for ListingCreated.
type ListingCreatedPayload struct {
	ListingID       string `json:"listing_id"`
	TemplateID      string `json:"template_id"`
	TemplateVersion int    `json:"template_version"`
	OwnerID         string `json:"owner_id"`
}

func NewListingCreated(p ListingCreatedPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeListingCreated,
		OccurredAt: time.Now(),
		AffectedEntities: []types.SourceRef{
			{EntityType: "listing", EntityID: p.ListingID, Role: "subject"},
			{EntityType: "template", EntityID: p.TemplateID, Role: "context"},
			{EntityType: "owner", EntityID: p.OwnerID, Role: "related"},
		},
		Summary:  fmt.Sprintf("Listing %s created from template v%d", short(p.ListingID), p.TemplateVersion),
		Category: CategoryListing,
		Actor:    p.OwnerID,
		Payload:  mustJSON(p),
	}
}

// ListingDraftSavedPayload carries event-specific data for ListingDraftSaved.
type ListingDraftSavedPayload struct {
	ListingID string   `json:"listing_id"`
	OwnerID   string   `json:"owner_id"`
	State     string   `json:"state"`
	Keys      []string `json:"keys"`
}

func NewListingDraftSaved(p ListingDraftSavedPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeListingDraftSaved,
		OccurredAt: time.Now(),
		AffectedEntities: []types.SourceRef{
			{EntityType: "listing", EntityID: p.ListingID, Role: "subject"},
			{EntityType: "owner", EntityID: p.OwnerID, Role: "related"},
		},
		Summary:  fmt.Sprintf("Listing %s saved with %d values", short(p.ListingID), len(p.Keys)),
		Category: CategoryListing,
		Actor:    p.OwnerID,
		Payload:  mustJSON(p),
	}
}

// ListingTransitionedPayload carries event-specific data for
// ListingTransitioned.
type ListingTransitionedPayload struct {
	ListingID string `json:"listing_id"`
	OwnerID   string `json:"owner_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Actor     string `json:"actor"`
	Role      string `json:"role"`
	Reason    string `json:"reason,omitempty"`
	// OnEdit is set when an owner edit caused the transition.
	OnEdit bool `json:"on_edit,omitempty"`
}

func NewListingTransitioned(p ListingTransitionedPayload) DomainEvent {
	summary := fmt.Sprintf("Listing %s moved %s -> %s", short(p.ListingID), p.From, p.To)
	if p.Reason != "" {
		summary += ": " + p.Reason
	}
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeListingTransitioned,
		OccurredAt: time.Now(),
		AffectedEntities: []types.SourceRef{
			{EntityType: "listing", EntityID: p.ListingID, Role: "subject"},
			{EntityType: "owner", EntityID: p.OwnerID, Role: "related"},
		},
		Summary:  summary,
		Category: CategoryListing,
		Actor:    p.Actor,
		Payload:  mustJSON(p),
	}
}
