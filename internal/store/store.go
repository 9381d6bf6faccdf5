// Package store persists form templates, categories, listings and their
// workflow history. SQLStore keeps them in SQLite; MemoryStore is the
// in-process equivalent used by tests and demos.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/engine"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/formschema"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/types"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/workflow"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Listing is one owner's submission against a template version.
type Listing struct {
	ID              string         `json:"id"`
	TemplateID      string         `json:"templateId"`
	TemplateVersion int            `json:"templateVersion"`
	OwnerID         string         `json:"ownerId"`
	State           workflow.State `json:"state"`
	Values          engine.Values  `json:"values"`
	// LastApprovedValues are the values a moderator last approved. Display
	// collaborators serve these while the listing is in needs_reapproval.
	LastApprovedValues engine.Values `json:"lastApprovedValues,omitempty"`
	RejectionReason    string        `json:"rejectionReason,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// Copy returns a copy of l whose value maps may be mutated freely.
func (l *Listing) Copy() *Listing {
	c := *l
	c.Values = l.Values.Clone()
	if l.LastApprovedValues != nil {
		c.LastApprovedValues = l.LastApprovedValues.Clone()
	}
	return &c
}

// Transition is one entry of a listing's workflow history.
type Transition struct {
	ListingID  string         `json:"listingId"`
	From       workflow.State `json:"from"`
	To         workflow.State `json:"to"`
	Actor      string         `json:"actor"`
	Role       workflow.Actor `json:"role"`
	Reason     string         `json:"reason,omitempty"`
	OnEdit     bool           `json:"onEdit,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// TemplateFilter narrows ListTemplates. Zero fields match everything.
type TemplateFilter struct {
	Status     formschema.Status
	SellerType formschema.SellerType
	CategoryID string
}

// MutateFunc changes a listing in place inside UpdateListing. A non-nil
// Transition is appended to the history in the same unit of work. Returning
// an error aborts the update.
type MutateFunc func(l *Listing) (*Transition, error)

// Store is the persistence contract of the listing service.
type Store interface {
	SaveTemplate(ctx context.Context, t *formschema.FormTemplate) error
	GetTemplate(ctx context.Context, id string) (*formschema.FormTemplate, error)
	ListTemplates(ctx context.Context, f TemplateFilter) ([]*formschema.FormTemplate, error)

	SaveCategories(ctx context.Context, cats []types.Category) error
	ListCategories(ctx context.Context) ([]types.Category, error)

	CreateListing(ctx context.Context, l *Listing) error
	GetListing(ctx context.Context, id string) (*Listing, error)
	// UpdateListing reads, mutates and writes a listing atomically: readers
	// observe the listing before or after the mutation, never in between.
	UpdateListing(ctx context.Context, id string, fn MutateFunc) (*Listing, error)
	History(ctx context.Context, listingID string) ([]Transition, error)

	Close() error
}

func (f TemplateFilter) match(t *formschema.FormTemplate) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.SellerType != "" && t.SellerType != f.SellerType {
		return false
	}
	if f.CategoryID != "" && t.CategoryID != f.CategoryID {
		return false
	}
	return true
}
