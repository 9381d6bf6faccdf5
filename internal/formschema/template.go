package formschema

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// SellerType scopes a template to the kind of seller filling it in.
type SellerType string

const (
	SellerIndividual SellerType = "individual"
	SellerBroker     SellerType = "broker"
	SellerBuilder    SellerType = "builder"
)

// Known reports whether s is a supported seller type.
func (s SellerType) Known() bool {
	return s == SellerIndividual || s == SellerBroker || s == SellerBuilder
}

// Status is the lifecycle status of a FormTemplate.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// ValidTemplateTransitions lists the lifecycle moves a template can make.
// Archived has no outgoing transitions.
var ValidTemplateTransitions = map[Status][]Status{
	StatusDraft:     {StatusPublished, StatusArchived},
	StatusPublished: {StatusArchived},
	StatusArchived:  {},
}

var (
	// ErrNotDraft is returned when editing a template that is not a draft.
	ErrNotDraft = errors.New("template is not a draft")
	// ErrNotPublished is returned when a published template is required.
	ErrNotPublished = errors.New("template is not published")
	// ErrInvalidStatus is returned for a lifecycle move the table forbids.
	ErrInvalidStatus = errors.New("invalid template status transition")
)

// SectionSchema is an ordered group of fields shown on one stage.
type SectionSchema struct {
	ID     string        `json:"id" yaml:"id"`
	Name   string        `json:"name" yaml:"name"`
	Stage  int           `json:"stage" yaml:"stage"`
	Fields []FieldSchema `json:"fields" yaml:"fields"`
}

// FormTemplate is a versioned, ordered collection of sections.
type FormTemplate struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	SellerType  SellerType      `json:"sellerType" yaml:"sellerType"`
	CategoryID  string          `json:"categoryId" yaml:"categoryId"`
	Version     int             `json:"version" yaml:"version"`
	Status      Status          `json:"status" yaml:"status"`
	Sections    []SectionSchema `json:"sections" yaml:"sections"`
	ClonedFrom  string          `json:"clonedFrom,omitempty" yaml:"clonedFrom,omitempty"`
	RevisionOf  string          `json:"revisionOf,omitempty" yaml:"revisionOf,omitempty"`
	CreatedAt   time.Time       `json:"createdAt" yaml:"-"`
	UpdatedAt   time.Time       `json:"updatedAt" yaml:"-"`
	PublishedAt *time.Time      `json:"publishedAt,omitempty" yaml:"-"`
}

// NewTemplate creates a draft template at version 1.
func NewTemplate(name string, seller SellerType, categoryID string, sections []SectionSchema) *FormTemplate {
	now := time.Now().UTC()
	return &FormTemplate{
		ID:         uuid.New().String(),
		Name:       name,
		SellerType: seller,
		CategoryID: categoryID,
		Version:    1,
		Status:     StatusDraft,
		Sections:   cloneSections(sections),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Fields returns every field of the template flattened in section order,
// then field order. This is the order validation runs in.
func (t *FormTemplate) Fields() []FieldSchema {
	var out []FieldSchema
	for _, s := range t.Sections {
		out = append(out, s.Fields...)
	}
	return out
}

// Field looks up a field by key.
func (t *FormTemplate) Field(key string) (FieldSchema, bool) {
	for _, s := range t.Sections {
		for _, f := range s.Fields {
			if f.Key == key {
				return f, true
			}
		}
	}
	return FieldSchema{}, false
}

// Stages returns the distinct stage numbers in ascending order.
func (t *FormTemplate) Stages() []int {
	seen := make(map[int]bool)
	var out []int
	for _, s := range t.Sections {
		if !seen[s.Stage] {
			seen[s.Stage] = true
			out = append(out, s.Stage)
		}
	}
	sort.Ints(out)
	return out
}

// StageSections returns the sections shown on the given stage, in order.
func (t *FormTemplate) StageSections(stage int) []SectionSchema {
	var out []SectionSchema
	for _, s := range t.Sections {
		if s.Stage == stage {
			out = append(out, s)
		}
	}
	return out
}

// Dependents returns the keys of fields whose options are linked to key.
func (t *FormTemplate) Dependents(key string) []string {
	var out []string
	for _, f := range t.Fields() {
		if f.Linked() && f.LinkedFieldKey == key {
			out = append(out, f.Key)
		}
	}
	return out
}

// Offered reports whether the template may be used for new listings.
func (t *FormTemplate) Offered() bool {
	return t.Status == StatusPublished
}

// Update replaces the editable content of a draft template.
func (t *FormTemplate) Update(name string, seller SellerType, categoryID string, sections []SectionSchema) error {
	if t.Status != StatusDraft {
		return fmt.Errorf("update template %s: %w", t.ID, ErrNotDraft)
	}
	t.Name = name
	t.SellerType = seller
	t.CategoryID = categoryID
	t.Sections = cloneSections(sections)
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Publish moves a draft to published.
func (t *FormTemplate) Publish() error {
	if err := t.moveTo(StatusPublished); err != nil {
		return err
	}
	now := t.UpdatedAt
	t.PublishedAt = &now
	return nil
}

// Archive retires the template from new submissions. Listings that already
// reference it are unaffected.
func (t *FormTemplate) Archive() error {
	return t.moveTo(StatusArchived)
}

func (t *FormTemplate) moveTo(target Status) error {
	allowed, ok := ValidTemplateTransitions[t.Status]
	if !ok {
		return fmt.Errorf("template %s: unknown status %q: %w", t.ID, t.Status, ErrInvalidStatus)
	}
	for _, s := range allowed {
		if s == target {
			t.Status = target
			t.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("template %s: %q to %q: %w", t.ID, t.Status, target, ErrInvalidStatus)
}

// Clone deep-copies the template into a new draft at version 1.
func (t *FormTemplate) Clone(name string) *FormTemplate {
	if name == "" {
		name = t.Name + " (copy)"
	}
	c := NewTemplate(name, t.SellerType, t.CategoryID, t.Sections)
	c.ClonedFrom = t.ID
	return c
}

// Revise seeds a new draft from a published template, one version above it.
func (t *FormTemplate) Revise() (*FormTemplate, error) {
	if t.Status != StatusPublished {
		return nil, fmt.Errorf("revise template %s: %w", t.ID, ErrNotPublished)
	}
	r := NewTemplate(t.Name, t.SellerType, t.CategoryID, t.Sections)
	r.Version = t.Version + 1
	r.RevisionOf = t.ID
	return r, nil
}

// Copy returns a deep copy of the template with the same identity.
func (t *FormTemplate) Copy() *FormTemplate {
	c := *t
	c.Sections = cloneSections(t.Sections)
	if t.PublishedAt != nil {
		p := *t.PublishedAt
		c.PublishedAt = &p
	}
	return &c
}

func cloneSections(in []SectionSchema) []SectionSchema {
	if in == nil {
		return nil
	}
	out := make([]SectionSchema, len(in))
	for i, s := range in {
		out[i] = s
		out[i].Fields = make([]FieldSchema, len(s.Fields))
		for j, f := range s.Fields {
			out[i].Fields[j] = f.Clone()
		}
	}
	return out
}
