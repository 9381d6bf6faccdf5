// Package types provides the shared value types exchanged between the
// reference data providers, the form engine, the store and the event log.
package types

import (
	"encoding/json"
	"time"
)

// Category is one node of the property-category tree.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
	Order    int    `json:"order"`
}

// State is an entry of the Indian state / union-territory reference table.
type State struct {
	Code string `json:"code"` // two-letter code, e.g. "MH"
	Name string `json:"name"`
	Type string `json:"type"` // "state" or "union_territory"
}

// LinkedOption is a selectable option returned for a parent value, such as a
// city of a state or a sub-category of a category.
type LinkedOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FileRef is an opaque handle to an uploaded file. Storage is owned by the
// upload collaborator; the engine only carries the reference.
type FileRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size,omitempty"`
	Type string `json:"type,omitempty"` // MIME type as reported by the client
}

// SourceRef identifies an entity referenced by a domain event.
type SourceRef struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Role       string `json:"role"` // "subject", "target", "related", "context"
}

// ActivityEntry is a secondary index entry over the domain event log,
// keyed by a referenced entity. One event produces one entry per reference.
type ActivityEntry struct {
	EventID           string          `json:"event_id"`
	EventType         string          `json:"event_type"`
	OccurredAt        time.Time       `json:"occurred_at"`
	IndexedEntityType string          `json:"indexed_entity_type"`
	IndexedEntityID   string          `json:"indexed_entity_id"`
	EntityRole        string          `json:"entity_role"`
	SourceRefs        []SourceRef     `json:"source_refs"`
	Summary           string          `json:"summary"`
	Category          string          `json:"category"` // "template", "listing"
	Actor             string          `json:"actor,omitempty"`
	Payload           json.RawMessage `json:"payload"`
}
