package models

import "time"

// EntityType names one kind of domain record the engine reads and writes
// through the host's persistence layer.
type EntityType string

const (
	EntityCompany EntityType = "company"
	EntityContact EntityType = "contact"
	EntityDeal    EntityType = "deal"
	EntityTask    EntityType = "task"
	EntityNote    EntityType = "note"
)

// KnownEntityTypes lists every entity type actions may target.
var KnownEntityTypes = []EntityType{
	EntityCompany,
	EntityContact,
	EntityDeal,
	EntityTask,
	EntityNote,
}

// IsKnownEntityType reports whether t names a supported entity type.
func IsKnownEntityType(t EntityType) bool {
	for _, known := range KnownEntityTypes {
		if t == known {
			return true
		}
	}

	return false
}

// Record is a schemaless domain record. The automation core treats
// record fields as an opaque document; screens and list views elsewhere
// in the host application give them shape.
type Record struct {
	ID        string         `json:"id"`
	Type      EntityType     `json:"type"`
	Fields    map[string]any `json:"fields"`
	Tags      []string       `json:"tags,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
