package types

import "time"

// Concept is a node in the knowledge graph. Embeddings carry a fixed
// dimensionality D across the whole graph; the graph enforces this on upsert.
type Concept struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Embedding  []float64      `json:"embedding,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	// Reinforcements counts how many assertions have been merged into this
	// concept; it weights embedding averaging on merge.
	Reinforcements int       `json:"reinforcements"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Validate checks structural validity of a concept before upsert.
func (c *Concept) Validate() error {
	if c == nil {
		return NewValidationError("concept is nil")
	}
	if c.Label == "" {
		return NewValidationError("concept label is required")
	}
	return nil
}

// Clone returns a deep copy of the concept.
func (c *Concept) Clone() *Concept {
	if c == nil {
		return nil
	}
	out := *c
	out.Embedding = append([]float64(nil), c.Embedding...)
	if c.Attributes != nil {
		out.Attributes = make(map[string]any, len(c.Attributes))
		for k, v := range c.Attributes {
			out.Attributes[k] = v
		}
	}
	return &out
}

// Relation is a weighted, typed edge between two concepts. Repeated
// assertions of the same (source, target, type) accumulate weight instead of
// duplicating the edge. Relations are never silently deleted.
type Relation struct {
	ID        string    `json:"id"`
	SourceID  string    `json:"source_id"`
	TargetID  string    `json:"target_id"`
	Type      string    `json:"type"`
	Weight    float64   `json:"weight"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks structural validity of a relation before upsert.
func (r *Relation) Validate() error {
	if r == nil {
		return NewValidationError("relation is nil")
	}
	if r.SourceID == "" || r.TargetID == "" {
		return NewValidationError("relation source and target ids are required")
	}
	if r.Type == "" {
		return NewValidationError("relation type is required")
	}
	return nil
}
