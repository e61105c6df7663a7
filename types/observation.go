package types

import "time"

// Modality identifies the kind of payload an Observation carries.
// The set is closed: the agent core only understands text, image, and graph
// observations; anything else is rejected at validation time.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
	ModalityGraph Modality = "graph"
)

// knownModalities is the closed modality set accepted by Validate.
var knownModalities = map[Modality]struct{}{
	ModalityText:  {},
	ModalityImage: {},
	ModalityGraph: {},
}

// Observation is a single multi-modal input to the agent. Observations are
// immutable once created and are owned by the sensory buffer until they are
// consumed by the coordinator or expire.
//
// Embedding and EmbeddingConfidence are attached by the external multi-modal
// reasoner before the observation enters the buffer; the core treats them as
// opaque.
type Observation struct {
	ID                  string         `json:"id"`
	Modality            Modality       `json:"modality"`
	Payload             []byte         `json:"payload"`
	Source              string         `json:"source,omitempty"`
	SourceConfidence    float64        `json:"source_confidence"`
	Embedding           []float64      `json:"embedding,omitempty"`
	EmbeddingConfidence float64        `json:"embedding_confidence,omitempty"`
	Timestamp           time.Time      `json:"timestamp"`
	Metadata            map[string]any `json:"metadata,omitempty"`
}

// Validate checks structural validity: a known modality, a non-empty payload,
// and confidences within [0,1]. It returns a VALIDATION error on failure.
func (o *Observation) Validate() error {
	if o == nil {
		return NewValidationError("observation is nil")
	}
	if _, ok := knownModalities[o.Modality]; !ok {
		return NewValidationError("observation modality is missing or unknown")
	}
	if len(o.Payload) == 0 {
		return NewValidationError("observation payload is empty")
	}
	if o.SourceConfidence < 0 || o.SourceConfidence > 1 {
		return NewValidationError("observation source confidence must be in [0,1]")
	}
	if o.EmbeddingConfidence < 0 || o.EmbeddingConfidence > 1 {
		return NewValidationError("observation embedding confidence must be in [0,1]")
	}
	return nil
}

// Salience estimates task relevance for working-memory ranking. The heuristic
// anchors at 0.5 and rewards source and embedding confidence, saturating at 1.
func (o *Observation) Salience() float64 {
	s := 0.5 + 0.3*o.SourceConfidence + 0.2*o.EmbeddingConfidence
	if s > 1 {
		return 1
	}
	return s
}
