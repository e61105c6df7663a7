package memory

import "context"

// Embedder produces embedding vectors for text. It stands in for the external
// multi-modal reasoner at the memory boundary: the core never inspects how a
// vector was produced, only that its dimensionality is stable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)

	// Dimension reports the fixed output dimensionality D.
	Dimension() int
}
