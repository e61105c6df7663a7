package memory

import (
	"context"
	"testing"

	"github.com/BaSui01/synthmind/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestGraph(t *testing.T) *InMemoryKnowledgeGraph {
	t.Helper()
	cfg := DefaultKnowledgeGraphConfig()
	cfg.Now = newFixedClock().Now
	return NewInMemoryKnowledgeGraph(cfg, zaptest.NewLogger(t))
}

func TestKnowledgeGraph_UpsertMergesByLabel(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()

	first, err := g.UpsertConcept(ctx, &types.Concept{Label: "Neural Network", Embedding: []float64{1, 0}})
	require.NoError(t, err)
	require.Equal(t, 1, first.Reinforcements)

	// Same label, different casing: reinforce instead of duplicate.
	second, err := g.UpsertConcept(ctx, &types.Concept{Label: "neural network", Embedding: []float64{0, 1}})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 2, second.Reinforcements)

	// Embedding moved halfway toward the update.
	require.InDelta(t, 0.5, second.Embedding[0], 1e-9)
	require.InDelta(t, 0.5, second.Embedding[1], 1e-9)

	stats, err := g.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Concepts)
}

func TestKnowledgeGraph_UpsertRejectsDimensionMismatch(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()

	// The first embedded concept fixes the graph's dimensionality.
	_, err := g.UpsertConcept(ctx, &types.Concept{Label: "alpha", Embedding: []float64{0.1, 0.2, 0.3}})
	require.NoError(t, err)

	_, err = g.UpsertConcept(ctx, &types.Concept{Label: "beta", Embedding: []float64{0.1, 0.2, 0.3, 0.4, 0.5}})
	require.Equal(t, types.ErrValidation, types.GetErrorCode(err))

	stats, err := g.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Concepts, "mismatched concept is never stored")

	// Concepts without an embedding are exempt (action nodes carry none).
	_, err = g.UpsertConcept(ctx, &types.Concept{Label: "gamma"})
	require.NoError(t, err)

	// The dimension survives a snapshot restore.
	concepts, err := g.Concepts(ctx)
	require.NoError(t, err)
	restored := newTestGraph(t)
	restored.Restore(concepts, nil)
	_, err = restored.UpsertConcept(ctx, &types.Concept{Label: "delta", Embedding: []float64{1, 2}})
	require.Equal(t, types.ErrValidation, types.GetErrorCode(err))
}

func TestKnowledgeGraph_UpsertMergesByEmbeddingSimilarity(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()

	first, err := g.UpsertConcept(ctx, &types.Concept{Label: "gradient descent", Embedding: []float64{1, 0.01}})
	require.NoError(t, err)

	// Different label but nearly identical embedding merges.
	merged, err := g.UpsertConcept(ctx, &types.Concept{Label: "sgd", Embedding: []float64{1, 0.02}})
	require.NoError(t, err)
	require.Equal(t, first.ID, merged.ID)

	// A distant embedding creates a fresh concept.
	other, err := g.UpsertConcept(ctx, &types.Concept{Label: "tokenizer", Embedding: []float64{0, 1}})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, other.ID)
}

func TestKnowledgeGraph_RelationWeightAccumulates(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()

	a, err := g.UpsertConcept(ctx, &types.Concept{Label: "a", Embedding: []float64{1, 0}})
	require.NoError(t, err)
	b, err := g.UpsertConcept(ctx, &types.Concept{Label: "b", Embedding: []float64{0, 1}})
	require.NoError(t, err)

	rel1, err := g.UpsertRelation(ctx, &types.Relation{SourceID: a.ID, TargetID: b.ID, Type: "supports", Weight: 1})
	require.NoError(t, err)
	rel2, err := g.UpsertRelation(ctx, &types.Relation{SourceID: a.ID, TargetID: b.ID, Type: "supports", Weight: 2})
	require.NoError(t, err)

	require.Equal(t, rel1.ID, rel2.ID, "same (source, target, type) is one edge")
	require.Equal(t, 3.0, rel2.Weight)

	// A different type is a distinct edge.
	rel3, err := g.UpsertRelation(ctx, &types.Relation{SourceID: a.ID, TargetID: b.ID, Type: "contradicts"})
	require.NoError(t, err)
	require.NotEqual(t, rel1.ID, rel3.ID)

	stats, err := g.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Relations)
}

func TestKnowledgeGraph_RelationRequiresEndpoints(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()

	a, err := g.UpsertConcept(ctx, &types.Concept{Label: "a", Embedding: []float64{1, 0}})
	require.NoError(t, err)

	_, err = g.UpsertRelation(ctx, &types.Relation{SourceID: a.ID, TargetID: "ghost", Type: "supports"})
	require.Equal(t, types.ErrNotFound, types.GetErrorCode(err))
}

func TestKnowledgeGraph_NeighborsFiltered(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()

	root, err := g.UpsertConcept(ctx, &types.Concept{Label: "root", Embedding: []float64{1, 0, 0}})
	require.NoError(t, err)
	left, err := g.UpsertConcept(ctx, &types.Concept{Label: "left", Embedding: []float64{0, 1, 0}})
	require.NoError(t, err)
	right, err := g.UpsertConcept(ctx, &types.Concept{Label: "right", Embedding: []float64{0, 0, 1}})
	require.NoError(t, err)

	_, err = g.UpsertRelation(ctx, &types.Relation{SourceID: root.ID, TargetID: left.ID, Type: "supports"})
	require.NoError(t, err)
	_, err = g.UpsertRelation(ctx, &types.Relation{SourceID: root.ID, TargetID: right.ID, Type: "contradicts"})
	require.NoError(t, err)

	all, err := g.Neighbors(ctx, root.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	supports, err := g.Neighbors(ctx, root.ID, "supports")
	require.NoError(t, err)
	require.Len(t, supports, 1)
	require.Equal(t, left.ID, supports[0].ID)

	_, err = g.Neighbors(ctx, "ghost", "")
	require.Equal(t, types.ErrNotFound, types.GetErrorCode(err))
}

func TestKnowledgeGraph_SimilarDeterministicTopK(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()

	// Orthogonal embeddings so nothing merges.
	embeddings := [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	labels := []string{"x", "y", "z"}
	for i := range labels {
		_, err := g.UpsertConcept(ctx, &types.Concept{Label: labels[i], Embedding: embeddings[i]})
		require.NoError(t, err)
	}

	first, err := g.Similar(ctx, []float64{1, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Equal(t, "x", first[0].Concept.Label)

	for i := 0; i < 5; i++ {
		again, err := g.Similar(ctx, []float64{1, 0.1, 0}, 2)
		require.NoError(t, err)
		require.Equal(t, first[0].Concept.ID, again[0].Concept.ID)
		require.Equal(t, first[1].Concept.ID, again[1].Concept.ID)
	}
}

func TestKnowledgeGraph_Paths(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()

	// a -> b -> d and a -> c -> d, plus a long detour a -> b -> c -> d.
	ids := map[string]string{}
	embeddings := [][]float64{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}
	for i, label := range []string{"a", "b", "c", "d"} {
		concept, err := g.UpsertConcept(ctx, &types.Concept{Label: label, Embedding: embeddings[i]})
		require.NoError(t, err)
		ids[label] = concept.ID
	}
	edges := [][2]string{{"a", "b"}, {"b", "d"}, {"a", "c"}, {"c", "d"}, {"b", "c"}}
	for _, e := range edges {
		_, err := g.UpsertRelation(ctx, &types.Relation{SourceID: ids[e[0]], TargetID: ids[e[1]], Type: "leads_to"})
		require.NoError(t, err)
	}

	paths, err := g.Paths(ctx, ids["a"], ids["d"], 3)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	require.Len(t, paths[0], 2, "shortest paths come first")
	require.Len(t, paths[1], 2)
	require.Len(t, paths[2], 3)

	short, err := g.Paths(ctx, ids["a"], ids["d"], 2)
	require.NoError(t, err)
	require.Len(t, short, 2, "depth bound prunes the detour")
}

func TestKnowledgeGraph_Subconcepts(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()

	animal, err := g.UpsertConcept(ctx, &types.Concept{Label: "animal", Embedding: []float64{1, 0, 0}})
	require.NoError(t, err)
	dog, err := g.UpsertConcept(ctx, &types.Concept{Label: "dog", Embedding: []float64{0, 1, 0}})
	require.NoError(t, err)
	cat, err := g.UpsertConcept(ctx, &types.Concept{Label: "cat", Embedding: []float64{0, 0, 1}})
	require.NoError(t, err)

	_, err = g.UpsertRelation(ctx, &types.Relation{SourceID: dog.ID, TargetID: animal.ID, Type: "is_a"})
	require.NoError(t, err)
	_, err = g.UpsertRelation(ctx, &types.Relation{SourceID: cat.ID, TargetID: animal.ID, Type: "subclass_of"})
	require.NoError(t, err)
	// Non-hierarchy edge is ignored.
	_, err = g.UpsertRelation(ctx, &types.Relation{SourceID: animal.ID, TargetID: dog.ID, Type: "includes"})
	require.NoError(t, err)

	subs, err := g.Subconcepts(ctx, "Animal")
	require.NoError(t, err)
	require.Len(t, subs, 2)
}

func TestKnowledgeGraph_Merge(t *testing.T) {
	ctx := context.Background()
	g1 := newTestGraph(t)
	g2 := newTestGraph(t)

	a1, err := g1.UpsertConcept(ctx, &types.Concept{Label: "shared", Embedding: []float64{1, 0}})
	require.NoError(t, err)

	a2, err := g2.UpsertConcept(ctx, &types.Concept{Label: "shared", Embedding: []float64{1, 0}})
	require.NoError(t, err)
	b2, err := g2.UpsertConcept(ctx, &types.Concept{Label: "only in g2", Embedding: []float64{0, 1}})
	require.NoError(t, err)
	_, err = g2.UpsertRelation(ctx, &types.Relation{SourceID: a2.ID, TargetID: b2.ID, Type: "supports", Weight: 2})
	require.NoError(t, err)

	require.NoError(t, g1.Merge(ctx, g2))

	stats, err := g1.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Concepts, "shared concept merged, not duplicated")
	require.Equal(t, 1, stats.Relations)

	merged, err := g1.GetConcept(ctx, a1.ID)
	require.NoError(t, err)
	require.Equal(t, 2, merged.Reinforcements)

	neighbors, err := g1.Neighbors(ctx, a1.ID, "supports")
	require.NoError(t, err)
	require.Len(t, neighbors, 1)
	require.Equal(t, "only in g2", neighbors[0].Label)
}
