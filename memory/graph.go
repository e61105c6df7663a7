package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BaSui01/synthmind/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScoredConcept is a similarity hit from the semantic tier.
type ScoredConcept struct {
	Concept    *types.Concept
	Similarity float64
}

// GraphStats summarizes the current graph size.
type GraphStats struct {
	Concepts  int     `json:"concepts"`
	Relations int     `json:"relations"`
	AvgDegree float64 `json:"avg_degree"`
}

// KnowledgeGraph is the semantic tier: consolidated concepts and weighted,
// typed relations. Implementations must be safe for concurrent use and keep
// every query deterministic for a given graph state.
type KnowledgeGraph interface {
	// UpsertConcept merges the concept into the graph. A concept matching an
	// existing one by ID, exact label, or embedding similarity above the
	// configured threshold reinforces that concept (weighted-average
	// embedding, merged attributes) instead of creating a duplicate. The
	// first embedded concept fixes the graph's embedding dimensionality;
	// an upsert with a different dimension fails with VALIDATION.
	UpsertConcept(ctx context.Context, concept *types.Concept) (*types.Concept, error)

	// UpsertRelation merges the relation. An edge with the same
	// (source, target, type) accumulates weight rather than duplicating.
	UpsertRelation(ctx context.Context, relation *types.Relation) (*types.Relation, error)

	// GetConcept returns a copy of the concept, or NOT_FOUND.
	GetConcept(ctx context.Context, id string) (*types.Concept, error)

	// Neighbors returns concepts one hop from id, optionally filtered by
	// relation type. Results are ordered by ID ascending.
	Neighbors(ctx context.Context, id string, relationType string) ([]*types.Concept, error)

	// Similar returns the top-k concepts by cosine similarity, ties by ID
	// ascending.
	Similar(ctx context.Context, embedding []float64, k int) ([]ScoredConcept, error)

	// Paths returns every relation path from one concept to another up to
	// maxDepth hops, shortest first.
	Paths(ctx context.Context, fromID, toID string, maxDepth int) ([][]*types.Relation, error)

	// Subconcepts returns concepts related to the labeled concept through
	// hierarchy edges (is_a, subclass_of), direct children only.
	Subconcepts(ctx context.Context, label string) ([]*types.Concept, error)

	// Concepts and Relations return full copies for snapshots and audits.
	Concepts(ctx context.Context) ([]*types.Concept, error)
	Relations(ctx context.Context) ([]*types.Relation, error)

	// Stats reports graph size.
	Stats(ctx context.Context) (GraphStats, error)
}

// hierarchy edge types tracked by Subconcepts.
var hierarchyRelationTypes = map[string]bool{
	"is_a":        true,
	"subclass_of": true,
}

// KnowledgeGraphConfig configures the in-memory graph.
type KnowledgeGraphConfig struct {
	// LabelSimilarityThreshold is the embedding cosine above which two
	// concepts with different labels are treated as the same concept
	// (default 0.92).
	LabelSimilarityThreshold float64

	// Now is used in tests. Defaults to time.Now.
	Now func() time.Time
}

// DefaultKnowledgeGraphConfig returns the stated defaults.
func DefaultKnowledgeGraphConfig() KnowledgeGraphConfig {
	return KnowledgeGraphConfig{LabelSimilarityThreshold: 0.92}
}

// InMemoryKnowledgeGraph is the adjacency-map implementation of
// KnowledgeGraph. All stored values are deep-copied at the boundary.
type InMemoryKnowledgeGraph struct {
	mu        sync.RWMutex
	concepts  map[string]*types.Concept
	relations map[string]*types.Relation
	// edgeIndex maps source|type|target to the relation ID so repeated
	// assertions accumulate weight on one edge.
	edgeIndex map[string]string
	// outgoing maps concept ID to its outgoing relation IDs.
	outgoing map[string][]string
	// dim is the embedding dimensionality fixed by the first embedded
	// concept; later upserts with a different dimension are rejected.
	dim int

	labelThreshold float64
	now            func() time.Time
	logger         *zap.Logger
}

var _ KnowledgeGraph = (*InMemoryKnowledgeGraph)(nil)

// NewInMemoryKnowledgeGraph creates an empty graph.
func NewInMemoryKnowledgeGraph(config KnowledgeGraphConfig, logger *zap.Logger) *InMemoryKnowledgeGraph {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.LabelSimilarityThreshold <= 0 {
		config.LabelSimilarityThreshold = DefaultKnowledgeGraphConfig().LabelSimilarityThreshold
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &InMemoryKnowledgeGraph{
		concepts:       make(map[string]*types.Concept),
		relations:      make(map[string]*types.Relation),
		edgeIndex:      make(map[string]string),
		outgoing:       make(map[string][]string),
		labelThreshold: config.LabelSimilarityThreshold,
		now:            now,
		logger:         logger.With(zap.String("component", "knowledge_graph")),
	}
}

// UpsertConcept merges or inserts a concept. See KnowledgeGraph.
func (g *InMemoryKnowledgeGraph) UpsertConcept(ctx context.Context, concept *types.Concept) (*types.Concept, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := concept.Validate(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if n := len(concept.Embedding); n > 0 {
		if g.dim == 0 {
			g.dim = n
		} else if n != g.dim {
			return nil, types.NewValidationError(fmt.Sprintf("concept embedding has %d dimensions, graph uses %d", n, g.dim))
		}
	}

	target := g.matchLocked(concept)
	now := g.now()
	if target != nil {
		target.Embedding = weightedAverage(target.Embedding, concept.Embedding, target.Reinforcements)
		target.Reinforcements++
		target.UpdatedAt = now
		if target.Attributes == nil && len(concept.Attributes) > 0 {
			target.Attributes = make(map[string]any, len(concept.Attributes))
		}
		for k, v := range concept.Attributes {
			target.Attributes[k] = v
		}
		g.logger.Debug("concept reinforced",
			zap.String("id", target.ID),
			zap.Int("reinforcements", target.Reinforcements))
		return target.Clone(), nil
	}

	stored := concept.Clone()
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	stored.Reinforcements = 1
	stored.CreatedAt = now
	stored.UpdatedAt = now
	g.concepts[stored.ID] = stored
	return stored.Clone(), nil
}

// matchLocked finds the concept an upsert should merge into: by ID, then by
// exact case-insensitive label, then by embedding similarity above the
// threshold (best match, ties by ID ascending).
func (g *InMemoryKnowledgeGraph) matchLocked(concept *types.Concept) *types.Concept {
	if concept.ID != "" {
		if existing, ok := g.concepts[concept.ID]; ok {
			return existing
		}
	}
	label := strings.ToLower(strings.TrimSpace(concept.Label))
	var best *types.Concept
	var bestScore float64
	for _, existing := range g.concepts {
		if strings.ToLower(strings.TrimSpace(existing.Label)) == label {
			return existing
		}
		score := cosineSimilarity(concept.Embedding, existing.Embedding)
		if score < g.labelThreshold {
			continue
		}
		if best == nil || score > bestScore || (score == bestScore && existing.ID < best.ID) {
			best = existing
			bestScore = score
		}
	}
	return best
}

// UpsertRelation merges or inserts a relation. See KnowledgeGraph.
func (g *InMemoryKnowledgeGraph) UpsertRelation(ctx context.Context, relation *types.Relation) (*types.Relation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := relation.Validate(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.concepts[relation.SourceID]; !ok {
		return nil, types.NewNotFoundError("concept", relation.SourceID)
	}
	if _, ok := g.concepts[relation.TargetID]; !ok {
		return nil, types.NewNotFoundError("concept", relation.TargetID)
	}

	now := g.now()
	key := relation.SourceID + "|" + relation.Type + "|" + relation.TargetID
	if id, ok := g.edgeIndex[key]; ok {
		existing := g.relations[id]
		weight := relation.Weight
		if weight <= 0 {
			weight = 1
		}
		existing.Weight += weight
		existing.UpdatedAt = now
		snapshot := *existing
		return &snapshot, nil
	}

	stored := *relation
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.Weight <= 0 {
		stored.Weight = 1
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now
	g.relations[stored.ID] = &stored
	g.edgeIndex[key] = stored.ID
	g.outgoing[stored.SourceID] = append(g.outgoing[stored.SourceID], stored.ID)
	snapshot := stored
	return &snapshot, nil
}

// GetConcept returns a copy of the concept, or NOT_FOUND.
func (g *InMemoryKnowledgeGraph) GetConcept(ctx context.Context, id string) (*types.Concept, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	concept, ok := g.concepts[id]
	if !ok {
		return nil, types.NewNotFoundError("concept", id)
	}
	return concept.Clone(), nil
}

// Neighbors returns one-hop targets of id, optionally filtered by relation
// type, ordered by ID ascending.
func (g *InMemoryKnowledgeGraph) Neighbors(ctx context.Context, id string, relationType string) ([]*types.Concept, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.concepts[id]; !ok {
		return nil, types.NewNotFoundError("concept", id)
	}
	seen := make(map[string]bool)
	var out []*types.Concept
	for _, relID := range g.outgoing[id] {
		rel := g.relations[relID]
		if relationType != "" && rel.Type != relationType {
			continue
		}
		if seen[rel.TargetID] {
			continue
		}
		seen[rel.TargetID] = true
		out = append(out, g.concepts[rel.TargetID].Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Similar returns the top-k concepts by cosine similarity, ties by ID
// ascending.
func (g *InMemoryKnowledgeGraph) Similar(ctx context.Context, embedding []float64, k int) ([]ScoredConcept, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	g.mu.RLock()
	scored := make([]ScoredConcept, 0, len(g.concepts))
	for _, concept := range g.concepts {
		scored = append(scored, ScoredConcept{
			Concept:    concept.Clone(),
			Similarity: cosineSimilarity(embedding, concept.Embedding),
		})
	}
	g.mu.RUnlock()

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].Concept.ID < scored[j].Concept.ID
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Paths returns every relation path from fromID to toID up to maxDepth hops
// via breadth-first search, shortest paths first. Cycles are not revisited
// within a path.
func (g *InMemoryKnowledgeGraph) Paths(ctx context.Context, fromID, toID string, maxDepth int) ([][]*types.Relation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxDepth <= 0 {
		maxDepth = 4
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.concepts[fromID]; !ok {
		return nil, types.NewNotFoundError("concept", fromID)
	}
	if _, ok := g.concepts[toID]; !ok {
		return nil, types.NewNotFoundError("concept", toID)
	}

	type frontier struct {
		node string
		path []string // relation IDs
	}
	queue := []frontier{{node: fromID}}
	var paths [][]*types.Relation

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.node == toID && len(cur.path) > 0 {
			path := make([]*types.Relation, len(cur.path))
			for i, relID := range cur.path {
				snapshot := *g.relations[relID]
				path[i] = &snapshot
			}
			paths = append(paths, path)
			continue
		}
		if len(cur.path) >= maxDepth {
			continue
		}
		visited := make(map[string]bool, len(cur.path)+1)
		visited[fromID] = true
		for _, relID := range cur.path {
			visited[g.relations[relID].TargetID] = true
		}
		relIDs := append([]string(nil), g.outgoing[cur.node]...)
		sort.Strings(relIDs)
		for _, relID := range relIDs {
			rel := g.relations[relID]
			if visited[rel.TargetID] {
				continue
			}
			next := append(append([]string(nil), cur.path...), relID)
			queue = append(queue, frontier{node: rel.TargetID, path: next})
		}
	}
	return paths, nil
}

// Subconcepts returns direct children of the labeled concept through
// hierarchy edges (edges whose target is the parent).
func (g *InMemoryKnowledgeGraph) Subconcepts(ctx context.Context, label string) ([]*types.Concept, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	want := strings.ToLower(strings.TrimSpace(label))
	var parentID string
	for _, concept := range g.concepts {
		if strings.ToLower(strings.TrimSpace(concept.Label)) == want {
			parentID = concept.ID
			break
		}
	}
	if parentID == "" {
		return nil, types.NewNotFoundError("concept", label)
	}

	seen := make(map[string]bool)
	var out []*types.Concept
	for _, rel := range g.relations {
		if rel.TargetID != parentID || !hierarchyRelationTypes[rel.Type] {
			continue
		}
		if seen[rel.SourceID] {
			continue
		}
		seen[rel.SourceID] = true
		out = append(out, g.concepts[rel.SourceID].Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Concepts returns copies of all concepts, ordered by ID ascending.
func (g *InMemoryKnowledgeGraph) Concepts(ctx context.Context) ([]*types.Concept, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*types.Concept, 0, len(g.concepts))
	for _, concept := range g.concepts {
		out = append(out, concept.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Relations returns copies of all relations, ordered by ID ascending.
func (g *InMemoryKnowledgeGraph) Relations(ctx context.Context) ([]*types.Relation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*types.Relation, 0, len(g.relations))
	for _, rel := range g.relations {
		snapshot := *rel
		out = append(out, &snapshot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Stats reports graph size.
func (g *InMemoryKnowledgeGraph) Stats(ctx context.Context) (GraphStats, error) {
	if err := ctx.Err(); err != nil {
		return GraphStats{}, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	stats := GraphStats{Concepts: len(g.concepts), Relations: len(g.relations)}
	if stats.Concepts > 0 {
		stats.AvgDegree = float64(stats.Relations) / float64(stats.Concepts)
	}
	return stats, nil
}

// Restore replaces the graph contents with the given concepts and relations,
// preserving IDs, weights, and reinforcement counts. Used only by snapshot
// loading; inputs are deep-copied.
func (g *InMemoryKnowledgeGraph) Restore(concepts []*types.Concept, relations []*types.Relation) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.concepts = make(map[string]*types.Concept, len(concepts))
	g.relations = make(map[string]*types.Relation, len(relations))
	g.edgeIndex = make(map[string]string, len(relations))
	g.outgoing = make(map[string][]string, len(concepts))

	g.dim = 0
	for _, concept := range concepts {
		if g.dim == 0 && len(concept.Embedding) > 0 {
			g.dim = len(concept.Embedding)
		}
		g.concepts[concept.ID] = concept.Clone()
	}
	for _, rel := range relations {
		snapshot := *rel
		g.relations[snapshot.ID] = &snapshot
		g.edgeIndex[snapshot.SourceID+"|"+snapshot.Type+"|"+snapshot.TargetID] = snapshot.ID
		g.outgoing[snapshot.SourceID] = append(g.outgoing[snapshot.SourceID], snapshot.ID)
	}
}

// Merge folds another in-memory graph into this one. Concepts merge under
// the usual upsert rules; relation weights accumulate. The other graph is
// not modified.
func (g *InMemoryKnowledgeGraph) Merge(ctx context.Context, other *InMemoryKnowledgeGraph) error {
	if other == nil {
		return nil
	}
	concepts, err := other.Concepts(ctx)
	if err != nil {
		return err
	}
	relations, err := other.Relations(ctx)
	if err != nil {
		return err
	}

	// Remap other-graph concept IDs to whatever our upsert merged them into,
	// so relations land on the right nodes.
	idMap := make(map[string]string, len(concepts))
	for _, concept := range concepts {
		merged, err := g.UpsertConcept(ctx, concept)
		if err != nil {
			return err
		}
		idMap[concept.ID] = merged.ID
	}
	for _, rel := range relations {
		mapped := *rel
		mapped.ID = ""
		mapped.SourceID = idMap[rel.SourceID]
		mapped.TargetID = idMap[rel.TargetID]
		if _, err := g.UpsertRelation(ctx, &mapped); err != nil {
			return err
		}
	}
	return nil
}
