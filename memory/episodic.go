package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/BaSui01/synthmind/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EpisodicMemoryConfig configures the episodic store.
type EpisodicMemoryConfig struct {
	// RetrievalThreshold excludes episodes below this confidence from
	// Retrieve results. Low-confidence episodes stay stored (default 0.8).
	RetrievalThreshold float64

	// ConsolidationFanIn is the cluster size at which a group of similar
	// episodes becomes a consolidation candidate (default 5).
	ConsolidationFanIn int

	// ConsolidationSimilarity is the cosine floor for clustering episodes
	// into the same consolidation candidate (default 0.85).
	ConsolidationSimilarity float64

	// Now is used in tests. Defaults to time.Now.
	Now func() time.Time
}

// DefaultEpisodicMemoryConfig returns the stated defaults.
func DefaultEpisodicMemoryConfig() EpisodicMemoryConfig {
	return EpisodicMemoryConfig{
		RetrievalThreshold:      0.8,
		ConsolidationFanIn:      5,
		ConsolidationSimilarity: 0.85,
	}
}

// ScoredEpisode is a retrieval hit with its similarity to the query.
type ScoredEpisode struct {
	Episode    *types.Episode
	Similarity float64
}

// EpisodicMemory is the append-only experience log. Append is the sole
// mutator; stored episodes are deep-copied in and out and never change.
type EpisodicMemory struct {
	mu       sync.RWMutex
	episodes []*types.Episode

	threshold  float64
	fanIn      int
	similarity float64
	now        func() time.Time
	logger     *zap.Logger
}

// NewEpisodicMemory creates an episodic store.
func NewEpisodicMemory(config EpisodicMemoryConfig, logger *zap.Logger) *EpisodicMemory {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultEpisodicMemoryConfig()
	if config.RetrievalThreshold <= 0 {
		config.RetrievalThreshold = def.RetrievalThreshold
	}
	if config.ConsolidationFanIn <= 0 {
		config.ConsolidationFanIn = def.ConsolidationFanIn
	}
	if config.ConsolidationSimilarity <= 0 {
		config.ConsolidationSimilarity = def.ConsolidationSimilarity
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &EpisodicMemory{
		threshold:  config.RetrievalThreshold,
		fanIn:      config.ConsolidationFanIn,
		similarity: config.ConsolidationSimilarity,
		now:        now,
		logger:     logger.With(zap.String("component", "episodic_memory")),
	}
}

// Append validates and stores a copy of the episode, stamping ID and creation
// time when absent. This is the only mutation episodic memory supports.
func (m *EpisodicMemory) Append(episode *types.Episode) (*types.Episode, error) {
	if err := episode.Validate(); err != nil {
		return nil, err
	}
	stored := episode.Clone()
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = m.now()
	}

	m.mu.Lock()
	m.episodes = append(m.episodes, stored)
	total := len(m.episodes)
	m.mu.Unlock()

	m.logger.Debug("episode appended",
		zap.String("id", stored.ID),
		zap.Float64("confidence", stored.Confidence),
		zap.Int("total", total))
	return stored.Clone(), nil
}

// Retrieve returns the top-k episodes by cosine similarity to the query
// embedding, ties broken by recency descending, then ID ascending. Episodes
// below the retrieval confidence threshold are filtered out so they never
// feed planner priors.
func (m *EpisodicMemory) Retrieve(queryEmbedding []float64, k int) []ScoredEpisode {
	if k <= 0 {
		return nil
	}

	m.mu.RLock()
	scored := make([]ScoredEpisode, 0, len(m.episodes))
	for _, ep := range m.episodes {
		if ep.Confidence < m.threshold {
			continue
		}
		scored = append(scored, ScoredEpisode{
			Episode:    ep.Clone(),
			Similarity: cosineSimilarity(queryEmbedding, ep.Embedding),
		})
	}
	m.mu.RUnlock()

	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if !a.Episode.CreatedAt.Equal(b.Episode.CreatedAt) {
			return a.Episode.CreatedAt.After(b.Episode.CreatedAt)
		}
		return a.Episode.ID < b.Episode.ID
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// Get returns a copy of the episode with the given id.
func (m *EpisodicMemory) Get(id string) (*types.Episode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ep := range m.episodes {
		if ep.ID == id {
			return ep.Clone(), nil
		}
	}
	return nil, types.NewNotFoundError("episode", id)
}

// All returns copies of every stored episode in append order, including ones
// below the retrieval threshold. This is the audit path.
func (m *EpisodicMemory) All() []*types.Episode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.Episode, len(m.episodes))
	for i, ep := range m.episodes {
		out[i] = ep.Clone()
	}
	return out
}

// Len reports the number of stored episodes.
func (m *EpisodicMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.episodes)
}

// Restore replaces the store contents with the given episodes, preserving
// IDs and timestamps. Used only by snapshot loading.
func (m *EpisodicMemory) Restore(episodes []*types.Episode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.episodes = make([]*types.Episode, len(episodes))
	for i, ep := range episodes {
		m.episodes[i] = ep.Clone()
	}
}

// ConsolidationCandidates groups episodes whose embeddings are mutually
// similar to a cluster seed and returns the clusters that reached the
// configured fan-in. Clustering is greedy over append order, so the result
// is deterministic for a given store state.
func (m *EpisodicMemory) ConsolidationCandidates() [][]*types.Episode {
	m.mu.RLock()
	defer m.mu.RUnlock()

	assigned := make([]bool, len(m.episodes))
	var clusters [][]*types.Episode
	for i, seed := range m.episodes {
		if assigned[i] || len(seed.Embedding) == 0 {
			continue
		}
		cluster := []*types.Episode{seed.Clone()}
		assigned[i] = true
		for j := i + 1; j < len(m.episodes); j++ {
			if assigned[j] {
				continue
			}
			if cosineSimilarity(seed.Embedding, m.episodes[j].Embedding) >= m.similarity {
				cluster = append(cluster, m.episodes[j].Clone())
				assigned[j] = true
			}
		}
		if len(cluster) >= m.fanIn {
			clusters = append(clusters, cluster)
		}
	}
	return clusters
}
