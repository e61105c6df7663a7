package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BaSui01/synthmind/internal/metrics"
	"github.com/BaSui01/synthmind/types"
	"go.uber.org/zap"
)

// MemoryWriter is the serialized mutation path offered to planners. All
// writes funnel through the coordinator so the tiers see a single logical
// writer; planners otherwise hold read handles only.
type MemoryWriter interface {
	// AppendEpisode records a finished experience into episodic memory.
	AppendEpisode(ctx context.Context, episode *types.Episode) (*types.Episode, error)
}

// CoordinatorConfig configures the tier coordinator.
type CoordinatorConfig struct {
	// SalienceFloor is the minimum salience an evicted working item needs to
	// be promoted into episodic memory instead of discarded (default 0.3).
	SalienceFloor float64

	// Now is used in tests. Defaults to time.Now.
	Now func() time.Time
}

// DefaultCoordinatorConfig returns the stated defaults.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{SalienceFloor: 0.3}
}

// TickReport summarizes one coordinator pass for logging and tests.
type TickReport struct {
	Drained      int
	Admitted     int
	Promoted     int
	Discarded    int
	Consolidated int
}

// Coordinator moves information between tiers. It owns every mutation of the
// working, episodic, and semantic tiers; Tick runs the full pipeline
// (drain sensory, admit salient items, promote evictions, consolidate) and is
// driven externally, the coordinator holds no timers of its own.
type Coordinator struct {
	mu sync.Mutex

	sensory  *SensoryBuffer
	working  *WorkingMemory
	episodic *EpisodicMemory
	graph    KnowledgeGraph
	embedder Embedder

	// evicted collects items pushed out of working memory during Admit so
	// the tick can decide promotion after the admission batch completes.
	evictedMu sync.Mutex
	evicted   []WorkingItem

	floor     float64
	now       func() time.Time
	collector *metrics.Collector
	logger    *zap.Logger
}

var _ MemoryWriter = (*Coordinator)(nil)

// NewCoordinator wires the tiers together and installs itself as the working
// memory's eviction observer. The embedder is optional; when present it fills
// in missing text-observation embeddings. The collector may be nil.
func NewCoordinator(
	config CoordinatorConfig,
	sensory *SensoryBuffer,
	working *WorkingMemory,
	episodic *EpisodicMemory,
	graph KnowledgeGraph,
	embedder Embedder,
	collector *metrics.Collector,
	logger *zap.Logger,
) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.SalienceFloor <= 0 {
		config.SalienceFloor = DefaultCoordinatorConfig().SalienceFloor
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	c := &Coordinator{
		sensory:   sensory,
		working:   working,
		episodic:  episodic,
		graph:     graph,
		embedder:  embedder,
		floor:     config.SalienceFloor,
		now:       now,
		collector: collector,
		logger:    logger.With(zap.String("component", "memory_coordinator")),
	}
	working.SetEvictionObserver(c.onEviction)
	return c
}

func (c *Coordinator) onEviction(item WorkingItem) {
	c.evictedMu.Lock()
	c.evicted = append(c.evicted, item)
	c.evictedMu.Unlock()
	c.collector.RecordEviction()
}

// Tick runs one coordination pass: drain the sensory buffer, admit drained
// observations into working memory, promote capacity evictions above the
// salience floor into episodic memory, then consolidate episodic clusters
// into the knowledge graph. Ticks are serialized; concurrent calls queue.
func (c *Coordinator) Tick(ctx context.Context) (TickReport, error) {
	if err := ctx.Err(); err != nil {
		return TickReport{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var report TickReport

	observations := c.sensory.Take(0)
	report.Drained = len(observations)

	for _, obs := range observations {
		item, err := c.itemFromObservation(ctx, obs)
		if err != nil {
			c.logger.Warn("observation dropped", zap.String("id", obs.ID), zap.Error(err))
			continue
		}
		if err := c.working.Admit(item); err != nil {
			if types.IsFatal(err) {
				return report, err
			}
			c.logger.Warn("admission rejected", zap.String("id", item.ID), zap.Error(err))
			continue
		}
		report.Admitted++
		c.collector.RecordAdmission()
	}

	promoted, discarded, err := c.promoteEvictedLocked()
	if err != nil {
		return report, err
	}
	report.Promoted = promoted
	report.Discarded = discarded

	consolidated, err := c.consolidateLocked(ctx)
	if err != nil {
		return report, err
	}
	report.Consolidated = consolidated

	if stats, err := c.graph.Stats(ctx); err == nil {
		c.collector.RecordGraphSize(stats.Concepts, stats.Relations)
	}

	c.logger.Debug("tick completed",
		zap.Int("drained", report.Drained),
		zap.Int("admitted", report.Admitted),
		zap.Int("promoted", report.Promoted),
		zap.Int("consolidated", report.Consolidated))
	return report, nil
}

// itemFromObservation converts a drained observation into a working item,
// filling in a missing text embedding through the embedder when available.
func (c *Coordinator) itemFromObservation(ctx context.Context, obs types.Observation) (WorkingItem, error) {
	embedding := obs.Embedding
	if len(embedding) == 0 && obs.Modality == types.ModalityText && c.embedder != nil {
		var err error
		embedding, err = c.embedder.Embed(ctx, string(obs.Payload))
		if err != nil {
			return WorkingItem{}, fmt.Errorf("embed observation: %w", err)
		}
	}

	content := string(obs.Payload)
	if obs.Modality != types.ModalityText {
		content = fmt.Sprintf("%s observation from %s", obs.Modality, obs.Source)
	}

	metadata := map[string]any{
		"modality": string(obs.Modality),
	}
	if obs.Source != "" {
		metadata["source"] = obs.Source
	}

	return WorkingItem{
		ID:        obs.ID,
		Content:   content,
		Embedding: embedding,
		Salience:  obs.Salience(),
		Metadata:  metadata,
	}, nil
}

// promoteEvictedLocked drains the eviction queue. Items at or above the
// salience floor become episodes; the rest are forgotten.
func (c *Coordinator) promoteEvictedLocked() (promoted, discarded int, err error) {
	c.evictedMu.Lock()
	evicted := c.evicted
	c.evicted = nil
	c.evictedMu.Unlock()

	for _, item := range evicted {
		if item.Salience < c.floor {
			discarded++
			c.collector.RecordPromotion("discarded")
			continue
		}
		episode := &types.Episode{
			GoalContext: item.Content,
			Reward:      item.Salience,
			Confidence:  item.Salience,
			Embedding:   item.Embedding,
			Metadata:    map[string]any{"origin": "working_memory"},
		}
		if _, err := c.episodic.Append(episode); err != nil {
			return promoted, discarded, fmt.Errorf("promote evicted item %s: %w", item.ID, err)
		}
		promoted++
		c.collector.RecordPromotion("promoted")
		c.collector.RecordEpisodeAppended()
	}
	return promoted, discarded, nil
}

// consolidateLocked folds episodic clusters into the knowledge graph. The
// pass is idempotent in structure: re-running without new episodes merges
// into the same concepts and reinforces weights, it never duplicates nodes
// or edges.
func (c *Coordinator) consolidateLocked(ctx context.Context) (int, error) {
	clusters := c.episodic.ConsolidationCandidates()
	consolidated := 0
	for _, cluster := range clusters {
		if err := c.consolidateCluster(ctx, cluster); err != nil {
			return consolidated, err
		}
		consolidated++
		c.collector.RecordConsolidation()
	}
	return consolidated, nil
}

func (c *Coordinator) consolidateCluster(ctx context.Context, cluster []*types.Episode) error {
	embeddings := make([][]float64, 0, len(cluster))
	episodeIDs := make([]string, 0, len(cluster))
	var rewardSum float64
	for _, ep := range cluster {
		embeddings = append(embeddings, ep.Embedding)
		episodeIDs = append(episodeIDs, ep.ID)
		rewardSum += ep.Reward
	}

	// The originating episodes stay in episodic memory untouched; the concept
	// cross-references them by ID.
	goal, err := c.graph.UpsertConcept(ctx, &types.Concept{
		Label:     cluster[0].GoalContext,
		Embedding: meanVector(embeddings),
		Attributes: map[string]any{
			"episode_count": len(cluster),
			"episode_ids":   episodeIDs,
			"mean_reward":   rewardSum / float64(len(cluster)),
		},
	})
	if err != nil {
		return fmt.Errorf("consolidate goal concept: %w", err)
	}

	// Each distinct action observed in the cluster becomes a concept linked
	// to the goal; repeated occurrences accumulate edge weight.
	actionCounts := make(map[string]int)
	var actionOrder []string
	for _, ep := range cluster {
		for _, step := range ep.Steps {
			if step.Action == "" {
				continue
			}
			if actionCounts[step.Action] == 0 {
				actionOrder = append(actionOrder, step.Action)
			}
			actionCounts[step.Action]++
		}
	}
	for _, action := range actionOrder {
		actionConcept, err := c.graph.UpsertConcept(ctx, &types.Concept{Label: action})
		if err != nil {
			return fmt.Errorf("consolidate action concept: %w", err)
		}
		_, err = c.graph.UpsertRelation(ctx, &types.Relation{
			SourceID: actionConcept.ID,
			TargetID: goal.ID,
			Type:     "contributes_to",
			Weight:   float64(actionCounts[action]),
		})
		if err != nil {
			return fmt.Errorf("consolidate relation: %w", err)
		}
	}
	return nil
}

// AppendEpisode implements MemoryWriter. It serializes planner feedback with
// the tick pipeline so episodic memory keeps a single writer.
func (c *Coordinator) AppendEpisode(ctx context.Context, episode *types.Episode) (*types.Episode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	stored, err := c.episodic.Append(episode)
	if err != nil {
		return nil, err
	}
	c.collector.RecordEpisodeAppended()
	return stored, nil
}

// MemoryStats aggregates the size of every tier.
type MemoryStats struct {
	Sensory  int        `json:"sensory"`
	Working  int        `json:"working"`
	Episodes int        `json:"episodes"`
	Graph    GraphStats `json:"graph"`
}

// Stats reports the current size of each tier.
func (c *Coordinator) Stats(ctx context.Context) (MemoryStats, error) {
	graphStats, err := c.graph.Stats(ctx)
	if err != nil {
		return MemoryStats{}, err
	}
	return MemoryStats{
		Sensory:  c.sensory.Len(),
		Working:  c.working.Len(),
		Episodes: c.episodic.Len(),
		Graph:    graphStats,
	}, nil
}
