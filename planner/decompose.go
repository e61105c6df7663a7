package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/synthmind/memory"
	"github.com/BaSui01/synthmind/tools"
	"go.uber.org/zap"
)

// Goal is what the caller wants planned. The embedding comes from the same
// space the memory tiers use; hard constraints prune candidates before any
// simulation is spent on them.
type Goal struct {
	Statement   string
	Embedding   []float64
	Constraints []Constraint

	// Resources the resulting plan will claim. Used by collaborative
	// planning for conflict resolution.
	Resources []string
}

// Constraint is a hard feasibility rule on a candidate decomposition.
// A zero-value field is inactive.
type Constraint struct {
	// ForbidAction prunes candidates containing the substring in any
	// action. "*" forbids every action.
	ForbidAction string

	// MaxActions prunes candidates with more actions than this.
	MaxActions int
}

// allows reports whether the action sequence satisfies the constraint.
func (c Constraint) allows(actions []string) bool {
	if c.MaxActions > 0 && len(actions) > c.MaxActions {
		return false
	}
	if c.ForbidAction == "" {
		return true
	}
	for _, action := range actions {
		if c.ForbidAction == "*" || strings.Contains(action, c.ForbidAction) {
			return false
		}
	}
	return true
}

// Candidate is one feasible decomposition of a goal into an ordered action
// sequence, annotated with the memory priors that produced it.
type Candidate struct {
	ID      string
	Actions []string

	// EpisodeIDs and ConceptIDs are weak references to the priors.
	EpisodeIDs []string
	ConceptIDs []string

	// PriorReward anchors the rollout reward model; PriorConfidence scales
	// its noise (well-evidenced candidates simulate tighter).
	PriorReward     float64
	PriorConfidence float64
}

// DecomposerConfig configures candidate generation.
type DecomposerConfig struct {
	// RetrieveK is how many episodic priors to ask for (default 5). Each
	// refinement iteration widens the query by one.
	RetrieveK int

	// SimilarK is how many semantic priors to ask for (default 3).
	SimilarK int
}

// DefaultDecomposerConfig returns the stated defaults.
func DefaultDecomposerConfig() DecomposerConfig {
	return DecomposerConfig{RetrieveK: 5, SimilarK: 3}
}

// Decomposer turns a goal into candidate decompositions using read-only
// memory handles. Tool adapters, when configured, enrich the context; a tool
// failure only degrades confidence downstream, it never fails decomposition.
type Decomposer struct {
	episodic *memory.EpisodicMemory
	graph    memory.KnowledgeGraph
	registry *tools.Registry
	config   DecomposerConfig
	logger   *zap.Logger
}

// NewDecomposer creates a decomposer. The registry may be nil.
func NewDecomposer(
	episodic *memory.EpisodicMemory,
	graph memory.KnowledgeGraph,
	registry *tools.Registry,
	config DecomposerConfig,
	logger *zap.Logger,
) *Decomposer {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultDecomposerConfig()
	if config.RetrieveK <= 0 {
		config.RetrieveK = def.RetrieveK
	}
	if config.SimilarK <= 0 {
		config.SimilarK = def.SimilarK
	}
	return &Decomposer{
		episodic: episodic,
		graph:    graph,
		registry: registry,
		config:   config,
		logger:   logger.With(zap.String("component", "decomposer")),
	}
}

// Decompose generates candidates for the goal at the given refinement
// iteration and applies the hard-constraint filter. It returns the feasible
// candidates in deterministic order and the accumulated tool penalty.
func (d *Decomposer) Decompose(ctx context.Context, goal Goal, iteration int) ([]Candidate, float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	var candidates []Candidate

	// Experience priors: each retrieved episode with steps proposes its own
	// action sequence. Later iterations widen the retrieval.
	priors := d.episodic.Retrieve(goal.Embedding, d.config.RetrieveK+iteration)
	for _, hit := range priors {
		ep := hit.Episode
		if len(ep.Steps) == 0 {
			continue
		}
		actions := make([]string, 0, len(ep.Steps))
		for _, step := range ep.Steps {
			actions = append(actions, step.Action)
		}
		candidates = append(candidates, Candidate{
			Actions:         actions,
			EpisodeIDs:      []string{ep.ID},
			PriorReward:     ep.Reward,
			PriorConfidence: ep.Confidence * hit.Similarity,
		})
	}

	// Semantic priors: similar concepts propose a knowledge-driven sequence.
	similar, err := d.graph.Similar(ctx, goal.Embedding, d.config.SimilarK)
	if err != nil {
		return nil, 0, fmt.Errorf("semantic prior lookup: %w", err)
	}
	if len(similar) > 0 {
		actions := make([]string, 0, len(similar))
		conceptIDs := make([]string, 0, len(similar))
		var confidence float64
		for _, hit := range similar {
			actions = append(actions, "apply "+hit.Concept.Label)
			conceptIDs = append(conceptIDs, hit.Concept.ID)
			confidence += hit.Similarity
		}
		candidates = append(candidates, Candidate{
			Actions:         actions,
			ConceptIDs:      conceptIDs,
			PriorReward:     0.5,
			PriorConfidence: clamp01(confidence / float64(len(similar))),
		})
	}

	// Heuristic fallback so a cold memory still yields something to score.
	if goal.Statement != "" {
		candidates = append(candidates, Candidate{
			Actions: []string{
				"gather context for " + goal.Statement,
				"synthesize " + goal.Statement,
				"validate " + goal.Statement,
			},
			PriorReward:     0.5,
			PriorConfidence: 0.2,
		})
	}

	// Tool enrichment is advisory. A successful knowledge lookup proposes a
	// tool-informed candidate carrying the adapter's own confidence; failures
	// surface as a confidence penalty.
	var penalty float64
	if d.registry != nil {
		result, err := d.registry.Query(ctx, tools.Request{
			Capability: tools.CapabilityKnowledge,
			Query:      goal.Statement,
		})
		switch {
		case err != nil:
			d.logger.Debug("knowledge enrichment unavailable", zap.Error(err))
			penalty = 1
		case result.Content != "":
			candidates = append(candidates, Candidate{
				Actions: []string{
					"incorporate " + result.Content,
					"synthesize " + goal.Statement,
					"validate " + goal.Statement,
				},
				PriorReward:     0.5,
				PriorConfidence: clamp01(result.Confidence),
			})
		}
	}

	feasible := candidates[:0]
	for _, candidate := range candidates {
		if satisfiesAll(goal.Constraints, candidate.Actions) {
			feasible = append(feasible, candidate)
		}
	}
	for i := range feasible {
		feasible[i].ID = fmt.Sprintf("candidate-%d", i)
	}

	d.logger.Debug("decomposition finished",
		zap.String("goal", goal.Statement),
		zap.Int("iteration", iteration),
		zap.Int("generated", len(candidates)),
		zap.Int("feasible", len(feasible)))
	return feasible, penalty, nil
}

func satisfiesAll(constraints []Constraint, actions []string) bool {
	for _, constraint := range constraints {
		if !constraint.allows(actions) {
			return false
		}
	}
	return true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
