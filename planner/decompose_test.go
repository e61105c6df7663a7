package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/BaSui01/synthmind/memory"
	"github.com/BaSui01/synthmind/tools"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newDecomposerFixture(t *testing.T, registry *tools.Registry) *Decomposer {
	t.Helper()
	logger := zaptest.NewLogger(t)
	episodic := memory.NewEpisodicMemory(memory.DefaultEpisodicMemoryConfig(), logger)
	graph := memory.NewInMemoryKnowledgeGraph(memory.DefaultKnowledgeGraphConfig(), logger)
	return NewDecomposer(episodic, graph, registry, DefaultDecomposerConfig(), logger)
}

// A bound knowledge adapter contributes its answer as a candidate and its
// self-reported confidence as that candidate's prior.
func TestDecomposer_KnowledgeResultBecomesCandidate(t *testing.T) {
	registry := tools.NewRegistry(tools.DefaultRegistryConfig(), nil, zaptest.NewLogger(t))
	require.NoError(t, registry.Register(tools.CapabilityKnowledge,
		tools.AdapterFunc(func(ctx context.Context, req tools.Request) (tools.Result, error) {
			require.Equal(t, "synthesize survey", req.Query)
			return tools.Result{Content: "prior work on survey synthesis", Confidence: 0.8}, nil
		})))

	d := newDecomposerFixture(t, registry)
	candidates, penalty, err := d.Decompose(context.Background(), testGoal(), 0)
	require.NoError(t, err)
	require.Zero(t, penalty)

	var enriched *Candidate
	for i := range candidates {
		if candidates[i].Actions[0] == "incorporate prior work on survey synthesis" {
			enriched = &candidates[i]
		}
	}
	require.NotNil(t, enriched, "tool answer feeds a candidate")
	require.Equal(t, 0.8, enriched.PriorConfidence)
}

func TestDecomposer_ToolFailureOnlyPenalizes(t *testing.T) {
	registry := tools.NewRegistry(tools.DefaultRegistryConfig(), nil, zaptest.NewLogger(t))
	require.NoError(t, registry.Register(tools.CapabilityKnowledge,
		tools.AdapterFunc(func(ctx context.Context, req tools.Request) (tools.Result, error) {
			return tools.Result{}, tools.NewToolError("backend down", errors.New("dial refused"))
		})))

	d := newDecomposerFixture(t, registry)
	candidates, penalty, err := d.Decompose(context.Background(), testGoal(), 0)
	require.NoError(t, err, "tool failure never fails decomposition")
	require.Equal(t, 1.0, penalty)

	// Only the heuristic fallback remains on cold memory.
	require.Len(t, candidates, 1)
	require.Contains(t, candidates[0].Actions[0], "gather context")
}

func TestDecomposer_UnboundCapabilityPenalizes(t *testing.T) {
	registry := tools.NewRegistry(tools.DefaultRegistryConfig(), nil, zaptest.NewLogger(t))

	d := newDecomposerFixture(t, registry)
	_, penalty, err := d.Decompose(context.Background(), testGoal(), 0)
	require.NoError(t, err)
	require.Equal(t, 1.0, penalty)
}
