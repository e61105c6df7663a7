package planner

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/BaSui01/synthmind/memory"
	"github.com/BaSui01/synthmind/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type plannerFixture struct {
	episodic *memory.EpisodicMemory
	graph    *memory.InMemoryKnowledgeGraph
	coord    *memory.Coordinator
	planner  *Planner
}

func newPlannerFixture(t *testing.T, config Config) *plannerFixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	sensory := memory.NewSensoryBuffer(memory.DefaultSensoryBufferConfig(), logger)
	working := memory.NewWorkingMemory(memory.DefaultWorkingMemoryConfig(), logger)
	episodic := memory.NewEpisodicMemory(memory.DefaultEpisodicMemoryConfig(), logger)
	graph := memory.NewInMemoryKnowledgeGraph(memory.DefaultKnowledgeGraphConfig(), logger)
	coord := memory.NewCoordinator(memory.DefaultCoordinatorConfig(), sensory, working, episodic, graph, nil, nil, logger)

	decomposer := NewDecomposer(episodic, graph, nil, DefaultDecomposerConfig(), logger)
	if config.Seed == 0 {
		config.Seed = 42
	}
	return &plannerFixture{
		episodic: episodic,
		graph:    graph,
		coord:    coord,
		planner:  NewPlanner(config, decomposer, nil, coord, nil, logger),
	}
}

// seedPriors stores high-confidence experience close to the goal embedding
// so planning has strong priors to anchor on.
func (f *plannerFixture) seedPriors(t *testing.T, ctx context.Context, n int, reward float64) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := f.coord.AppendEpisode(ctx, &types.Episode{
			GoalContext: "synthesize survey",
			Reward:      reward,
			Confidence:  0.95,
			Embedding:   []float64{1, 0.001 * float64(i)},
			Steps: []types.Step{
				{State: "start", Action: "collect sources", Outcome: "ok"},
				{State: "collected", Action: "draft summary", Outcome: "ok"},
			},
		})
		require.NoError(t, err)
	}
}

func testGoal() Goal {
	return Goal{
		Statement: "synthesize survey",
		Embedding: []float64{1, 0},
	}
}

func TestPlanner_CommitsWithStrongPriors(t *testing.T) {
	f := newPlannerFixture(t, Config{Simulations: 200})
	ctx := context.Background()
	f.seedPriors(t, ctx, 3, 0.9)

	plan, err := f.planner.Plan(ctx, testGoal())
	require.NoError(t, err)
	require.Equal(t, StatusCommitted, plan.Status)
	require.GreaterOrEqual(t, plan.Confidence, 0.7)
	require.NotNil(t, plan.Root)
	require.NotEmpty(t, plan.Root.Children)
	require.Equal(t, "collect sources", plan.Root.Children[0].Action)
	require.NotEmpty(t, plan.Root.EpisodeIDs, "committed plan references its priors by id")
}

func TestPlanner_FeedbackEpisodeAppended(t *testing.T) {
	f := newPlannerFixture(t, Config{Simulations: 200})
	ctx := context.Background()
	f.seedPriors(t, ctx, 2, 0.9)
	before := f.episodic.Len()

	plan, err := f.planner.Plan(ctx, testGoal())
	require.NoError(t, err)
	require.True(t, plan.Terminal())

	require.Equal(t, before+1, f.episodic.Len())
	episodes := f.episodic.All()
	feedback := episodes[len(episodes)-1]
	require.Equal(t, plan.ID, feedback.PlanID)
	require.Equal(t, plan.Goal, feedback.GoalContext)
}

// Unsatisfiable hard constraints: zero feasible candidates, no rollout spent,
// terminal failed plan with PlanningExhausted.
func TestPlanner_UnsatisfiableConstraintsFailWithoutSimulation(t *testing.T) {
	f := newPlannerFixture(t, Config{Simulations: 1000})
	ctx := context.Background()
	f.seedPriors(t, ctx, 3, 0.9)

	rollouts := 0
	f.planner.evaluator = rolloutFunc(func(rng *rand.Rand, c *Candidate) float64 {
		rollouts++
		return 1
	})

	goal := testGoal()
	goal.Constraints = []Constraint{{ForbidAction: "*"}}

	plan, err := f.planner.Plan(ctx, goal)
	require.NoError(t, err, "exhaustion is a plan outcome, not an error")
	require.Equal(t, StatusFailed, plan.Status)
	require.Equal(t, ReasonPlanningExhausted, plan.Reason)
	require.Equal(t, []PlanStatus{StatusDraft, StatusFailed}, plan.History)
	require.Zero(t, rollouts, "infeasible candidates are never simulated")
}

type rolloutFunc func(rng *rand.Rand, c *Candidate) float64

func (f rolloutFunc) Rollout(rng *rand.Rand, c *Candidate) float64 { return f(rng, c) }

func TestPlanner_ExhaustsIterationsBelowThreshold(t *testing.T) {
	f := newPlannerFixture(t, Config{Simulations: 100, MaxIterations: 3, ConfidenceThreshold: 0.99})
	ctx := context.Background()
	f.seedPriors(t, ctx, 2, 0.4)

	plan, err := f.planner.Plan(ctx, testGoal())
	require.NoError(t, err)
	require.Equal(t, StatusFailed, plan.Status)
	require.Equal(t, ReasonPlanningExhausted, plan.Reason)
	require.Equal(t, 3, plan.Iterations)
	require.Equal(t,
		[]PlanStatus{StatusDraft, StatusSimulated, StatusRefined, StatusRefined, StatusFailed},
		plan.History)
	require.NotNil(t, plan.Root, "best candidate is kept for post-mortem")
}

// Fixed seed and identical memory state: repeated runs select the same plan
// with the same confidence.
func TestPlanner_ReproducibleUnderFixedSeed(t *testing.T) {
	ctx := context.Background()

	run := func() *Plan {
		f := newPlannerFixture(t, Config{Simulations: 1000, Seed: 7, ConfidenceThreshold: 0.7})
		f.seedPriors(t, ctx, 3, 0.85)
		plan, err := f.planner.Plan(ctx, testGoal())
		require.NoError(t, err)
		return plan
	}

	first := run()
	for i := 0; i < 3; i++ {
		again := run()
		require.Equal(t, first.Status, again.Status)
		require.Equal(t, first.Confidence, again.Confidence)
		require.Equal(t, actionsOf(first), actionsOf(again))
	}
}

func actionsOf(p *Plan) []string {
	if p.Root == nil {
		return nil
	}
	out := make([]string, 0, len(p.Root.Children))
	for _, child := range p.Root.Children {
		out = append(out, child.Action)
	}
	return out
}

func TestPlanner_CancellationReturnsErrorWithoutFeedback(t *testing.T) {
	f := newPlannerFixture(t, Config{Simulations: 100})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	before := f.episodic.Len()

	_, err := f.planner.Plan(ctx, testGoal())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, before, f.episodic.Len(), "no partial episode on cancellation")
}

func TestPlanner_TimeoutFailsWithReason(t *testing.T) {
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	f := newPlannerFixture(t, Config{
		Simulations:         100,
		MaxIterations:       5,
		ConfidenceThreshold: 0.99,
		Timeout:             500 * time.Millisecond,
		Now:                 now,
	})
	ctx := context.Background()
	f.seedPriors(t, ctx, 2, 0.4)

	plan, err := f.planner.Plan(ctx, testGoal())
	require.NoError(t, err)
	require.Equal(t, StatusFailed, plan.Status)
	require.Equal(t, ReasonTimeout, plan.Reason)
}

func TestPlanner_RejectsEmptyGoal(t *testing.T) {
	f := newPlannerFixture(t, Config{})
	_, err := f.planner.Plan(context.Background(), Goal{})
	require.Equal(t, types.ErrValidation, types.GetErrorCode(err))
}
