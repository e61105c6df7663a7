package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/synthmind/internal/metrics"
	"github.com/BaSui01/synthmind/memory"
	"github.com/BaSui01/synthmind/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Config 规划器配置。
type Config struct {
	// MaxIterations bounds refinement (default 5).
	MaxIterations int

	// Simulations is the Monte Carlo rollout count per candidate
	// (default 1000).
	Simulations int

	// ConfidenceThreshold is the commit bar (default 0.7).
	ConfidenceThreshold float64

	// Timeout bounds total planning wall time. 0 means no bound beyond the
	// caller's context.
	Timeout time.Duration

	// Seed fixes the simulation RNG for reproducible planning. 0 seeds from
	// the current time.
	Seed int64

	// ToolFailurePenalty is subtracted from plan confidence per failed tool
	// enrichment (default 0.05).
	ToolFailurePenalty float64

	// Now is used in tests. Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns the stated defaults.
func DefaultConfig() Config {
	return Config{
		MaxIterations:       5,
		Simulations:         1000,
		ConfidenceThreshold: 0.7,
		ToolFailurePenalty:  0.05,
	}
}

// Planner runs the plan state machine: decompose, simulate, refine until the
// confidence threshold is met or the budget runs out. Planners hold read-only
// memory handles; the only mutation is the feedback episode appended through
// the serialized writer when a plan terminates.
type Planner struct {
	config     Config
	decomposer *Decomposer
	evaluator  RolloutEvaluator
	writer     memory.MemoryWriter
	collector  *metrics.Collector
	tracer     trace.Tracer
	now        func() time.Time
	logger     *zap.Logger
}

// NewPlanner creates a planner. The evaluator may be nil to use the default
// prior-anchored reward model; the collector may be nil.
func NewPlanner(
	config Config,
	decomposer *Decomposer,
	evaluator RolloutEvaluator,
	writer memory.MemoryWriter,
	collector *metrics.Collector,
	logger *zap.Logger,
) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if config.MaxIterations <= 0 {
		config.MaxIterations = def.MaxIterations
	}
	if config.Simulations <= 0 {
		config.Simulations = def.Simulations
	}
	if config.ConfidenceThreshold <= 0 {
		config.ConfidenceThreshold = def.ConfidenceThreshold
	}
	if config.ToolFailurePenalty <= 0 {
		config.ToolFailurePenalty = def.ToolFailurePenalty
	}
	if evaluator == nil {
		evaluator = NewPriorAnchoredEvaluator(0)
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &Planner{
		config:     config,
		decomposer: decomposer,
		evaluator:  evaluator,
		writer:     writer,
		collector:  collector,
		tracer:     otel.Tracer("synthmind/planner"),
		now:        now,
		logger:     logger.With(zap.String("component", "planner")),
	}
}

// Plan runs the full state machine for the goal and returns the terminal
// plan. A failed plan is a result, not an error: PlanningExhausted and
// Timeout surface as the plan's failure reason. An error return means the
// caller cancelled; no feedback episode is written in that case.
func (p *Planner) Plan(ctx context.Context, goal Goal) (*Plan, error) {
	if goal.Statement == "" {
		return nil, types.NewValidationError("goal statement is required")
	}

	ctx, span := p.tracer.Start(ctx, "planner.plan",
		trace.WithAttributes(attribute.String("plan.goal", goal.Statement)))
	defer span.End()

	start := p.now()
	var deadline time.Time
	if p.config.Timeout > 0 {
		deadline = start.Add(p.config.Timeout)
	}

	seed := p.config.Seed
	if seed == 0 {
		seed = start.UnixNano()
	}

	plan := newPlan(goal, start)
	var selected *Candidate

	for iteration := 1; iteration <= p.config.MaxIterations; iteration++ {
		// Cancellation is checked between iterations, never mid-rollout.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !deadline.IsZero() && !p.now().Before(deadline) {
			return p.fail(ctx, plan, ReasonTimeout, start)
		}
		plan.Iterations = iteration

		candidates, toolFailures, err := p.decomposer.Decompose(ctx, goal, iteration-1)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, fmt.Errorf("decompose goal: %w", err)
		}
		if len(candidates) == 0 {
			// Unsatisfiable constraints: fail without spending a single
			// rollout.
			return p.fail(ctx, plan, ReasonPlanningExhausted, start)
		}

		if plan.Status == StatusDraft {
			if err := plan.transition(StatusSimulated, p.now()); err != nil {
				return nil, err
			}
		}

		results, err := simulateCandidates(ctx, candidates, p.evaluator, p.config.Simulations, deriveSeed(seed, iteration))
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, fmt.Errorf("simulate candidates: %w", err)
		}
		p.collector.RecordRollouts(len(candidates) * p.config.Simulations)

		best := bestCandidate(results)
		confidence := clamp01(results[best].Confidence - toolFailures*p.config.ToolFailurePenalty)
		if selected == nil || confidence > plan.Confidence {
			chosen := candidates[best]
			selected = &chosen
			plan.Confidence = confidence
		}

		p.logger.Debug("iteration scored",
			zap.String("plan_id", plan.ID),
			zap.Int("iteration", iteration),
			zap.Int("candidates", len(candidates)),
			zap.Float64("confidence", plan.Confidence))

		if plan.Confidence >= p.config.ConfidenceThreshold {
			plan.Root = buildTree(goal, selected)
			if err := plan.transition(StatusCommitted, p.now()); err != nil {
				return nil, err
			}
			p.finish(ctx, plan, selected, start)
			return plan, nil
		}

		if iteration < p.config.MaxIterations {
			if err := plan.transition(StatusRefined, p.now()); err != nil {
				return nil, err
			}
		}
	}

	// Budget spent below threshold. The best candidate is still recorded on
	// the failed plan for post-mortem.
	if selected != nil {
		plan.Root = buildTree(goal, selected)
	}
	return p.fail(ctx, plan, ReasonPlanningExhausted, start)
}

// fail transitions the plan to failed and writes the feedback episode.
func (p *Planner) fail(ctx context.Context, plan *Plan, reason FailureReason, start time.Time) (*Plan, error) {
	if err := plan.transition(StatusFailed, p.now()); err != nil {
		return nil, err
	}
	plan.Reason = reason
	p.finish(ctx, plan, nil, start)
	return plan, nil
}

// finish records metrics and appends the feedback episode closing the loop
// with episodic memory. Feedback failures are logged, never escalated: the
// plan outcome already stands.
func (p *Planner) finish(ctx context.Context, plan *Plan, selected *Candidate, start time.Time) {
	p.collector.RecordPlan(string(plan.Status), p.now().Sub(start), plan.Iterations)

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("plan.id", plan.ID),
		attribute.String("plan.status", string(plan.Status)),
		attribute.Float64("plan.confidence", plan.Confidence),
		attribute.Int("plan.iterations", plan.Iterations),
	)

	if p.writer == nil {
		return
	}
	episode := feedbackEpisode(plan, selected)
	if _, err := p.writer.AppendEpisode(ctx, episode); err != nil {
		p.logger.Warn("feedback episode not recorded",
			zap.String("plan_id", plan.ID),
			zap.Error(err))
	}
}

// feedbackEpisode converts a terminal plan into the episode appended back
// into memory.
func feedbackEpisode(plan *Plan, selected *Candidate) *types.Episode {
	outcome := string(plan.Status)
	var steps []types.Step
	if selected != nil {
		steps = make([]types.Step, 0, len(selected.Actions))
		for _, action := range selected.Actions {
			steps = append(steps, types.Step{State: "planned", Action: action, Outcome: outcome})
		}
	}
	reward := plan.Confidence
	if plan.Status == StatusFailed {
		reward = 0
	}
	return &types.Episode{
		GoalContext: plan.Goal,
		Steps:       steps,
		Reward:      reward,
		Confidence:  plan.Confidence,
		PlanID:      plan.ID,
		Metadata: map[string]any{
			"status":     string(plan.Status),
			"reason":     string(plan.Reason),
			"iterations": plan.Iterations,
		},
	}
}

// buildTree lays the selected candidate out as the plan's decomposition
// tree: the goal at the root, one action node per step.
func buildTree(goal Goal, selected *Candidate) *PlanNode {
	root := &PlanNode{
		ID:   uuid.New().String(),
		Goal: goal.Statement,
	}
	if selected == nil {
		return root
	}
	root.EpisodeIDs = append([]string(nil), selected.EpisodeIDs...)
	root.ConceptIDs = append([]string(nil), selected.ConceptIDs...)
	for _, action := range selected.Actions {
		root.Children = append(root.Children, &PlanNode{
			ID:     uuid.New().String(),
			Goal:   goal.Statement,
			Action: action,
		})
	}
	return root
}
