package planner

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MergeResult is the outcome of collaborative conflict resolution. Accepted
// plans hold their resource claims; rejected plans lost a claim to a
// higher-confidence plan and should be re-planned with relaxed resources.
type MergeResult struct {
	Accepted []*Plan
	Rejected []*Plan
}

// Collaborative runs independent planners in parallel against shared memory
// and merges their committed plans. This is a policy layer over the
// single-agent state machine: each planner runs the ordinary Plan loop and
// only the merge decides between conflicting resource claims.
type Collaborative struct {
	planners []*Planner
	logger   *zap.Logger
}

// NewCollaborative groups planners for parallel goal planning.
func NewCollaborative(planners []*Planner, logger *zap.Logger) *Collaborative {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collaborative{
		planners: planners,
		logger:   logger.With(zap.String("component", "collaborative_planner")),
	}
}

// PlanAll assigns goals[i] to planners[i mod len(planners)], plans them in
// parallel, and merges the committed results. Failed plans are reported in
// the merge result's Rejected set alongside conflict losers.
func (c *Collaborative) PlanAll(ctx context.Context, goals []Goal) (MergeResult, error) {
	if len(c.planners) == 0 {
		return MergeResult{}, nil
	}

	// Indexed slots: each goroutine writes its own element.
	plans := make([]*Plan, len(goals))

	g, ctx := errgroup.WithContext(ctx)
	for i := range goals {
		g.Go(func() error {
			plan, err := c.planners[i%len(c.planners)].Plan(ctx, goals[i])
			if err != nil {
				return err
			}
			plans[i] = plan
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return MergeResult{}, err
	}

	return Merge(plans), nil
}

// Merge resolves resource conflicts between committed plans: when two plans
// claim the same resource, the higher aggregate confidence wins; ties break
// by plan ID ascending so the outcome is deterministic. Failed plans are
// never accepted.
func Merge(plans []*Plan) MergeResult {
	ordered := make([]*Plan, 0, len(plans))
	var result MergeResult
	for _, plan := range plans {
		if plan == nil {
			continue
		}
		if plan.Status != StatusCommitted {
			result.Rejected = append(result.Rejected, plan)
			continue
		}
		ordered = append(ordered, plan)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Confidence != ordered[j].Confidence {
			return ordered[i].Confidence > ordered[j].Confidence
		}
		return ordered[i].ID < ordered[j].ID
	})

	claimed := make(map[string]bool)
	for _, plan := range ordered {
		conflict := false
		for _, resource := range plan.Resources {
			if claimed[resource] {
				conflict = true
				break
			}
		}
		if conflict {
			result.Rejected = append(result.Rejected, plan)
			continue
		}
		for _, resource := range plan.Resources {
			claimed[resource] = true
		}
		result.Accepted = append(result.Accepted, plan)
	}
	return result
}
