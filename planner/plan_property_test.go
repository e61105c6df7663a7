package planner

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/BaSui01/synthmind/memory"
	"github.com/BaSui01/synthmind/types"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// A plan's observed status history is always a prefix of
// draft, simulated, refined*, (committed | failed) — regardless of priors,
// thresholds, or constraints.
func TestProperty_PlanStatusMonotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 60

	properties := gopter.NewProperties(parameters)

	properties.Property("plan history never regresses", prop.ForAll(
		func(priorCount int, reward float64, threshold float64, forbidAll bool) bool {
			ctx := context.Background()

			episodic := memory.NewEpisodicMemory(memory.DefaultEpisodicMemoryConfig(), nil)
			graph := memory.NewInMemoryKnowledgeGraph(memory.DefaultKnowledgeGraphConfig(), nil)
			for i := 0; i < priorCount; i++ {
				_, err := episodic.Append(&types.Episode{
					GoalContext: "goal",
					Reward:      reward,
					Confidence:  0.9,
					Embedding:   []float64{1, 0.01 * float64(i)},
					Steps:       []types.Step{{State: "s", Action: fmt.Sprintf("act %d", i), Outcome: "ok"}},
				})
				if err != nil {
					return false
				}
			}

			decomposer := NewDecomposer(episodic, graph, nil, DefaultDecomposerConfig(), nil)
			planner := NewPlanner(Config{
				Simulations:         50,
				MaxIterations:       3,
				ConfidenceThreshold: threshold,
				Seed:                11,
			}, decomposer, nil, nil, nil, nil)

			goal := Goal{Statement: "goal", Embedding: []float64{1, 0}}
			if forbidAll {
				goal.Constraints = []Constraint{{ForbidAction: "*"}}
			}

			plan, err := planner.Plan(ctx, goal)
			if err != nil {
				return false
			}
			return historyIsValidPrefix(plan.History) && plan.Terminal()
		},
		gen.IntRange(0, 5),
		gen.Float64Range(0, 1),
		gen.Float64Range(0.1, 0.99),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// historyIsValidPrefix checks the sequence against the grammar
// draft simulated refined* (committed|failed), allowing early termination
// after draft (zero feasible candidates).
func historyIsValidPrefix(history []PlanStatus) bool {
	if len(history) == 0 || history[0] != StatusDraft {
		return false
	}
	i := 1
	if i < len(history) && history[i] == StatusSimulated {
		i++
	}
	for i < len(history) && history[i] == StatusRefined {
		i++
	}
	if i < len(history) {
		if history[i] != StatusCommitted && history[i] != StatusFailed {
			return false
		}
		i++
	}
	return i == len(history)
}

func timeAt(offsetSeconds int) time.Time {
	return time.Date(2026, 3, 1, 9, 0, offsetSeconds, 0, time.UTC)
}

func TestPlan_TransitionRules(t *testing.T) {
	now := timeAt(0)

	p := newPlan(Goal{Statement: "g"}, now)
	if err := p.transition(StatusSimulated, now); err != nil {
		t.Fatalf("draft -> simulated: %v", err)
	}
	if err := p.transition(StatusRefined, now); err != nil {
		t.Fatalf("simulated -> refined: %v", err)
	}
	if err := p.transition(StatusRefined, now); err != nil {
		t.Fatalf("refined -> refined: %v", err)
	}
	if err := p.transition(StatusSimulated, now); err == nil {
		t.Fatal("refined -> simulated must be rejected")
	}
	if err := p.transition(StatusCommitted, now); err != nil {
		t.Fatalf("refined -> committed: %v", err)
	}
	if err := p.transition(StatusFailed, now); err == nil {
		t.Fatal("terminal plan must not transition")
	}
}
