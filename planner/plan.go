// Package planner implements experience-augmented planning: hierarchical
// goal decomposition informed by memory priors, Monte Carlo simulation of
// candidate plans, and iterative refinement under a confidence threshold.
package planner

import (
	"time"

	"github.com/BaSui01/synthmind/types"
	"github.com/google/uuid"
)

// PlanStatus 计划状态。状态只能前进，重新规划意味着创建新计划。
type PlanStatus string

const (
	StatusDraft     PlanStatus = "draft"
	StatusSimulated PlanStatus = "simulated"
	StatusRefined   PlanStatus = "refined"
	StatusCommitted PlanStatus = "committed"
	StatusFailed    PlanStatus = "failed"
)

// statusRank orders the forward-only state machine. Refined may repeat.
var statusRank = map[PlanStatus]int{
	StatusDraft:     0,
	StatusSimulated: 1,
	StatusRefined:   2,
	StatusCommitted: 3,
	StatusFailed:    3,
}

// FailureReason explains a failed plan.
type FailureReason string

const (
	ReasonNone              FailureReason = ""
	ReasonPlanningExhausted FailureReason = "PlanningExhausted"
	ReasonTimeout           FailureReason = "Timeout"
)

// PlanNode is one node of the hierarchical decomposition tree. Nodes
// reference episodes and concepts by ID only; memory owns their lifetime.
type PlanNode struct {
	ID         string      `json:"id"`
	Goal       string      `json:"goal"`
	Action     string      `json:"action,omitempty"`
	Children   []*PlanNode `json:"children,omitempty"`
	EpisodeIDs []string    `json:"episode_ids,omitempty"`
	ConceptIDs []string    `json:"concept_ids,omitempty"`
}

// Plan is one planning attempt for a goal. The planner owns the plan for its
// lifetime; once committed or failed it never changes again.
type Plan struct {
	ID         string        `json:"id"`
	Goal       string        `json:"goal"`
	Root       *PlanNode     `json:"root,omitempty"`
	Confidence float64       `json:"confidence"`
	Status     PlanStatus    `json:"status"`
	Reason     FailureReason `json:"reason,omitempty"`
	Iterations int           `json:"iterations"`
	Resources  []string      `json:"resources,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`

	// History records every status the plan has been in, in order.
	History []PlanStatus `json:"history"`
}

func newPlan(goal Goal, now time.Time) *Plan {
	return &Plan{
		ID:        uuid.New().String(),
		Goal:      goal.Statement,
		Status:    StatusDraft,
		Resources: append([]string(nil), goal.Resources...),
		CreatedAt: now,
		UpdatedAt: now,
		History:   []PlanStatus{StatusDraft},
	}
}

// transition advances the state machine. Regressions and transitions out of
// a terminal state are rejected; refined may repeat for each iteration.
func (p *Plan) transition(to PlanStatus, now time.Time) error {
	fromRank, ok := statusRank[p.Status]
	if !ok {
		return types.NewValidationError("plan has unknown status")
	}
	toRank, ok := statusRank[to]
	if !ok {
		return types.NewValidationError("unknown target plan status")
	}
	if p.Status == StatusCommitted || p.Status == StatusFailed {
		return types.NewValidationError("plan is terminal and cannot transition")
	}
	if toRank < fromRank {
		return types.NewValidationError("plan status cannot regress")
	}
	if toRank == fromRank && to != StatusRefined {
		return types.NewValidationError("plan status cannot repeat")
	}
	p.Status = to
	p.UpdatedAt = now
	p.History = append(p.History, to)
	return nil
}

// Terminal reports whether the plan reached committed or failed.
func (p *Plan) Terminal() bool {
	return p.Status == StatusCommitted || p.Status == StatusFailed
}
