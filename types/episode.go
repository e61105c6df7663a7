package types

import "time"

// Step is one (state, action, outcome) element of an episode.
type Step struct {
	State   string  `json:"state"`
	Action  string  `json:"action"`
	Outcome string  `json:"outcome"`
	Reward  float64 `json:"reward,omitempty"`
}

// Episode is a completed experience: a goal, the steps taken toward it, and
// how well it went. Episodes are append-only and immutable after creation;
// planner and semantic memory reference them by ID only and never own them.
type Episode struct {
	ID          string         `json:"id"`
	GoalContext string         `json:"goal_context"`
	Steps       []Step         `json:"steps"`
	Reward      float64        `json:"reward"`
	Confidence  float64        `json:"confidence"`
	Embedding   []float64      `json:"embedding,omitempty"`
	PlanID      string         `json:"plan_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Validate checks structural validity of an episode before it is appended.
func (e *Episode) Validate() error {
	if e == nil {
		return NewValidationError("episode is nil")
	}
	if e.GoalContext == "" {
		return NewValidationError("episode goal context is required")
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return NewValidationError("episode confidence must be in [0,1]")
	}
	return nil
}

// Clone returns a deep copy so stored episodes stay immutable when callers
// hold references to the input.
func (e *Episode) Clone() *Episode {
	if e == nil {
		return nil
	}
	out := *e
	out.Steps = append([]Step(nil), e.Steps...)
	out.Embedding = append([]float64(nil), e.Embedding...)
	if e.Metadata != nil {
		out.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
