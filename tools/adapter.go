// Package tools defines the external tool boundary of the agent core.
//
// Adapters wrap external capabilities (search, computation, knowledge
// lookup, content analysis) behind one narrow interface. The planner uses
// tool results to enrich decomposition and simulation context; a failing
// tool degrades plan confidence but never aborts planning.
package tools

import (
	"context"
	"time"

	"github.com/BaSui01/synthmind/types"
)

// Capability tags what an adapter can do. The registry routes requests by
// capability, never by adapter name.
type Capability string

const (
	CapabilitySearch    Capability = "search"
	CapabilityCompute   Capability = "compute"
	CapabilityKnowledge Capability = "knowledge"
	CapabilityAnalysis  Capability = "analysis"
	CapabilityOCR       Capability = "ocr"
)

// knownCapabilities is the default capability set.
var knownCapabilities = map[Capability]struct{}{
	CapabilitySearch:    {},
	CapabilityCompute:   {},
	CapabilityKnowledge: {},
	CapabilityAnalysis:  {},
	CapabilityOCR:       {},
}

// Request is one tool invocation.
type Request struct {
	Capability Capability     `json:"capability"`
	Query      string         `json:"query"`
	Context    map[string]any `json:"context,omitempty"`
}

// Validate checks structural validity of a request.
func (r *Request) Validate() error {
	if r == nil {
		return types.NewValidationError("tool request is nil")
	}
	if _, ok := knownCapabilities[r.Capability]; !ok {
		return types.NewValidationError("tool capability is missing or unknown")
	}
	if r.Query == "" {
		return types.NewValidationError("tool query is empty")
	}
	return nil
}

// Result is a tool response. Confidence expresses how much the adapter
// trusts its own answer; the planner folds it into plan confidence.
type Result struct {
	Content    string         `json:"content"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Elapsed    time.Duration  `json:"elapsed"`
}

// Adapter is an external tool. Implementations must respect the context and
// return a TOOL_ERROR-coded error on failure so callers can degrade
// gracefully instead of aborting.
type Adapter interface {
	Query(ctx context.Context, req Request) (Result, error)
}

// AdapterFunc adapts a plain function to the Adapter interface.
type AdapterFunc func(ctx context.Context, req Request) (Result, error)

// Query calls f.
func (f AdapterFunc) Query(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// NewToolError wraps an adapter failure in the shared error taxonomy.
func NewToolError(message string, cause error) *types.Error {
	err := types.NewError(types.ErrTool, message)
	if cause != nil {
		err = err.WithCause(cause)
	}
	return err
}
