package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BaSui01/synthmind/internal/metrics"
	"github.com/BaSui01/synthmind/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RegistryConfig configures per-adapter defaults.
type RegistryConfig struct {
	// DefaultRPS and DefaultBurst apply to adapters registered without an
	// explicit limit (default 5 rps, burst 10).
	DefaultRPS   float64
	DefaultBurst int
}

// DefaultRegistryConfig returns the stated defaults.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{DefaultRPS: 5, DefaultBurst: 10}
}

// RegisterOption tweaks a single registration.
type RegisterOption func(*registration)

// WithRateLimit overrides the registry's default rate limit for one adapter.
func WithRateLimit(rps float64, burst int) RegisterOption {
	return func(r *registration) {
		r.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type registration struct {
	adapter Adapter
	limiter *rate.Limiter
}

// Registry maps capability tags to adapters. Bindings are explicit and fixed
// at configuration time; lookups never fall back to a different capability.
type Registry struct {
	mu       sync.RWMutex
	adapters map[Capability]*registration

	config    RegistryConfig
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewRegistry creates an empty registry. The collector may be nil.
func NewRegistry(config RegistryConfig, collector *metrics.Collector, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultRegistryConfig()
	if config.DefaultRPS <= 0 {
		config.DefaultRPS = def.DefaultRPS
	}
	if config.DefaultBurst <= 0 {
		config.DefaultBurst = def.DefaultBurst
	}
	return &Registry{
		adapters:  make(map[Capability]*registration),
		config:    config,
		collector: collector,
		logger:    logger.With(zap.String("component", "tool_registry")),
	}
}

// Register binds an adapter to a capability, replacing any previous binding.
func (r *Registry) Register(capability Capability, adapter Adapter, opts ...RegisterOption) error {
	if _, ok := knownCapabilities[capability]; !ok {
		return types.NewValidationError("tool capability is missing or unknown")
	}
	if adapter == nil {
		return types.NewValidationError("tool adapter is nil")
	}

	reg := &registration{
		adapter: adapter,
		limiter: rate.NewLimiter(rate.Limit(r.config.DefaultRPS), r.config.DefaultBurst),
	}
	for _, opt := range opts {
		opt(reg)
	}

	r.mu.Lock()
	r.adapters[capability] = reg
	r.mu.Unlock()

	r.logger.Info("tool adapter registered", zap.String("capability", string(capability)))
	return nil
}

// Capabilities lists the currently bound capability tags.
func (r *Registry) Capabilities() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Capability, 0, len(r.adapters))
	for capability := range r.adapters {
		out = append(out, capability)
	}
	return out
}

// Query routes the request to the adapter bound to its capability. A missing
// binding, an exhausted rate budget, or an adapter failure all come back as
// TOOL_ERROR so callers degrade instead of aborting.
func (r *Registry) Query(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	r.mu.RLock()
	reg, ok := r.adapters[req.Capability]
	r.mu.RUnlock()
	if !ok {
		return Result{}, NewToolError(fmt.Sprintf("no adapter bound for capability %q", req.Capability), nil)
	}

	if !reg.limiter.Allow() {
		r.collector.RecordToolCall(string(req.Capability), "rate_limited", 0)
		return Result{}, NewToolError(fmt.Sprintf("rate limit exceeded for capability %q", req.Capability), nil)
	}

	start := time.Now()
	result, err := reg.adapter.Query(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		r.collector.RecordToolCall(string(req.Capability), "error", elapsed)
		r.logger.Warn("tool call failed",
			zap.String("capability", string(req.Capability)),
			zap.Error(err))
		if types.GetErrorCode(err) == types.ErrTool {
			return Result{}, err
		}
		return Result{}, NewToolError("tool call failed", err)
	}

	result.Elapsed = elapsed
	r.collector.RecordToolCall(string(req.Capability), "ok", elapsed)
	return result, nil
}
