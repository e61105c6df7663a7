// Package synthmind provides a top-level convenience entry point wiring the
// memory hierarchy, planner, and tool registry into a single agent core.
//
// Usage:
//
//	import "github.com/BaSui01/synthmind"
//
//	a, err := synthmind.New()
//	a, err := synthmind.New(synthmind.WithConfigPath("config.yaml"))
//	a, err := synthmind.New(synthmind.WithEmbedder(myEmbedder), synthmind.WithStore(myStore))
//
// The agent owns the memory coordinator: call Observe to feed it, Tick to
// move information between tiers, and Plan to run the experience-augmented
// planner against the accumulated memory.
package synthmind

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/synthmind/config"
	"github.com/BaSui01/synthmind/embedding"
	"github.com/BaSui01/synthmind/internal/metrics"
	"github.com/BaSui01/synthmind/memory"
	"github.com/BaSui01/synthmind/planner"
	"github.com/BaSui01/synthmind/tools"
	"github.com/BaSui01/synthmind/types"
)

// Option configures the agent created by [New].
type Option func(*options)

type options struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	embedder   memory.Embedder
	store      memory.Store
	evaluator  planner.RolloutEvaluator
	registerer prometheus.Registerer
}

// WithConfig sets a pre-built configuration, skipping the loader.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithConfigPath loads configuration from the given YAML file.
func WithConfigPath(path string) Option {
	return func(o *options) { o.configPath = path }
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithEmbedder sets the embedding provider. Defaults to the deterministic
// local embedder, which keeps the core usable without an external reasoner.
func WithEmbedder(e memory.Embedder) Option {
	return func(o *options) { o.embedder = e }
}

// WithStore sets the snapshot store, overriding the configured backend.
func WithStore(s memory.Store) Option {
	return func(o *options) { o.store = s }
}

// WithEvaluator sets the Monte Carlo rollout evaluator.
func WithEvaluator(e planner.RolloutEvaluator) Option {
	return func(o *options) { o.evaluator = e }
}

// WithRegisterer sets the Prometheus registerer for agent metrics.
// Defaults to prometheus.DefaultRegisterer.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

// Agent bundles the memory tiers, the coordinator that moves information
// between them, the planner, and the tool registry.
type Agent struct {
	cfg *config.Config

	sensory     *memory.SensoryBuffer
	working     *memory.WorkingMemory
	episodic    *memory.EpisodicMemory
	graph       *memory.InMemoryKnowledgeGraph
	coordinator *memory.Coordinator

	registry *tools.Registry
	planner  *planner.Planner
	store    memory.Store

	logger *zap.Logger
}

// New builds an agent from configuration. Every dependency has a default:
// with no options it runs fully in-memory with the local embedder and the
// configured file store.
func New(opts ...Option) (*Agent, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg := o.cfg
	if cfg == nil {
		loaded, err := config.NewLoader().
			WithConfigPath(o.configPath).
			WithValidator((*config.Config).Validate).
			Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		logger = initLogger(cfg.Log)
	}

	collector := metrics.NewCollector("synthmind", o.registerer, logger)

	embedder := o.embedder
	if embedder == nil {
		embedder = embedding.NewLocalEmbedder(embedding.DefaultLocalEmbedderConfig(), logger)
	}

	sensory := memory.NewSensoryBuffer(memory.SensoryBufferConfig{
		Retention: time.Duration(cfg.Core.SensoryRetentionSeconds) * time.Second,
	}, logger)
	working := memory.NewWorkingMemory(memory.WorkingMemoryConfig{
		Capacity: cfg.Core.WorkingMemoryCapacity,
	}, logger)
	episodic := memory.NewEpisodicMemory(memory.EpisodicMemoryConfig{
		RetrievalThreshold: cfg.Core.EpisodicThreshold,
		ConsolidationFanIn: cfg.Core.ConsolidationFanIn,
	}, logger)
	graph := memory.NewInMemoryKnowledgeGraph(memory.KnowledgeGraphConfig{
		LabelSimilarityThreshold: cfg.Core.LabelSimilarityThreshold,
	}, logger)

	coordinator := memory.NewCoordinator(memory.CoordinatorConfig{
		SalienceFloor: cfg.Core.SalienceFloor,
	}, sensory, working, episodic, graph, embedder, collector, logger)

	registry := tools.NewRegistry(tools.RegistryConfig{
		DefaultRPS:   cfg.Tools.RateLimitRPS,
		DefaultBurst: cfg.Tools.RateLimitBurst,
	}, collector, logger)

	decomposer := planner.NewDecomposer(episodic, graph, registry, planner.DefaultDecomposerConfig(), logger)
	plnr := planner.NewPlanner(planner.Config{
		MaxIterations:       cfg.Core.MaxPlanningIterations,
		Simulations:         cfg.Core.MonteCarloSimulations,
		ConfidenceThreshold: cfg.Core.MinConfidenceThreshold,
		Timeout:             cfg.Core.PlanningTimeout,
		ToolFailurePenalty:  cfg.Core.ToolFailurePenalty,
	}, decomposer, o.evaluator, coordinator, collector, logger)

	store := o.store
	if store == nil {
		opened, err := openStore(cfg.Store, logger)
		if err != nil {
			return nil, fmt.Errorf("open snapshot store: %w", err)
		}
		store = opened
	}

	return &Agent{
		cfg:         cfg,
		sensory:     sensory,
		working:     working,
		episodic:    episodic,
		graph:       graph,
		coordinator: coordinator,
		registry:    registry,
		planner:     plnr,
		store:       store,
		logger:      logger.With(zap.String("component", "agent")),
	}, nil
}

// Observe records an observation into the sensory buffer. Nothing moves
// past the buffer until the next Tick.
func (a *Agent) Observe(obs types.Observation) error {
	return a.sensory.Record(obs)
}

// Tick runs one coordinator cycle: drain sensory, admit salient items,
// promote evictions, consolidate episodes into the knowledge graph.
func (a *Agent) Tick(ctx context.Context) (memory.TickReport, error) {
	return a.coordinator.Tick(ctx)
}

// Plan runs the experience-augmented planner against the current memory.
func (a *Agent) Plan(ctx context.Context, goal planner.Goal) (*planner.Plan, error) {
	return a.planner.Plan(ctx, goal)
}

// RegisterTool binds an adapter to a capability tag.
func (a *Agent) RegisterTool(capability tools.Capability, adapter tools.Adapter, opts ...tools.RegisterOption) error {
	return a.registry.Register(capability, adapter, opts...)
}

// Save persists the current memory snapshot through the configured store.
func (a *Agent) Save(ctx context.Context) error {
	if a.store == nil {
		return types.NewValidationError("no snapshot store configured")
	}
	snapshot, err := a.coordinator.Snapshot(ctx)
	if err != nil {
		return err
	}
	return a.store.Save(ctx, snapshot)
}

// Restore loads the latest snapshot from the store and replaces the current
// memory state with it.
func (a *Agent) Restore(ctx context.Context) error {
	if a.store == nil {
		return types.NewValidationError("no snapshot store configured")
	}
	snapshot, err := a.store.Load(ctx)
	if err != nil {
		return err
	}
	return a.coordinator.RestoreSnapshot(ctx, snapshot)
}

// Stats reports the current size of every memory tier.
func (a *Agent) Stats(ctx context.Context) (memory.MemoryStats, error) {
	return a.coordinator.Stats(ctx)
}

// Episodic exposes the episodic tier for read access.
func (a *Agent) Episodic() *memory.EpisodicMemory { return a.episodic }

// Graph exposes the knowledge graph for read access.
func (a *Agent) Graph() memory.KnowledgeGraph { return a.graph }

// Close releases the snapshot store.
func (a *Agent) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// openStore builds the snapshot store named by the configuration.
func openStore(cfg config.StoreConfig, logger *zap.Logger) (memory.Store, error) {
	switch cfg.Backend {
	case "file":
		return memory.NewFileStore(cfg.File.Dir)
	case "redis":
		return memory.NewRedisStore(memory.RedisStoreConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
			PoolSize: cfg.Redis.PoolSize,
		}, logger)
	case "sqlite":
		return memory.NewSQLiteStore(memory.SQLiteStoreConfig{
			Path:            cfg.SQLite.Path,
			KeepGenerations: cfg.SQLite.KeepGenerations,
		}, logger)
	case "none", "":
		return nil, nil
	default:
		return nil, errors.New("unknown store backend: " + cfg.Backend)
	}
}

// initLogger builds the zap logger described by the log configuration.
func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoding = "console"
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	var buildOpts []zap.Option
	if cfg.EnableCaller {
		buildOpts = append(buildOpts, zap.AddCaller())
	}

	logger, err := zapConfig.Build(buildOpts...)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
