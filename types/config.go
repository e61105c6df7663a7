package types

import "time"

// ============================================================
// 核心配置对象
// ============================================================

// CoreConfig 是智能体核心认可的配置选项集合。
// 缺失的选项取声明的默认值；未知的 YAML 键被忽略。
type CoreConfig struct {
	// SensoryRetentionSeconds 感官缓冲保留窗口（秒），默认 30。
	SensoryRetentionSeconds int `yaml:"sensory_retention_seconds" json:"sensory_retention_seconds" env:"SENSORY_RETENTION_SECONDS"`

	// WorkingMemoryCapacity 工作记忆容量上限，默认 7。
	WorkingMemoryCapacity int `yaml:"working_memory_capacity" json:"working_memory_capacity" env:"WORKING_MEMORY_CAPACITY"`

	// EpisodicThreshold 情景检索置信度阈值，默认 0.8。
	EpisodicThreshold float64 `yaml:"episodic_threshold" json:"episodic_threshold" env:"EPISODIC_THRESHOLD"`

	// MaxPlanningIterations 规划精化迭代上限，默认 5。
	MaxPlanningIterations int `yaml:"max_planning_iterations" json:"max_planning_iterations" env:"MAX_PLANNING_ITERATIONS"`

	// MonteCarloSimulations 每个候选的蒙特卡洛模拟次数，默认 1000。
	MonteCarloSimulations int `yaml:"monte_carlo_simulations" json:"monte_carlo_simulations" env:"MONTE_CARLO_SIMULATIONS"`

	// MinConfidenceThreshold 计划提交所需的最低置信度，默认 0.7。
	MinConfidenceThreshold float64 `yaml:"min_confidence_threshold" json:"min_confidence_threshold" env:"MIN_CONFIDENCE_THRESHOLD"`

	// ConsolidationFanIn 触发固化的相似情景数，默认 5。
	ConsolidationFanIn int `yaml:"consolidation_fan_in" json:"consolidation_fan_in" env:"CONSOLIDATION_FAN_IN"`

	// SalienceFloor 淘汰项晋升情景记忆的显著度下限，默认 0.3。
	SalienceFloor float64 `yaml:"salience_floor" json:"salience_floor" env:"SALIENCE_FLOOR"`

	// LabelSimilarityThreshold 概念按嵌入相似度合并的阈值，默认 0.92。
	LabelSimilarityThreshold float64 `yaml:"label_similarity_threshold" json:"label_similarity_threshold" env:"LABEL_SIMILARITY_THRESHOLD"`

	// ToolFailurePenalty 每次工具失败扣减的计划置信度，默认 0.05。
	ToolFailurePenalty float64 `yaml:"tool_failure_penalty" json:"tool_failure_penalty" env:"TOOL_FAILURE_PENALTY"`

	// PlanningTimeout 规划总时长上限，0 表示不限制。
	PlanningTimeout time.Duration `yaml:"planning_timeout" json:"planning_timeout" env:"PLANNING_TIMEOUT"`
}

// DefaultCoreConfig 返回声明的默认值。
func DefaultCoreConfig() CoreConfig {
	return CoreConfig{
		SensoryRetentionSeconds:  30,
		WorkingMemoryCapacity:    7,
		EpisodicThreshold:        0.8,
		MaxPlanningIterations:    5,
		MonteCarloSimulations:    1000,
		MinConfidenceThreshold:   0.7,
		ConsolidationFanIn:       5,
		SalienceFloor:            0.3,
		LabelSimilarityThreshold: 0.92,
		ToolFailurePenalty:       0.05,
	}
}

// ApplyDefaults 为未设置的选项填入默认值。
func (c *CoreConfig) ApplyDefaults() {
	def := DefaultCoreConfig()
	if c.SensoryRetentionSeconds <= 0 {
		c.SensoryRetentionSeconds = def.SensoryRetentionSeconds
	}
	if c.WorkingMemoryCapacity <= 0 {
		c.WorkingMemoryCapacity = def.WorkingMemoryCapacity
	}
	if c.EpisodicThreshold <= 0 {
		c.EpisodicThreshold = def.EpisodicThreshold
	}
	if c.MaxPlanningIterations <= 0 {
		c.MaxPlanningIterations = def.MaxPlanningIterations
	}
	if c.MonteCarloSimulations <= 0 {
		c.MonteCarloSimulations = def.MonteCarloSimulations
	}
	if c.MinConfidenceThreshold <= 0 {
		c.MinConfidenceThreshold = def.MinConfidenceThreshold
	}
	if c.ConsolidationFanIn <= 0 {
		c.ConsolidationFanIn = def.ConsolidationFanIn
	}
	if c.SalienceFloor <= 0 {
		c.SalienceFloor = def.SalienceFloor
	}
	if c.LabelSimilarityThreshold <= 0 {
		c.LabelSimilarityThreshold = def.LabelSimilarityThreshold
	}
	if c.ToolFailurePenalty <= 0 {
		c.ToolFailurePenalty = def.ToolFailurePenalty
	}
}

// Validate 检查取值范围。
func (c *CoreConfig) Validate() error {
	if c.EpisodicThreshold < 0 || c.EpisodicThreshold > 1 {
		return NewValidationError("episodic_threshold must be in [0,1]")
	}
	if c.MinConfidenceThreshold < 0 || c.MinConfidenceThreshold > 1 {
		return NewValidationError("min_confidence_threshold must be in [0,1]")
	}
	if c.SalienceFloor < 0 || c.SalienceFloor > 1 {
		return NewValidationError("salience_floor must be in [0,1]")
	}
	if c.LabelSimilarityThreshold < 0 || c.LabelSimilarityThreshold > 1 {
		return NewValidationError("label_similarity_threshold must be in [0,1]")
	}
	if c.PlanningTimeout < 0 {
		return NewValidationError("planning_timeout must not be negative")
	}
	return nil
}
