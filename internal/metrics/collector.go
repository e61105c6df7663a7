// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器。所有记录方法对 nil 接收者安全，
// 未接入监控的组件可以直接传 nil。
type Collector struct {
	// 记忆层指标
	observationsRecorded prometheus.Counter
	workingAdmissions    prometheus.Counter
	workingEvictions     prometheus.Counter
	promotions           *prometheus.CounterVec
	episodesAppended     prometheus.Counter
	retrievals           *prometheus.CounterVec
	consolidations       prometheus.Counter
	graphConcepts        prometheus.Gauge
	graphRelations       prometheus.Gauge

	// 规划器指标
	plansTotal      *prometheus.CounterVec
	planDuration    prometheus.Histogram
	rolloutsTotal   prometheus.Counter
	planRefinements prometheus.Histogram

	// 工具指标
	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器。registerer 为 nil 时使用默认注册表。
func NewCollector(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 记忆层指标
	c.observationsRecorded = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "observations_recorded_total",
		Help:      "Total number of observations recorded into the sensory buffer",
	})
	c.workingAdmissions = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "working_admissions_total",
		Help:      "Total number of items admitted into working memory",
	})
	c.workingEvictions = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "working_evictions_total",
		Help:      "Total number of items evicted from working memory",
	})
	c.promotions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "promotions_total",
		Help:      "Total number of tier promotions",
	}, []string{"outcome"}) // outcome: promoted, discarded
	c.episodesAppended = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "episodes_appended_total",
		Help:      "Total number of episodes appended to episodic memory",
	})
	c.retrievals = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retrievals_total",
		Help:      "Total number of memory retrievals",
	}, []string{"tier"}) // tier: episodic, semantic
	c.consolidations = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "consolidations_total",
		Help:      "Total number of consolidation passes that produced concepts",
	})
	c.graphConcepts = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "graph_concepts",
		Help:      "Current number of concepts in the knowledge graph",
	})
	c.graphRelations = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "graph_relations",
		Help:      "Current number of relations in the knowledge graph",
	})

	// 规划器指标
	c.plansTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "plans_total",
		Help:      "Total number of finished plans",
	}, []string{"status"}) // status: committed, failed
	c.planDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "plan_duration_seconds",
		Help:      "Planning wall time in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	})
	c.rolloutsTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rollouts_total",
		Help:      "Total number of Monte Carlo rollouts executed",
	})
	c.planRefinements = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "plan_refinements",
		Help:      "Refinement iterations per plan",
		Buckets:   []float64{0, 1, 2, 3, 4, 5},
	})

	// 工具指标
	c.toolCalls = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tool_calls_total",
		Help:      "Total number of external tool calls",
	}, []string{"capability", "status"}) // status: ok, error, rate_limited
	c.toolDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "tool_call_duration_seconds",
		Help:      "External tool call duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"capability"})

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🧠 记忆层指标记录
// =============================================================================

// RecordObservation 记录感官缓冲写入
func (c *Collector) RecordObservation() {
	if c == nil {
		return
	}
	c.observationsRecorded.Inc()
}

// RecordAdmission 记录工作记忆准入
func (c *Collector) RecordAdmission() {
	if c == nil {
		return
	}
	c.workingAdmissions.Inc()
}

// RecordEviction 记录工作记忆淘汰
func (c *Collector) RecordEviction() {
	if c == nil {
		return
	}
	c.workingEvictions.Inc()
}

// RecordPromotion 记录层级晋升结果
func (c *Collector) RecordPromotion(outcome string) {
	if c == nil {
		return
	}
	c.promotions.WithLabelValues(outcome).Inc()
}

// RecordEpisodeAppended 记录情景记忆追加
func (c *Collector) RecordEpisodeAppended() {
	if c == nil {
		return
	}
	c.episodesAppended.Inc()
}

// RecordRetrieval 记录检索
func (c *Collector) RecordRetrieval(tier string) {
	if c == nil {
		return
	}
	c.retrievals.WithLabelValues(tier).Inc()
}

// RecordConsolidation 记录固化
func (c *Collector) RecordConsolidation() {
	if c == nil {
		return
	}
	c.consolidations.Inc()
}

// RecordGraphSize 记录知识图谱规模
func (c *Collector) RecordGraphSize(concepts, relations int) {
	if c == nil {
		return
	}
	c.graphConcepts.Set(float64(concepts))
	c.graphRelations.Set(float64(relations))
}

// =============================================================================
// 🗺️ 规划器指标记录
// =============================================================================

// RecordPlan 记录规划结果
func (c *Collector) RecordPlan(status string, duration time.Duration, refinements int) {
	if c == nil {
		return
	}
	c.plansTotal.WithLabelValues(status).Inc()
	c.planDuration.Observe(duration.Seconds())
	c.planRefinements.Observe(float64(refinements))
}

// RecordRollouts 记录蒙特卡洛模拟次数
func (c *Collector) RecordRollouts(n int) {
	if c == nil {
		return
	}
	c.rolloutsTotal.Add(float64(n))
}

// =============================================================================
// 🔧 工具指标记录
// =============================================================================

// RecordToolCall 记录外部工具调用
func (c *Collector) RecordToolCall(capability, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.toolCalls.WithLabelValues(capability, status).Inc()
	c.toolDuration.WithLabelValues(capability).Observe(duration.Seconds())
}
