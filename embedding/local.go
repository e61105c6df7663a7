// Package embedding provides embedding providers for the agent core.
//
// The core normally receives embeddings from the external multi-modal
// reasoner attached to each observation. LocalEmbedder is the degraded-mode
// fallback: a deterministic bag-of-words embedder that needs no external
// service, so the memory tiers and planner stay usable offline.
package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"go.uber.org/zap"
)

// LocalEmbedderConfig 本地嵌入生成器配置。
type LocalEmbedderConfig struct {
	// Dimension 嵌入向量维度，默认 128。
	Dimension int
}

// DefaultLocalEmbedderConfig 返回默认配置。
func DefaultLocalEmbedderConfig() LocalEmbedderConfig {
	return LocalEmbedderConfig{Dimension: 128}
}

// LocalEmbedder 基于词袋 + 哈希映射的确定性嵌入生成器。
// 不依赖外部嵌入服务，同一文本在任何进程中得到同一向量，
// 适用于本地开发、测试和离线降级运行。
type LocalEmbedder struct {
	dimension int
	logger    *zap.Logger
}

// NewLocalEmbedder 创建本地嵌入生成器。
func NewLocalEmbedder(config LocalEmbedderConfig, logger *zap.Logger) *LocalEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	dim := config.Dimension
	if dim <= 0 {
		dim = DefaultLocalEmbedderConfig().Dimension
	}
	return &LocalEmbedder{
		dimension: dim,
		logger:    logger.With(zap.String("component", "local_embedder")),
	}
}

// Embed 为文本生成嵌入向量。
// 分词后按 FNV 哈希映射到固定维度并统计词频，最后做 L2 归一化。
// 与词汇表方案不同，哈希映射不携带状态，跨进程保持确定性。
func (e *LocalEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float64, e.dimension)
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return vec, nil
	}

	for _, word := range words {
		h := fnv.New32a()
		h.Write([]byte(word))
		pos := int(h.Sum32()) % e.dimension
		if pos < 0 {
			pos += e.dimension
		}
		vec[pos]++
	}
	normalize(vec)
	return vec, nil
}

// Dimension 返回固定输出维度。
func (e *LocalEmbedder) Dimension() int {
	return e.dimension
}

// normalize 对向量进行 L2 归一化。
func normalize(vec []float64) {
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
}
