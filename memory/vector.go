package memory

import "math"

// cosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either vector is empty, zero, or the dimensions disagree.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// meanVector returns the element-wise mean of equal-length vectors, skipping
// empty ones. Returns nil when no usable vector exists.
func meanVector(vectors [][]float64) []float64 {
	var sum []float64
	n := 0
	for _, v := range vectors {
		if len(v) == 0 {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(v))
		}
		if len(v) != len(sum) {
			continue
		}
		for i := range v {
			sum[i] += v[i]
		}
		n++
	}
	if n == 0 {
		return nil
	}
	for i := range sum {
		sum[i] /= float64(n)
	}
	return sum
}

// weightedAverage merges update into base with the given base weight, so a
// concept reinforced k times moves only 1/(k+1) of the way toward the update.
func weightedAverage(base, update []float64, baseWeight int) []float64 {
	if len(base) == 0 {
		return append([]float64(nil), update...)
	}
	if len(update) == 0 || len(update) != len(base) {
		return append([]float64(nil), base...)
	}
	if baseWeight < 1 {
		baseWeight = 1
	}
	out := make([]float64, len(base))
	w := float64(baseWeight)
	for i := range base {
		out[i] = (base[i]*w + update[i]) / (w + 1)
	}
	return out
}
