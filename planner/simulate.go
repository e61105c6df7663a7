package planner

import (
	"context"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"
)

// RolloutEvaluator produces the value of one simulated trajectory for a
// candidate. Implementations must be pure functions of the RNG and the
// candidate so aggregation stays deterministic under a fixed seed.
type RolloutEvaluator interface {
	Rollout(rng *rand.Rand, candidate *Candidate) float64
}

// priorAnchoredEvaluator is the default reward model: a rollout's value is
// the candidate's prior reward perturbed by Gaussian noise scaled by how
// little evidence backs the prior. Strong priors simulate tight, weak priors
// simulate wide.
type priorAnchoredEvaluator struct {
	noiseScale float64
}

// NewPriorAnchoredEvaluator returns the default reward model. noiseScale
// defaults to 0.2 when non-positive.
func NewPriorAnchoredEvaluator(noiseScale float64) RolloutEvaluator {
	if noiseScale <= 0 {
		noiseScale = 0.2
	}
	return &priorAnchoredEvaluator{noiseScale: noiseScale}
}

func (e *priorAnchoredEvaluator) Rollout(rng *rand.Rand, candidate *Candidate) float64 {
	sigma := e.noiseScale * (1 - clamp01(candidate.PriorConfidence))
	return clamp01(candidate.PriorReward + rng.NormFloat64()*sigma)
}

// simulation holds the aggregated outcome of N rollouts for one candidate.
type simulation struct {
	Mean   float64
	StdErr float64

	// Confidence is the lower confidence bound of the mean, the score the
	// planner compares against its threshold.
	Confidence float64
}

// deriveSeed mixes a per-candidate sub-seed out of the base seed so
// candidates simulate on independent deterministic streams regardless of
// goroutine scheduling.
func deriveSeed(base int64, index int) int64 {
	z := uint64(base) + uint64(index+1)*0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return int64(z ^ (z >> 31))
}

// simulateCandidates runs n rollouts per candidate in parallel and reduces
// the results in candidate order. Results are indexed slots, so the output
// is identical for a given seed no matter how the goroutines interleave.
func simulateCandidates(
	ctx context.Context,
	candidates []Candidate,
	evaluator RolloutEvaluator,
	n int,
	seed int64,
) ([]simulation, error) {
	if n <= 0 {
		n = 1
	}
	results := make([]simulation, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	for i := range candidates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(deriveSeed(seed, i)))
			candidate := &candidates[i]

			var sum, sumSq float64
			for r := 0; r < n; r++ {
				value := evaluator.Rollout(rng, candidate)
				sum += value
				sumSq += value * value
			}
			mean := sum / float64(n)
			variance := sumSq/float64(n) - mean*mean
			if variance < 0 {
				variance = 0
			}
			stderr := math.Sqrt(variance / float64(n))

			results[i] = simulation{
				Mean:       mean,
				StdErr:     stderr,
				Confidence: clamp01(mean - 1.96*stderr),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// bestCandidate picks the highest-confidence simulation, breaking ties by
// candidate order for determinism.
func bestCandidate(results []simulation) int {
	best := -1
	for i, res := range results {
		if best == -1 || res.Confidence > results[best].Confidence {
			best = i
		}
	}
	return best
}
