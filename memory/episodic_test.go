package memory

import (
	"fmt"
	"testing"
	"time"

	"github.com/BaSui01/synthmind/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestEpisodic(t *testing.T, clock *fixedClock) *EpisodicMemory {
	t.Helper()
	cfg := DefaultEpisodicMemoryConfig()
	cfg.Now = clock.Now
	return NewEpisodicMemory(cfg, zaptest.NewLogger(t))
}

func episode(goal string, confidence float64, embedding []float64) *types.Episode {
	return &types.Episode{
		GoalContext: goal,
		Confidence:  confidence,
		Reward:      confidence,
		Embedding:   embedding,
	}
}

func TestEpisodicMemory_AppendIsOnlyMutator(t *testing.T) {
	clock := newFixedClock()
	em := newTestEpisodic(t, clock)

	stored, err := em.Append(episode("summarize paper", 0.9, []float64{1, 0}))
	require.NoError(t, err)
	require.NotEmpty(t, stored.ID)
	require.Equal(t, clock.Now(), stored.CreatedAt)

	// Mutating the returned copy must not leak into the store.
	stored.GoalContext = "tampered"
	stored.Steps = append(stored.Steps, types.Step{Action: "x"})

	got, err := em.Get(stored.ID)
	require.NoError(t, err)
	require.Equal(t, "summarize paper", got.GoalContext)
	require.Empty(t, got.Steps)
}

func TestEpisodicMemory_AppendRejectsInvalid(t *testing.T) {
	em := newTestEpisodic(t, newFixedClock())

	_, err := em.Append(&types.Episode{Confidence: 0.5})
	require.Equal(t, types.ErrValidation, types.GetErrorCode(err))

	_, err = em.Append(&types.Episode{GoalContext: "g", Confidence: 2})
	require.Equal(t, types.ErrValidation, types.GetErrorCode(err))
	require.Equal(t, 0, em.Len())
}

// Episodes below the retrieval threshold stay stored but never surface as
// planner priors.
func TestEpisodicMemory_LowConfidenceStoredButNotRetrieved(t *testing.T) {
	em := newTestEpisodic(t, newFixedClock())

	for i := 0; i < 10; i++ {
		_, err := em.Append(episode(fmt.Sprintf("goal %d", i), 0.5, []float64{1, 0}))
		require.NoError(t, err)
	}

	require.Equal(t, 10, em.Len())
	require.Len(t, em.All(), 10)
	require.Empty(t, em.Retrieve([]float64{1, 0}, 5))
}

func TestEpisodicMemory_RetrieveTopKWithRecencyTieBreak(t *testing.T) {
	clock := newFixedClock()
	em := newTestEpisodic(t, clock)

	older, err := em.Append(episode("older", 0.9, []float64{1, 0}))
	require.NoError(t, err)
	clock.Advance(time.Minute)
	newer, err := em.Append(episode("newer", 0.9, []float64{1, 0}))
	require.NoError(t, err)
	_, err = em.Append(episode("orthogonal", 0.9, []float64{0, 1}))
	require.NoError(t, err)

	hits := em.Retrieve([]float64{1, 0}, 2)
	require.Len(t, hits, 2)
	require.Equal(t, newer.ID, hits[0].Episode.ID, "identical similarity breaks ties by recency")
	require.Equal(t, older.ID, hits[1].Episode.ID)
	require.InDelta(t, 1.0, hits[0].Similarity, 1e-9)
}

func TestEpisodicMemory_RetrieveIsDeterministic(t *testing.T) {
	em := newTestEpisodic(t, newFixedClock())
	for i := 0; i < 20; i++ {
		_, err := em.Append(episode(fmt.Sprintf("goal %d", i), 0.9, []float64{float64(i%3 + 1), 1}))
		require.NoError(t, err)
	}

	first := em.Retrieve([]float64{1, 1}, 7)
	for i := 0; i < 5; i++ {
		again := em.Retrieve([]float64{1, 1}, 7)
		require.Equal(t, len(first), len(again))
		for j := range first {
			require.Equal(t, first[j].Episode.ID, again[j].Episode.ID)
		}
	}
}

func TestEpisodicMemory_ConsolidationCandidates(t *testing.T) {
	clock := newFixedClock()
	em := newTestEpisodic(t, clock)

	// Five near-identical episodes reach the fan-in; two orthogonal ones
	// do not.
	for i := 0; i < 5; i++ {
		_, err := em.Append(episode("analyze dataset", 0.9, []float64{1, 0.01 * float64(i)}))
		require.NoError(t, err)
		clock.Advance(time.Second)
	}
	for i := 0; i < 2; i++ {
		_, err := em.Append(episode("unrelated", 0.9, []float64{0, 1}))
		require.NoError(t, err)
	}

	clusters := em.ConsolidationCandidates()
	require.Len(t, clusters, 1)
	require.Len(t, clusters[0], 5)
	require.Equal(t, "analyze dataset", clusters[0][0].GoalContext)
}
