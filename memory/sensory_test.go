package memory

import (
	"testing"
	"time"

	"github.com/BaSui01/synthmind/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fixedClock is a manually advanced clock for deterministic expiry tests.
type fixedClock struct {
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time          { return c.now }
func (c *fixedClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func textObservation(payload string, confidence float64) types.Observation {
	return types.Observation{
		Modality:         types.ModalityText,
		Payload:          []byte(payload),
		Source:           "test",
		SourceConfidence: confidence,
	}
}

func TestSensoryBuffer_RecordRejectsInvalid(t *testing.T) {
	buf := NewSensoryBuffer(DefaultSensoryBufferConfig(), zaptest.NewLogger(t))

	tests := []struct {
		name string
		obs  types.Observation
	}{
		{"unknown modality", types.Observation{Modality: "audio", Payload: []byte("x")}},
		{"empty payload", types.Observation{Modality: types.ModalityText}},
		{"confidence out of range", types.Observation{Modality: types.ModalityText, Payload: []byte("x"), SourceConfidence: 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := buf.Record(tt.obs)
			require.Error(t, err)
			require.Equal(t, types.ErrValidation, types.GetErrorCode(err))
		})
	}
	require.Equal(t, 0, buf.Len())
}

func TestSensoryBuffer_LazyExpiry(t *testing.T) {
	clock := newFixedClock()
	buf := NewSensoryBuffer(SensoryBufferConfig{
		Retention: 30 * time.Second,
		Now:       clock.Now,
	}, zaptest.NewLogger(t))

	require.NoError(t, buf.Record(textObservation("early", 0.9)))
	clock.Advance(20 * time.Second)
	require.NoError(t, buf.Record(textObservation("late", 0.9)))
	require.Equal(t, 2, buf.Len())

	// 15s later the first observation (age 35s) is past retention.
	clock.Advance(15 * time.Second)
	require.Equal(t, 1, buf.Len())

	var payloads []string
	for obs := range buf.Drain(0) {
		payloads = append(payloads, string(obs.Payload))
	}
	require.Equal(t, []string{"late"}, payloads)
}

func TestSensoryBuffer_DrainIsRestartable(t *testing.T) {
	clock := newFixedClock()
	buf := NewSensoryBuffer(SensoryBufferConfig{Retention: 30 * time.Second, Now: clock.Now}, zaptest.NewLogger(t))

	require.NoError(t, buf.Record(textObservation("a", 0.5)))
	require.NoError(t, buf.Record(textObservation("b", 0.5)))

	seq := buf.Drain(0)
	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}
	require.Equal(t, 2, first)
	require.Equal(t, 2, second, "ranging a second time must replay the sequence")

	// Early break must not consume anything.
	for range seq {
		break
	}
	require.Equal(t, 2, buf.Len())
}

func TestSensoryBuffer_TakeConsumes(t *testing.T) {
	clock := newFixedClock()
	buf := NewSensoryBuffer(SensoryBufferConfig{Retention: 30 * time.Second, Now: clock.Now}, zaptest.NewLogger(t))

	require.NoError(t, buf.Record(textObservation("a", 0.5)))
	require.NoError(t, buf.Record(textObservation("b", 0.5)))

	taken := buf.Take(0)
	require.Len(t, taken, 2)
	require.Equal(t, "a", string(taken[0].Payload))
	require.Equal(t, "b", string(taken[1].Payload))
	require.Equal(t, 0, buf.Len())
}

func TestSensoryBuffer_RingCap(t *testing.T) {
	clock := newFixedClock()
	buf := NewSensoryBuffer(SensoryBufferConfig{
		Retention:  time.Minute,
		MaxEntries: 3,
		Now:        clock.Now,
	}, zaptest.NewLogger(t))

	for _, p := range []string{"1", "2", "3", "4"} {
		require.NoError(t, buf.Record(textObservation(p, 0.5)))
	}

	taken := buf.Take(0)
	require.Len(t, taken, 3)
	require.Equal(t, "2", string(taken[0].Payload), "oldest entry is overwritten when the ring is full")
}
