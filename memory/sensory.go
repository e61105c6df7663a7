package memory

import (
	"iter"
	"sync"
	"time"

	"github.com/BaSui01/synthmind/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SensoryBufferConfig configures the sensory buffer.
type SensoryBufferConfig struct {
	// Retention is how long an observation stays visible before it expires.
	Retention time.Duration

	// MaxEntries caps the ring; when full, the oldest observation is
	// overwritten. 0 means unbounded.
	MaxEntries int

	// Now is used in tests. Defaults to time.Now.
	Now func() time.Time
}

// DefaultSensoryBufferConfig returns the stated defaults (30s retention).
func DefaultSensoryBufferConfig() SensoryBufferConfig {
	return SensoryBufferConfig{
		Retention:  30 * time.Second,
		MaxEntries: 1024,
	}
}

// SensoryBuffer is a time-windowed ring of raw observations. Expiry is
// evaluated lazily on access, never by a background timer. The buffer owns
// its observations until they are taken by the coordinator or expire.
type SensoryBuffer struct {
	mu      sync.Mutex
	entries []types.Observation

	retention time.Duration
	max       int
	now       func() time.Time
	logger    *zap.Logger
}

// NewSensoryBuffer creates a sensory buffer.
func NewSensoryBuffer(config SensoryBufferConfig, logger *zap.Logger) *SensoryBuffer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Retention <= 0 {
		config.Retention = DefaultSensoryBufferConfig().Retention
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &SensoryBuffer{
		entries:   make([]types.Observation, 0),
		retention: config.Retention,
		max:       config.MaxEntries,
		now:       now,
		logger:    logger.With(zap.String("component", "sensory_buffer")),
	}
}

// Record appends an observation, stamping it with the current time and a
// generated ID when missing. Malformed observations are rejected with a
// VALIDATION error.
func (b *SensoryBuffer) Record(obs types.Observation) error {
	if err := obs.Validate(); err != nil {
		return err
	}
	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	obs.Timestamp = b.now()
	b.entries = append(b.entries, obs)
	if b.max > 0 && len(b.entries) > b.max {
		b.entries = b.entries[len(b.entries)-b.max:]
	}

	b.logger.Debug("observation recorded",
		zap.String("id", obs.ID),
		zap.String("modality", string(obs.Modality)))
	return nil
}

// Drain purges observations older than maxAge and returns a lazy, finite,
// restartable sequence over the survivors. Each range over the sequence
// re-evaluates expiry, so callers can hold the sequence and replay it.
// Drain does not consume observations; see Take.
func (b *SensoryBuffer) Drain(maxAge time.Duration) iter.Seq[types.Observation] {
	return func(yield func(types.Observation) bool) {
		for _, obs := range b.unexpired(maxAge) {
			if !yield(obs) {
				return
			}
		}
	}
}

// Take purges expired observations, removes the survivors from the buffer,
// and returns them in arrival order. This is the consumption path used by the
// coordinator's tick.
func (b *SensoryBuffer) Take(maxAge time.Duration) []types.Observation {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.purgeLocked(maxAge)
	b.entries = b.entries[:0]
	return kept
}

// Len reports the number of unexpired observations.
func (b *SensoryBuffer) Len() int {
	return len(b.unexpired(b.retention))
}

// unexpired purges expired entries under lock and returns a snapshot copy.
func (b *SensoryBuffer) unexpired(maxAge time.Duration) []types.Observation {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.purgeLocked(maxAge)
}

func (b *SensoryBuffer) purgeLocked(maxAge time.Duration) []types.Observation {
	if maxAge <= 0 || maxAge > b.retention {
		maxAge = b.retention
	}
	cutoff := b.now().Add(-maxAge)

	kept := b.entries[:0]
	for _, obs := range b.entries {
		if obs.Timestamp.After(cutoff) || obs.Timestamp.Equal(cutoff) {
			kept = append(kept, obs)
		}
	}
	b.entries = kept

	out := make([]types.Observation, len(kept))
	copy(out, kept)
	return out
}
