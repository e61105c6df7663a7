package memory

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/BaSui01/synthmind/types"
	"go.uber.org/zap"
)

// WorkingItem is an active fact held in working memory. Items are owned
// exclusively by the working set; salience is mutable, everything else is
// fixed at admission.
type WorkingItem struct {
	ID          string         `json:"id"`
	Content     string         `json:"content"`
	Embedding   []float64      `json:"embedding,omitempty"`
	Salience    float64        `json:"salience"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	AdmittedAt  time.Time      `json:"admitted_at"`
	LastAccess  time.Time      `json:"last_access"`
	AccessCount int            `json:"access_count"`
}

// WorkingMemoryConfig configures the working set.
type WorkingMemoryConfig struct {
	// Capacity is the hard item limit (default 7).
	Capacity int

	// HalfLife controls the exponential recency decay applied to salience
	// when ranking eviction candidates.
	HalfLife time.Duration

	// Now is used in tests. Defaults to time.Now.
	Now func() time.Time
}

// DefaultWorkingMemoryConfig returns the stated defaults.
func DefaultWorkingMemoryConfig() WorkingMemoryConfig {
	return WorkingMemoryConfig{
		Capacity: 7,
		HalfLife: 5 * time.Minute,
	}
}

// EvictionObserver is notified whenever an item leaves the working set under
// capacity pressure. The coordinator uses this hook to decide promotion into
// episodic memory.
type EvictionObserver func(item WorkingItem)

// WorkingMemory is the fixed-capacity active set. The size never exceeds
// capacity: every admission that would overflow evicts the item with the
// lowest salience × recency-decay score, breaking ties by oldest last access.
type WorkingMemory struct {
	mu    sync.RWMutex
	items map[string]*WorkingItem

	capacity int
	halfLife time.Duration
	now      func() time.Time
	onEvict  EvictionObserver
	logger   *zap.Logger
}

// NewWorkingMemory creates a working memory with the given capacity.
func NewWorkingMemory(config WorkingMemoryConfig, logger *zap.Logger) *WorkingMemory {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultWorkingMemoryConfig()
	if config.Capacity <= 0 {
		config.Capacity = def.Capacity
	}
	if config.HalfLife <= 0 {
		config.HalfLife = def.HalfLife
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &WorkingMemory{
		items:    make(map[string]*WorkingItem),
		capacity: config.Capacity,
		halfLife: config.HalfLife,
		now:      now,
		logger:   logger.With(zap.String("component", "working_memory")),
	}
}

// SetEvictionObserver installs the eviction hook. Must be called before the
// memory is shared; the observer runs synchronously inside Admit.
func (w *WorkingMemory) SetEvictionObserver(fn EvictionObserver) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onEvict = fn
}

// Admit inserts a new item or refreshes an existing one by ID. When the set
// would exceed capacity, the lowest-ranked item is evicted first; the
// admission itself therefore never violates the capacity invariant.
func (w *WorkingMemory) Admit(item WorkingItem) error {
	if item.ID == "" {
		return types.NewValidationError("working item id is required")
	}
	if item.Salience < 0 || item.Salience > 1 {
		return types.NewValidationError("working item salience must be in [0,1]")
	}

	w.mu.Lock()

	now := w.now()
	if existing, ok := w.items[item.ID]; ok {
		existing.Salience = item.Salience
		existing.LastAccess = now
		existing.AccessCount++
		w.mu.Unlock()
		return nil
	}

	var evicted *WorkingItem
	if len(w.items) >= w.capacity {
		evicted = w.evictLowestLocked()
	}

	item.AdmittedAt = now
	item.LastAccess = now
	stored := item
	w.items[item.ID] = &stored

	if len(w.items) > w.capacity {
		// Unreachable given the eviction above; a breach here means the
		// eviction logic is broken and must not be papered over.
		w.mu.Unlock()
		return types.NewError(types.ErrCapacityViolation, "working memory exceeded capacity after admit")
	}

	onEvict := w.onEvict
	w.mu.Unlock()

	if evicted != nil {
		w.logger.Debug("working item evicted",
			zap.String("id", evicted.ID),
			zap.Float64("salience", evicted.Salience))
		if onEvict != nil {
			onEvict(*evicted)
		}
	}
	return nil
}

// Access refreshes recency for the item and returns a copy, or a NOT_FOUND
// error when the id is absent.
func (w *WorkingMemory) Access(id string) (WorkingItem, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	item, ok := w.items[id]
	if !ok {
		return WorkingItem{}, types.NewNotFoundError("working item", id)
	}
	item.LastAccess = w.now()
	item.AccessCount++
	return *item, nil
}

// Snapshot returns the current set ordered by descending rank score without
// mutating recency. This is the planner's read path.
func (w *WorkingMemory) Snapshot() []WorkingItem {
	w.mu.RLock()
	defer w.mu.RUnlock()

	now := w.now()
	out := make([]WorkingItem, 0, len(w.items))
	for _, item := range w.items {
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		sa, sb := w.rank(a, now), w.rank(b, now)
		if sa != sb {
			return sa > sb
		}
		if !a.LastAccess.Equal(b.LastAccess) {
			return a.LastAccess.After(b.LastAccess)
		}
		return a.ID < b.ID
	})
	return out
}

// Restore replaces the working set with the snapshot items, preserving
// recency and access counts. When the snapshot exceeds capacity, the
// lowest-ranked items are dropped until the invariant holds again.
func (w *WorkingMemory) Restore(items []WorkingItem) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items = make(map[string]*WorkingItem, len(items))
	for _, item := range items {
		stored := item
		w.items[stored.ID] = &stored
	}
	for len(w.items) > w.capacity {
		w.evictLowestLocked()
	}
}

// Len reports the current size. Always ≤ capacity.
func (w *WorkingMemory) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.items)
}

// rank is the eviction score: salience damped by exponential recency decay.
func (w *WorkingMemory) rank(item WorkingItem, now time.Time) float64 {
	age := now.Sub(item.LastAccess)
	if age < 0 {
		age = 0
	}
	lambda := math.Ln2 / w.halfLife.Seconds()
	return item.Salience * math.Exp(-lambda*age.Seconds())
}

// evictLowestLocked removes and returns the lowest-ranked item, breaking
// score ties by oldest last access, then by ID for full determinism.
func (w *WorkingMemory) evictLowestLocked() *WorkingItem {
	now := w.now()
	var victim *WorkingItem
	var victimScore float64
	for _, item := range w.items {
		score := w.rank(*item, now)
		switch {
		case victim == nil,
			score < victimScore,
			score == victimScore && item.LastAccess.Before(victim.LastAccess),
			score == victimScore && item.LastAccess.Equal(victim.LastAccess) && item.ID < victim.ID:
			victim = item
			victimScore = score
		}
	}
	if victim == nil {
		return nil
	}
	delete(w.items, victim.ID)
	out := *victim
	return &out
}
