package memory

import (
	"context"
	"time"

	"github.com/BaSui01/synthmind/types"
)

// SnapshotVersion is bumped whenever the snapshot schema changes shape.
const SnapshotVersion = 1

// Snapshot is a point-in-time copy of the durable memory state: the full
// knowledge graph, the episodic log, and the current working set. The
// sensory buffer is deliberately excluded; its contents expire within
// seconds and are not worth persisting.
type Snapshot struct {
	Version   int               `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	Concepts  []*types.Concept  `json:"concepts"`
	Relations []*types.Relation `json:"relations"`
	Episodes  []*types.Episode  `json:"episodes"`
	Working   []WorkingItem     `json:"working"`
}

// Store persists snapshots. Implementations must round-trip a snapshot
// losslessly: Load after Save returns an equal snapshot.
type Store interface {
	Save(ctx context.Context, snapshot *Snapshot) error
	Load(ctx context.Context) (*Snapshot, error)
	Close() error
}

// Snapshot captures the current durable state. It runs under the writer lock
// so the tiers are mutually consistent.
func (c *Coordinator) Snapshot(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	concepts, err := c.graph.Concepts(ctx)
	if err != nil {
		return nil, err
	}
	relations, err := c.graph.Relations(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Version:   SnapshotVersion,
		CreatedAt: c.now(),
		Concepts:  concepts,
		Relations: relations,
		Episodes:  c.episodic.All(),
		Working:   c.working.Snapshot(),
	}, nil
}

// RestoreSnapshot replaces the durable state with the snapshot's contents.
// Restoring preserves IDs, weights, and reinforcement counts exactly.
func (c *Coordinator) RestoreSnapshot(ctx context.Context, snapshot *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snapshot == nil {
		return types.NewValidationError("snapshot is nil")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	graph, ok := c.graph.(*InMemoryKnowledgeGraph)
	if !ok {
		return types.NewValidationError("restore requires the in-memory graph backend")
	}
	graph.Restore(snapshot.Concepts, snapshot.Relations)
	c.episodic.Restore(snapshot.Episodes)
	c.working.Restore(snapshot.Working)
	return nil
}
