// Package temporal implements the temporal dispatch layer: a singleton
// Time actor driving a per-tick broadcast to the Temporal trait and a
// sleeper wake-queue, on top of packages actor,
// world, and trait.
package temporal

import (
	"github.com/lockstepcore/engine/compact"
	"github.com/lockstepcore/engine/rawid"

	"golang.org/x/exp/slices"
)

// TickMessage is broadcast to every registered implementor of the
// Temporal trait once per tick.
type TickMessage struct {
	Dt      uint64
	Instant uint64
}

// WakeMessage is delivered to a sleeper exactly once, by the first
// Advance whose tick is at or past the tick it registered for.
type WakeMessage struct {
	Instant uint64
}

// Time is the process's single clock actor: a tick counter and a wake
// queue keyed by absolute tick. It is always a singleton, so unlike the
// actor types Swarm's resize machinery is built for, its Compact
// implementation below is intentionally trivial — IsStillCompact always
// reports true, so it is never migrated between size buckets.
type Time struct {
	raw       rawid.RawId
	Tick      uint64
	wakeQueue *compact.Map[uint64, *compact.Vec[rawid.RawId]]
}

// New returns a fresh Time actor, tick 0, empty wake queue.
func New() Time {
	return Time{wakeQueue: compact.NewMap[uint64, *compact.Vec[rawid.RawId]]()}
}

func (t Time) ID() rawid.RawId              { return t.raw }
func (t Time) WithID(id rawid.RawId) Time   { t.raw = id; return t }

// DynamicSizeBytes reports the wake queue's footprint; exactness does not
// matter since IsStillCompact never reports a transition.
func (t Time) DynamicSizeBytes() int { return t.wakeQueue.DynamicSizeBytes() }

func (t Time) IsStillCompact() bool       { return true }
func (t Time) CompactFrom(src Time) Time  { return src }
func (t Time) Decompact() Time            { return t }

// WakeUpIn registers sleeper to receive a WakeMessage ticksDelta ticks
// from now. Ordering among sleepers due on the same tick is insertion
// order.
func (t *Time) WakeUpIn(ticksDelta uint64, sleeper rawid.RawId) {
	due := t.Tick + ticksDelta
	q, ok := t.wakeQueue.Get(due)
	if !ok {
		q = compact.NewVec[rawid.RawId]()
		t.wakeQueue.Put(due, q)
	}
	q.Push(sleeper)
}

// popDue removes and returns every sleeper whose wake tick is <= tick, in
// ascending due-tick order, insertion order within one tick. A delta-zero
// registration made after its own tick already ran is swept up here one
// tick late rather than lingering forever.
func (t *Time) popDue(tick uint64) []rawid.RawId {
	var dueTicks []uint64
	t.wakeQueue.Iter(func(due uint64, _ *compact.Vec[rawid.RawId]) bool {
		if due <= tick {
			dueTicks = append(dueTicks, due)
		}
		return true
	})
	slices.Sort(dueTicks)

	var sleepers []rawid.RawId
	for _, due := range dueTicks {
		q, _ := t.wakeQueue.Get(due)
		q.Iter(func(_ int, id rawid.RawId) bool {
			sleepers = append(sleepers, id)
			return true
		})
		t.wakeQueue.Remove(due)
	}
	return sleepers
}
