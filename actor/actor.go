// Package actor implements Swarm, a homogeneous collection of actors of
// one concrete type with instance and broadcast dispatch, built on the
// slot map and chunked arenas of package arena.
package actor

import (
	"unsafe"

	"github.com/lockstepcore/engine/arena"
	"github.com/lockstepcore/engine/compact"
	"github.com/lockstepcore/engine/rawid"
)

// Fate is a handler's verdict on its actor's continued existence after
// processing one message: Live keeps it, Die removes it.
type Fate int

const (
	Live Fate = iota
	Die
)

// Value is what every concrete actor type must implement: it owns a
// RawId, can have that id installed once at spawn time, and is Compact
// over itself (so the Swarm can detect when it needs to move between size
// buckets). A is intentionally self-referential (F-bounded): the actor
// type supplies its own CompactFrom/Decompact result type. WithID is a
// value-receiver returning the updated copy, rather than a mutator on a
// pointer receiver, so that A's own method set (not *A's) satisfies this
// constraint and Swarm can be instantiated with the value type directly.
type Value[A any] interface {
	compact.Value[A]
	ID() rawid.RawId
	WithID(rawid.RawId) A
}

// Swarm owns a Value[A] type's storage on one peer: a set of sized-bucket
// arenas, a slot map, and (implicitly, via the free-list) retired ids
// awaiting reuse.
type Swarm[A Value[A]] struct {
	buckets     *arena.SizedBuckets[A]
	slots       *arena.SlotMap
	typeID      uint16
	machineID   uint8
	shallowSize int
}

// New returns an empty Swarm for actor type typeID, owned by machineID
// (the local peer).
func New[A Value[A]](typeID uint16, machineID uint8) *Swarm[A] {
	var zero A
	return &Swarm[A]{
		buckets:     arena.NewSizedBuckets[A](),
		slots:       arena.NewSlotMap(),
		typeID:      typeID,
		machineID:   machineID,
		shallowSize: int(unsafe.Sizeof(zero)),
	}
}

// TypeID reports this swarm's dense actor-type id.
func (s *Swarm[A]) TypeID() uint16 { return s.typeID }

// MachineID reports the owning peer.
func (s *Swarm[A]) MachineID() uint8 { return s.machineID }

func (s *Swarm[A]) totalSize(a A) int {
	return s.shallowSize + a.DynamicSizeBytes()
}

// Spawn constructs a new actor in-place at a freshly allocated slot. build
// receives the RawId the slot map assigned; the id is then installed via
// WithID before the actor is stored, so build may ignore it.
func (s *Swarm[A]) Spawn(build func(id rawid.RawId) A) rawid.TypedId[A] {
	instanceID, version := s.slots.Allocate()
	id := rawid.RawId{TypeID: s.typeID, MachineID: s.machineID, InstanceID: instanceID, Version: version}
	a := build(id).WithID(id)
	rank := arena.RankFor(s.totalSize(a))
	_, slot := s.buckets.Push(rank, a)
	s.slots.Associate(instanceID, arena.Location{Rank: rank, Slot: slot})
	return rawid.Of[A](id)
}

// At returns a pointer to the live actor named by (instanceID, version),
// or ok == false if the id is stale: the version no longer matches, so
// the caller should silently drop whatever packet was addressed to it.
func (s *Swarm[A]) At(instanceID uint32, version uint8) (*A, bool) {
	loc, ok := s.slots.Locate(instanceID, version)
	if !ok {
		return nil, false
	}
	return s.buckets.At(loc.Rank, loc.Slot), true
}

// vacate performs only the swap-remove/rebind half of removal: it empties
// loc and, if the bucket's last element swapped into loc to fill the gap,
// rebinds that neighbor's slot-map entry first, so a concurrent lookup
// never observes a mid-move state. It does not touch instanceID's own
// slot-map entry — callers decide separately whether that id is being
// freed (Kill) or has already been re-associated to a new location
// (Resize, which relocates an id rather than retiring it).
func (s *Swarm[A]) vacate(loc arena.Location) {
	_, _, hadSwap := s.buckets.SwapRemove(loc.Rank, loc.Slot)
	if hadSwap {
		moved := s.buckets.At(loc.Rank, loc.Slot)
		s.slots.Associate((*moved).ID().InstanceID, loc)
	}
}

// Kill removes the live actor named by (instanceID, version). It is a
// no-op (returns false) if the id is already stale.
func (s *Swarm[A]) Kill(instanceID uint32, version uint8) bool {
	loc, ok := s.slots.Locate(instanceID, version)
	if !ok {
		return false
	}
	s.vacate(loc)
	s.slots.Free(instanceID)
	return true
}

// Resize re-homes the live actor named by (instanceID, version) into the
// bucket matching its current size: pushed into the new bucket, then
// vacated from the old one, with the slot map updated for both the moved
// actor and any swapped-in neighbor. instanceID itself is preserved and
// never freed: it moves from old to new location, it does not retire.
// If the actor's size still maps to its current bucket, it is
// rewritten in place (re-compacted) without a bucket move.
func (s *Swarm[A]) Resize(instanceID uint32, version uint8) bool {
	loc, ok := s.slots.Locate(instanceID, version)
	if !ok {
		return false
	}
	old := *s.buckets.At(loc.Rank, loc.Slot)
	compacted := old.CompactFrom(old)
	newRank := arena.RankFor(s.totalSize(compacted))
	if newRank == loc.Rank {
		*s.buckets.At(loc.Rank, loc.Slot) = compacted
		return true
	}
	_, newSlot := s.buckets.Push(newRank, compacted)
	newLoc := arena.Location{Rank: newRank, Slot: newSlot}
	s.slots.Associate(instanceID, newLoc)
	s.vacate(loc)
	return true
}

// Ranks returns every bucket rank currently backed by storage, ascending.
func (s *Swarm[A]) Ranks() []int { return s.buckets.Ranks() }

// BucketLen reports the live element count of the bucket for rank.
func (s *Swarm[A]) BucketLen(rank int) int { return s.buckets.Len(rank) }

// AtSlot returns a pointer to the actor at (rank, slot) directly,
// bypassing the version check; used by broadcast iteration, which walks
// buckets structurally rather than by id.
func (s *Swarm[A]) AtSlot(rank, slot int) *A { return s.buckets.At(rank, slot) }

// FirstInstanceID returns the instance id of some live actor of this
// type, used to resolve a singleton actor: singletons are always
// addressed via LocalFirst/GlobalFirst, never a hard-coded instance id.
func (s *Swarm[A]) FirstInstanceID() (uint32, bool) {
	for _, rank := range s.Ranks() {
		if s.BucketLen(rank) > 0 {
			return (*s.AtSlot(rank, 0)).ID().InstanceID, true
		}
	}
	return 0, false
}

// Len returns the total number of live actors across every bucket.
func (s *Swarm[A]) Len() int {
	total := 0
	for _, rank := range s.Ranks() {
		total += s.BucketLen(rank)
	}
	return total
}
