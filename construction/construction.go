// Package construction implements a generic Construct/Morph/Destruct
// pipeline: queued groups of actions, applied one group at a time behind
// a pending-acknowledgement barrier.
//
// Prototype keys are plain strings (names): every use this runtime has
// for a prototype key is a name, so the pipeline is not generic over a
// second key type.
package construction

import (
	"fmt"

	"github.com/lockstepcore/engine/compact"
	"github.com/lockstepcore/engine/rawid"
)

// Prototype builds the constructables for one entry of new_prototypes.
type Prototype interface {
	// Construct spawns whatever actors this prototype describes and
	// returns their ids. selfID is the Construction actor's own id, so
	// spawned actors can report ActionDone back to it.
	Construct(selfID rawid.RawId, w Sender) []rawid.RawId
}

// Sender is the subset of *world.World that package construction needs,
// kept narrow so Prototype implementations do not have to import package
// world just to satisfy this interface in tests.
type Sender interface {
	Send(recipient rawid.RawId, messageName string, payload any)
	SendFrom(sender, recipient rawid.RawId, messageName string, payload any)
}

// Action is one of the three verbs this pipeline groups into barriered
// action groups.
type Action int

const (
	Construct Action = iota
	Morph
	Destruct
)

// ActionItem is one action within a queued group.
type ActionItem struct {
	Kind Action

	// PrototypeID is: the prototype to build, for Construct; the new
	// prototype's key, for Morph; the prototype whose constructables
	// must die, for Destruct.
	PrototypeID string
	// OldPrototypeID is the existing key being morphed away from; only
	// meaningful for Morph.
	OldPrototypeID string
	// NewPrototype is the Prototype object: used for Construct when
	// non-nil (otherwise looked up from registered new_prototypes) and
	// carried in the morph message for Morph.
	NewPrototype Prototype
}

// MorphMessage is sent to every existing constructable of OldPrototypeID
// when a Morph action runs.
type MorphMessage struct {
	NewPrototype Prototype
	Coordinator  rawid.RawId
}

// DestructMessage is sent to every existing constructable of a
// PrototypeID when a Destruct action runs.
type DestructMessage struct {
	Coordinator rawid.RawId
}

// ActionDoneMessage is sent back to the Construction actor by a
// constructable once it has finished reacting to Morph or Destruct, or
// once a newly Constructed actor has finished its own setup.
type ActionDoneMessage struct {
	ID rawid.RawId
}

// Construction is the generic pipeline actor itself. All of its state
// lives in compact containers so a swarm-held Construction migrates
// between size buckets as its queues grow and shrink, and so iteration
// over its records is deterministic across peers.
type Construction struct {
	raw rawid.RawId

	constructed   *compact.Map[string, *compact.Vec[rawid.RawId]]
	newPrototypes *compact.Map[string, Prototype]
	queuedGroups  *compact.Vec[[]ActionItem]
	pending       *compact.Vec[rawid.RawId]
}

// New returns an empty Construction actor.
func New() Construction {
	return Construction{
		constructed:   compact.NewMap[string, *compact.Vec[rawid.RawId]](),
		newPrototypes: compact.NewMap[string, Prototype](),
		queuedGroups:  compact.NewVec[[]ActionItem](),
		pending:       compact.NewVec[rawid.RawId](),
	}
}

func (c Construction) ID() rawid.RawId                    { return c.raw }
func (c Construction) WithID(id rawid.RawId) Construction { c.raw = id; return c }

// DynamicSizeBytes sums the container tails. Each per-prototype id list
// enters only as the pointer-sized value in constructed's per-entry
// accounting; the ids held inside those lists are not counted.
func (c Construction) DynamicSizeBytes() int {
	return c.constructed.DynamicSizeBytes() +
		c.newPrototypes.DynamicSizeBytes() +
		c.queuedGroups.DynamicSizeBytes() +
		c.pending.DynamicSizeBytes()
}

func (c Construction) IsStillCompact() bool {
	return c.constructed.IsStillCompact() &&
		c.newPrototypes.IsStillCompact() &&
		c.queuedGroups.IsStillCompact() &&
		c.pending.IsStillCompact()
}

func (c Construction) CompactFrom(src Construction) Construction {
	src.constructed = src.constructed.CompactFrom(src.constructed)
	src.newPrototypes = src.newPrototypes.CompactFrom(src.newPrototypes)
	src.queuedGroups = src.queuedGroups.CompactFrom(src.queuedGroups)
	src.pending = src.pending.CompactFrom(src.pending)
	return src
}

func (c Construction) Decompact() Construction {
	c.constructed = c.constructed.Decompact()
	c.newPrototypes = c.newPrototypes.Decompact()
	c.queuedGroups = c.queuedGroups.Decompact()
	c.pending = c.pending.Decompact()
	return c
}

// RegisterPrototype makes proto available to a future Construct action
// under id.
func (c *Construction) RegisterPrototype(id string, proto Prototype) {
	c.newPrototypes.Put(id, proto)
}

// QueueGroup appends a barriered group of actions, run only once every
// prior group's pending_constructables have all reported ActionDone.
func (c *Construction) QueueGroup(actions []ActionItem) {
	c.queuedGroups.Push(actions)
}

// Pending reports the number of constructables whose acknowledgement is
// still outstanding: nonzero on every tick between a group starting and
// finishing.
func (c *Construction) Pending() int { return c.pending.Len() }

// OnTick starts the next queued group if the previous one's barrier has
// cleared. The swarm holding the pipeline registers this under the
// Temporal trait's tick message.
func (c *Construction) OnTick(w Sender) {
	if c.pending.Len() != 0 || c.queuedGroups.Len() == 0 {
		return
	}
	group := c.queuedGroups.Remove(0)
	for _, action := range group {
		c.run(action, w)
	}
}

func (c *Construction) run(action ActionItem, w Sender) {
	switch action.Kind {
	case Construct:
		proto := action.NewPrototype
		if proto == nil {
			proto, _ = c.newPrototypes.Get(action.PrototypeID)
		}
		if proto == nil {
			panic(fmt.Sprintf("construction: Construct action for unregistered prototype %q", action.PrototypeID))
		}
		ids := proto.Construct(c.raw, w)
		c.constructed.Put(action.PrototypeID, compact.VecOf(ids...))
		for _, id := range ids {
			c.pending.Push(id)
		}

	case Morph:
		ids, _ := c.constructed.Get(action.OldPrototypeID)
		if ids == nil {
			ids = compact.NewVec[rawid.RawId]()
		}
		ids.Iter(func(_ int, id rawid.RawId) bool {
			w.SendFrom(c.raw, id, "Morph", MorphMessage{NewPrototype: action.NewPrototype, Coordinator: c.raw})
			c.pending.Push(id)
			return true
		})
		c.constructed.Remove(action.OldPrototypeID)
		c.constructed.Put(action.PrototypeID, ids)

	case Destruct:
		ids, _ := c.constructed.Get(action.PrototypeID)
		if ids == nil {
			return
		}
		ids.Iter(func(_ int, id rawid.RawId) bool {
			w.SendFrom(c.raw, id, "Destruct", DestructMessage{Coordinator: c.raw})
			c.pending.Push(id)
			return true
		})
		c.constructed.Remove(action.PrototypeID)
	}
}

// OnActionDone clears one outstanding acknowledgement. The swarm holding
// the pipeline registers this under the action-done message name its
// constructables reply with.
func (c *Construction) OnActionDone(msg ActionDoneMessage, _ Sender) {
	for i := 0; i < c.pending.Len(); i++ {
		if c.pending.At(i) == msg.ID {
			c.pending.Remove(i)
			return
		}
	}
}
