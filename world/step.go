package world

import (
	"fmt"

	"github.com/lockstepcore/engine/actor"
	"github.com/lockstepcore/engine/rawid"
)

// Step drains every pending route until none remain, in (actor type id
// ascending, message id ascending) sub-pass order. It panics if draining
// does not converge within maxSubPasses sub-passes, a watchdog against
// runaway message loops. It returns the number of sub-passes the drain
// took, which package network reports as the lockstep_subpasses_per_step
// histogram.
func (w *World) Step() int {
	subpass := 0
	for {
		pending := w.collectPending()
		if len(pending) == 0 {
			if subpass > 0 {
				w.log.Debug("step drained", "subpasses", subpass)
			}
			return subpass
		}
		subpass++
		if subpass > maxSubPasses {
			panic(fmt.Sprintf("world: Step did not converge within %d sub-passes", maxSubPasses))
		}
		for _, r := range pending {
			for _, p := range r.in.Drain() {
				if w.dispatchObserver != nil {
					w.dispatchObserver(r.key.actorTypeID, r.key.messageName, p.Recipient, p.Payload)
				}
				w.dispatch(r, p)
			}
		}
	}
}

// Spawn sends payload under messageName to swarm's type, routed to a
// registered spawner (see RegisterSpawner): a convenience for sending a
// spawn message to the local-broadcast of A. The returned id is not known
// until the spawner actually runs during the next Step, so callers that
// need it immediately should have the spawner itself report the new id
// back via SendFrom to a sender-supplied reply address.
func Spawn[A actor.Value[A]](w *World, swarm *actor.Swarm[A], messageName string, payload any) {
	w.Send(rawid.RawId{TypeID: swarm.TypeID(), MachineID: w.localMachine, InstanceID: rawid.LocalBroadcastInstance}, messageName, payload)
}

// LocalBroadcastID returns the id addressing every live instance of
// swarm's type on this peer only.
func LocalBroadcastID[A actor.Value[A]](w *World, swarm *actor.Swarm[A]) rawid.TypedId[A] {
	return rawid.Of[A](rawid.RawId{TypeID: swarm.TypeID(), MachineID: w.localMachine, InstanceID: rawid.LocalBroadcastInstance})
}

// GlobalBroadcastID returns the id addressing every live instance of
// swarm's type on every peer.
func GlobalBroadcastID[A actor.Value[A]](swarm *actor.Swarm[A]) rawid.TypedId[A] {
	return rawid.Of[A](rawid.RawId{TypeID: swarm.TypeID(), InstanceID: rawid.BroadcastInstance})
}

// LocalFirst resolves a singleton actor explicitly rather than via an
// implicit instance_id==0 convention: the first live instance of swarm's
// type on this peer, in bucket-then-slot order. ok is false if swarm
// currently holds no instances.
func LocalFirst[A actor.Value[A]](swarm *actor.Swarm[A]) (rawid.TypedId[A], bool) {
	for _, rank := range swarm.Ranks() {
		if swarm.BucketLen(rank) > 0 {
			return rawid.Of[A]((*swarm.AtSlot(rank, 0)).ID()), true
		}
	}
	return rawid.TypedId[A]{}, false
}

// GlobalFirst resolves the canonical cross-peer singleton of swarm's type.
// Because setup runs identically (and deterministically) on every peer,
// a singleton actor type spawned once during the singleton-seeding setup
// stage receives the same (instance id, version) on every peer; GlobalFirst
// takes advantage of this by returning LocalFirst's id with MachineID
// pinned to 0, the fixed convention for "the" canonical owner of a
// process-wide singleton. A swarm that is not seeded identically on every
// peer (i.e. one not spawned during the singleton stage of Setup) must not
// be addressed this way.
func GlobalFirst[A actor.Value[A]](swarm *actor.Swarm[A]) (rawid.TypedId[A], bool) {
	id, ok := LocalFirst(swarm)
	if !ok {
		return rawid.TypedId[A]{}, false
	}
	id.Raw.MachineID = 0
	return id, true
}
