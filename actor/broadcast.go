package actor

import "github.com/lockstepcore/engine/arena"

// Deliver dispatches to a single instance: apply runs against the live
// actor named by (instanceID, version), or is skipped entirely if the id
// is stale. After apply returns, Die removes the actor; otherwise a
// container transition (IsStillCompact() == false) triggers a resize.
func (s *Swarm[A]) Deliver(instanceID uint32, version uint8, apply func(*A) Fate) {
	actorPtr, ok := s.At(instanceID, version)
	if !ok {
		return
	}
	fate := apply(actorPtr)
	if fate == Die {
		s.Kill(instanceID, version)
		return
	}
	if !(*actorPtr).IsStillCompact() {
		s.Resize(instanceID, version)
	}
}

// Broadcast dispatches to every live actor of this type: apply runs
// against a snapshot of (bucket, slot-count) taken at the start of this
// call. Actors added mid-iteration do not receive it. The snapshot is
// maintained per-bucket as receiversTodo; a handler that mutates its own
// actor into a different bucket, or that returns Die, removes the actor
// via swap-remove — if the element swapped into the vacated slot was
// itself an unvisited receiver, it is visited next instead of being
// skipped, and the cursor does not advance; a receiver that stays in
// place, or whose resize keeps it in the same bucket, always advances the
// cursor.
//
// The per-bucket counts are all recorded before the first handler runs,
// not lazily per bucket: a receiver that resizes out of its bucket into a
// later-iterated one lands beyond that bucket's recorded count and is not
// visited a second time there.
func (s *Swarm[A]) Broadcast(apply func(*A) Fate) {
	ranks := s.Ranks()
	todoByRank := make([]int, len(ranks))
	for i, rank := range ranks {
		todoByRank[i] = s.BucketLen(rank)
	}
	for i, rank := range ranks {
		receiversTodo := todoByRank[i]
		cursor := 0
		for cursor < receiversTodo {
			actorPtr := s.AtSlot(rank, cursor)
			id := (*actorPtr).ID()
			fate := apply(actorPtr)

			structurallyChanged := false
			if fate == Die {
				s.vacate(arena.Location{Rank: rank, Slot: cursor})
				s.slots.Free(id.InstanceID)
				structurallyChanged = true
			} else if !(*actorPtr).IsStillCompact() {
				s.Resize(id.InstanceID, id.Version)
				structurallyChanged = true
			}

			if structurallyChanged {
				if newLen := s.BucketLen(rank); newLen < receiversTodo {
					receiversTodo = newLen
					continue // an unvisited receiver swapped in; revisit cursor
				}
			}
			cursor++
		}
	}
}
