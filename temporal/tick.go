package temporal

import (
	"fmt"

	"github.com/lockstepcore/engine/actor"
	"github.com/lockstepcore/engine/rawid"
	"github.com/lockstepcore/engine/trait"
	"github.com/lockstepcore/engine/world"
)

// SpawnMessage is the payload sent to the registered Time spawner; Time
// has no construction parameters, so this is empty.
type SpawnMessage struct{}

// RegisterSingleton wires a spawner for Time under messageName (typically
// called once during Setup's handler stage, with the actual spawn
// happening during the singleton stage via world.Spawn).
func RegisterSingleton(w *world.World, swarm *actor.Swarm[Time], messageName string) {
	world.RegisterSpawner(w, swarm, messageName, func(SpawnMessage, *world.World) Time {
		return New()
	})
}

// Advance runs one tick of the temporal core: increment Time.Tick,
// broadcast a TickMessage to every implementor of
// traitName, then deliver WakeMessage to every sleeper due this tick.
// Callers run this once per simulation step, before draining, typically
// from the same place that calls World.Step.
func Advance(w *world.World, swarm *actor.Swarm[Time], traitName, tickMessageName, wakeMessageName string) {
	id, ok := world.LocalFirst(swarm)
	if !ok {
		return
	}
	clock, found := swarm.At(id.Raw.InstanceID, id.Raw.Version)
	if !found {
		return
	}
	clock.Tick++
	due := clock.popDue(clock.Tick)

	trait.Broadcast(w, traitName, tickMessageName, TickMessage{Dt: 1, Instant: clock.Tick})
	for _, sleeper := range due {
		w.Send(sleeper, wakeMessageName, WakeMessage{Instant: clock.Tick})
	}
}

// WakeUpIn registers sleeper (any actor's RawId) to receive a wake
// message ticksDelta ticks from now, by mutating the singleton Time
// actor directly. Handlers call this instead of sending Time a message,
// since Time has no registered handler for "schedule a wake": waking a
// sleeper is a direct operation on the Time actor's wake queue, not a
// message send.
func WakeUpIn(swarm *actor.Swarm[Time], ticksDelta uint64, sleeper rawid.RawId) error {
	id, ok := world.LocalFirst(swarm)
	if !ok {
		return fmt.Errorf("temporal: WakeUpIn called before the Time singleton was spawned")
	}
	clock, found := swarm.At(id.Raw.InstanceID, id.Raw.Version)
	if !found {
		return fmt.Errorf("temporal: Time singleton id is stale")
	}
	clock.WakeUpIn(ticksDelta, sleeper)
	return nil
}
