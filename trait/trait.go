// Package trait implements dispatch to actor-trait types: broadcasting to
// a trait means sending to every registered implementor's local-broadcast
// id, and a concrete actor id can be reinterpreted as a trait id once the
// registry confirms the concrete type actually implements that trait.
package trait

import (
	"fmt"

	"github.com/lockstepcore/engine/rawid"
	"github.com/lockstepcore/engine/world"
)

// Broadcast sends payload under messageName to every actor type
// registered as an implementor of traitName, via each implementor's own
// local-broadcast id. A trait with zero implementors sends nothing (not an
// error: the trait may simply not have been implemented by anything yet
// on this build).
func Broadcast(w *world.World, traitName, messageName string, payload any) {
	traitID, ok := w.Registry().TraitID(traitName)
	if !ok {
		panic(fmt.Sprintf("trait: unknown trait %q", traitName))
	}
	for _, actorID := range w.Registry().Implementors(traitID) {
		recipient := rawid.RawId{TypeID: actorID, MachineID: w.LocalMachineID(), InstanceID: rawid.LocalBroadcastInstance}
		w.Send(recipient, messageName, payload)
	}
}

// As reinterprets raw (a concrete actor id) as a trait id for Trait,
// verifying against the registry that raw's concrete type is actually a
// registered implementor — rawid.IntoTraitId itself performs no such
// check, so callers going through package trait get the check for free.
func As[Trait any](w *world.World, traitName string, raw rawid.RawId) rawid.TypedId[Trait] {
	traitID, ok := w.Registry().TraitID(traitName)
	if !ok {
		panic(fmt.Sprintf("trait: unknown trait %q", traitName))
	}
	for _, actorID := range w.Registry().Implementors(traitID) {
		if actorID == raw.TypeID {
			return rawid.TypedId[Trait]{Raw: raw}
		}
	}
	panic(fmt.Sprintf("trait: actor type %q is not a registered implementor of %q", w.Registry().ActorName(raw.TypeID), traitName))
}
