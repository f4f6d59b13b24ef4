// Package registry implements the process-wide TypeRegistry: two
// dense-integer namespaces (concrete actor types and actor-trait types),
// seeded during setup and frozen before the first message is sent.
package registry

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// TypeRegistry assigns dense u16 ids to actor type names and trait-type
// names, and tracks which concrete types implement which traits. The same
// registry instance is shared by every package (world, network, trait)
// that needs to translate between a type's name and its RawId-carried
// index.
type TypeRegistry struct {
	frozen bool

	actorNameToID map[string]uint16
	actorIDToName []string

	traitNameToID map[string]uint16
	traitIDToName []string

	// implementors[traitID] lists the actorIDs registered as
	// implementors of that trait, in registration order.
	implementors map[uint16][]uint16

	// handlers[(actorID,messageID)] records that a handler exists, used
	// by Freeze's setup-time check that every trait implementor handles
	// each of the trait's declared messages.
	handlers map[handlerKey]struct{}

	// traitMessages[traitID] is the set of message type names a trait
	// declares; every implementor must register a handler for each.
	traitMessages map[uint16][]string
}

type handlerKey struct {
	actorID   uint16
	message   string
}

// New returns an empty, unfrozen TypeRegistry.
func New() *TypeRegistry {
	return &TypeRegistry{
		actorNameToID: make(map[string]uint16),
		traitNameToID: make(map[string]uint16),
		implementors:  make(map[uint16][]uint16),
		handlers:      make(map[handlerKey]struct{}),
		traitMessages: make(map[uint16][]string),
	}
}

func (r *TypeRegistry) mustNotBeFrozen(action string) {
	if r.frozen {
		panic(fmt.Sprintf("registry: cannot %s after Freeze", action))
	}
}

// RegisterActorType assigns the next dense id to name and returns it.
// Registering the same name twice panics: duplicate type registration is
// a setup error.
func (r *TypeRegistry) RegisterActorType(name string) uint16 {
	r.mustNotBeFrozen("register actor type " + name)
	if _, exists := r.actorNameToID[name]; exists {
		panic(fmt.Sprintf("registry: actor type %q registered twice", name))
	}
	id := uint16(len(r.actorIDToName))
	r.actorNameToID[name] = id
	r.actorIDToName = append(r.actorIDToName, name)
	return id
}

// RegisterTraitType assigns the next dense id to a trait name, declaring
// the set of message kinds implementors must handle.
func (r *TypeRegistry) RegisterTraitType(name string, messages []string) uint16 {
	r.mustNotBeFrozen("register trait type " + name)
	if _, exists := r.traitNameToID[name]; exists {
		panic(fmt.Sprintf("registry: trait type %q registered twice", name))
	}
	id := uint16(len(r.traitIDToName))
	r.traitNameToID[name] = id
	r.traitIDToName = append(r.traitIDToName, name)
	msgs := make([]string, len(messages))
	copy(msgs, messages)
	r.traitMessages[id] = msgs
	return id
}

// RegisterImplementor records that the concrete actor type actorID
// implements trait traitID.
func (r *TypeRegistry) RegisterImplementor(traitID, actorID uint16) {
	r.mustNotBeFrozen("register implementor")
	r.implementors[traitID] = append(r.implementors[traitID], actorID)
}

// RegisterHandler records that actorID has a handler for messageName,
// consulted by Freeze's sanity check. Package world routes packets
// through its own route table, not through this record.
func (r *TypeRegistry) RegisterHandler(actorID uint16, messageName string) {
	r.mustNotBeFrozen("register handler")
	r.handlers[handlerKey{actorID, messageName}] = struct{}{}
}

// HasHandler reports whether actorID has a registered handler for
// messageName. Freeze calls this; world.Send decides ErrNoHandler from
// its own route table instead.
func (r *TypeRegistry) HasHandler(actorID uint16, messageName string) bool {
	_, ok := r.handlers[handlerKey{actorID, messageName}]
	return ok
}

// ActorID looks up the dense id for a registered actor type name.
func (r *TypeRegistry) ActorID(name string) (uint16, bool) {
	id, ok := r.actorNameToID[name]
	return id, ok
}

// ActorName is the inverse of ActorID.
func (r *TypeRegistry) ActorName(id uint16) string {
	if int(id) >= len(r.actorIDToName) {
		return ""
	}
	return r.actorIDToName[id]
}

// TraitID looks up the dense id for a registered trait name.
func (r *TypeRegistry) TraitID(name string) (uint16, bool) {
	id, ok := r.traitNameToID[name]
	return id, ok
}

// Implementors returns the actorIDs implementing traitID, in registration
// order, used by trait.Broadcast to fan a trait broadcast out to every
// registered implementor's local-broadcast id.
func (r *TypeRegistry) Implementors(traitID uint16) []uint16 {
	return r.implementors[traitID]
}

// NumActorTypes reports how many concrete actor types are registered.
func (r *TypeRegistry) NumActorTypes() int { return len(r.actorIDToName) }

// ActorIDsAscending returns every registered actor type id, ascending.
// world.Step does not use it: its drain order comes from collectPending,
// which sorts the pending routes by (type id, message id) itself.
func (r *TypeRegistry) ActorIDsAscending() []uint16 {
	ids := make([]uint16, len(r.actorIDToName))
	for i := range ids {
		ids[i] = uint16(i)
	}
	return ids
}

// Freeze performs the setup-time sanity check and prevents further
// registration. It panics (a fatal setup error) if any trait has an
// implementor missing a handler for one of the trait's declared
// messages.
func (r *TypeRegistry) Freeze() {
	if r.frozen {
		return
	}
	var missing []string
	for traitID, msgs := range r.traitMessages {
		for _, actorID := range r.implementors[traitID] {
			for _, msg := range msgs {
				if !r.HasHandler(actorID, msg) {
					missing = append(missing, fmt.Sprintf(
						"actor %q implements trait %q but has no handler for %q",
						r.ActorName(actorID), r.traitIDToName[traitID], msg))
				}
			}
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		panic(fmt.Sprintf("registry: setup-time sanity check failed:\n%s", join(missing)))
	}
	r.frozen = true
}

// Frozen reports whether Freeze has been called.
func (r *TypeRegistry) Frozen() bool { return r.frozen }

func join(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += "  " + l
	}
	return out
}

// NameMapping is the wire form of the registry exchanged during
// handshake, so ids are consistent across peers even if registration
// order differs.
type NameMapping struct {
	ActorNames []string
	TraitNames []string
}

// Export produces the NameMapping for this registry, in id order.
func (r *TypeRegistry) Export() NameMapping {
	return NameMapping{
		ActorNames: append([]string(nil), r.actorIDToName...),
		TraitNames: append([]string(nil), r.traitIDToName...),
	}
}

// Matches reports whether m is identical to this registry's exported
// mapping. A mismatch during handshake is a setup error: an inconsistent
// TypeRegistry across peers.
func (r *TypeRegistry) Matches(m NameMapping) bool {
	exported := r.Export()
	if len(exported.ActorNames) != len(m.ActorNames) || len(exported.TraitNames) != len(m.TraitNames) {
		return false
	}
	for i := range exported.ActorNames {
		if exported.ActorNames[i] != m.ActorNames[i] {
			return false
		}
	}
	for i := range exported.TraitNames {
		if exported.TraitNames[i] != m.TraitNames[i] {
			return false
		}
	}
	return true
}
