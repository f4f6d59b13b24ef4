package world

import (
	"encoding/json"
	"fmt"

	"github.com/lockstepcore/engine/actor"
	"github.com/lockstepcore/engine/inbox"
	"github.com/lockstepcore/engine/rawid"
)

// route is the per-(actor type, message) dispatch unit: one Inbox plus the
// closures RegisterHandler/RegisterSpawner install to get from a boxed
// payload back to a call against the concrete Swarm[A]. Payload is always
// the concrete M value boxed as any — the closures recover M with a type
// assertion, so there is exactly one unchecked cast per delivered packet,
// not per registration.
type route struct {
	key       routeKey
	messageID uint16
	in        *inbox.Inbox[any]

	// deliver handles an ordinary-instance or local-broadcast packet.
	// Exactly one of deliver/spawn is set.
	deliver func(w *World, p inbox.Packet[any])
	spawn   func(w *World, p inbox.Packet[any])

	// decode turns wire bytes into a concretely typed M, boxed as any, so
	// that later it can be unboxed through the same type assertion as a
	// locally produced payload.
	decode func(data []byte) (any, error)
}

func (w *World) dispatch(r *route, p inbox.Packet[any]) {
	if r.spawn != nil {
		r.spawn(w, p)
		return
	}
	if r.deliver == nil {
		panic(fmt.Errorf("world: %w: actor type %d, message %q", ErrNoHandler, r.key.actorTypeID, r.key.messageName))
	}
	r.deliver(w, p)
}

// RegisterHandler wires messageName, addressed to actors of swarm's type,
// to handler. It must run during the handler-registration setup stage,
// after swarm's actor type and any traits it implements have already been
// registered.
//
// Payloads are carried over the wire (and between local handlers) as
// exported-field Go values serialized with encoding/json, the same
// approach codec.JSONCodec takes: a byte-level in-place-relocatable wire
// layout needs unsafe in ways a conventional struct codec avoids, so the
// wire format here is deliberately the latter.
func RegisterHandler[A actor.Value[A], M any](w *World, swarm *actor.Swarm[A], messageName string, handler func(M, *A, *World) actor.Fate) {
	w.requireStage(stageHandlers, "RegisterHandler")
	w.reg.RegisterHandler(swarm.TypeID(), messageName)
	r := w.routeFor(routeKey{swarm.TypeID(), messageName})
	r.deliver = func(w *World, p inbox.Packet[any]) {
		m := p.Payload.(M)
		apply := func(a *A) actor.Fate { return handler(m, a, w) }
		if p.Recipient.IsLocalBroadcast() {
			swarm.Broadcast(apply)
			return
		}
		// Instance ids are allocated per peer, so a replicated packet for
		// an instance another peer owns must be dropped here rather than
		// resolved against this peer's slot map, where the same numeric
		// instance id may name an unrelated live actor.
		if p.Recipient.MachineID != w.localMachine {
			return
		}
		swarm.Deliver(p.Recipient.InstanceID, p.Recipient.Version, apply)
	}
	r.decode = jsonDecoder[M]()
}

// RegisterSpawner wires messageName, addressed to swarm's type, to a
// spawner: a handler that constructs a brand new actor rather than acting
// on an existing one. spawn<A>(world, args) (the Spawn helper in this
// package) sends args to swarm's type local-broadcast; whatever the
// literal recipient instance happens to be, a spawner route always runs
// exactly once per packet and ignores the swarm's current population,
// which is how a spawn message reaches a type with zero live instances
// without being dropped as an empty broadcast (the broadcast-of-zero-
// instances drop rule applies to ordinary handler routes, not spawner
// routes).
func RegisterSpawner[A actor.Value[A], M any](w *World, swarm *actor.Swarm[A], messageName string, spawner func(M, *World) A) {
	w.requireStage(stageHandlers, "RegisterSpawner")
	w.reg.RegisterHandler(swarm.TypeID(), messageName)
	r := w.routeFor(routeKey{swarm.TypeID(), messageName})
	r.spawn = func(w *World, p inbox.Packet[any]) {
		m := p.Payload.(M)
		swarm.Spawn(func(rawid.RawId) A { return spawner(m, w) })
	}
	r.decode = jsonDecoder[M]()
}

func jsonDecoder[M any]() func([]byte) (any, error) {
	return func(data []byte) (any, error) {
		var m M
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("world: decode message: %w", err)
		}
		return m, nil
	}
}

// EncodeMessage serializes payload for wire transmission. Encoding needs
// no route lookup: encoding/json works from the concrete runtime type
// alone, unlike decoding, which needs M's zero value as a target.
func EncodeMessage(payload any) ([]byte, error) {
	return json.Marshal(payload)
}
