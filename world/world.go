// Package world implements World, the per-peer scheduler: the draining
// loop that delivers queued packets, handles spawn/die, and exposes send
// operations to handlers.
package world

import (
	"errors"
	"fmt"

	"github.com/lockstepcore/engine/inbox"
	"github.com/lockstepcore/engine/rawid"
	"github.com/lockstepcore/engine/registry"
	"golang.org/x/exp/slices"

	"github.com/luxfi/log"
)

// ErrNoHandler is returned (via panic; result-typed returns are reserved
// for setup and I/O boundaries, internal invariants are asserted) when
// Send targets an unregistered (type, message) pair.
var ErrNoHandler = errors.New("no handler registered for this (actor type, message) pair")

// maxSubPasses bounds the number of drain sub-passes within one Step, to
// catch runaway message loops.
const maxSubPasses = 1000

// Mirror is implemented by the networking layer (package network's Peer)
// so that World can replicate locally produced messages without importing
// network (network imports world, not the reverse). Every method is
// called synchronously from within Send (for a global broadcast, after
// the local copy has been queued) and must not block.
type Mirror interface {
	// MirrorInstance is called when recipient names a single instance
	// owned by a different peer: the packet must reach that peer's
	// inbox[local][t], not this peer's.
	MirrorInstance(recipient rawid.RawId, messageName string, payload any, sender rawid.RawId, hasSender bool)
	// MirrorBroadcast is called when recipient is a global broadcast:
	// the packet must reach every *other* peer (this peer already
	// applies it locally as a local-broadcast).
	MirrorBroadcast(recipient rawid.RawId, messageName string, payload any, sender rawid.RawId, hasSender bool)
}

type routeKey struct {
	actorTypeID uint16
	messageName string
}

// World holds every registered route, the shared TypeRegistry, and
// whatever Mirror the network layer has installed. It is constructed once
// per peer and threaded explicitly through every handler call rather than
// reached via ambient global state.
type World struct {
	reg           *registry.TypeRegistry
	localMachine  uint8
	log           log.Logger
	mirror        Mirror
	routes        map[routeKey]*route
	messageIDs    map[string]uint16
	messageNames  []string
	pendingByRoute map[routeKey]bool
	pendingList   []*route
	setupStage    stage

	dispatchObserver DispatchObserver
}

// DispatchObserver is notified of every packet as Step dispatches it, in
// drain order. Package network installs one during Step to XOR one digest
// per dispatched packet into the turn's digest, which therefore does not
// depend on the order the packets were drained in.
type DispatchObserver func(actorTypeID uint16, messageName string, recipient rawid.RawId, payload any)

// SetDispatchObserver installs (or, passed nil, clears) obs.
func (w *World) SetDispatchObserver(obs DispatchObserver) { w.dispatchObserver = obs }

type stage int

const (
	stageTypes stage = iota
	stageTraits
	stageHandlers
	stageSingletons
	stageRunning
)

// New returns a World for localMachine, backed by reg. logger may be
// log.NewNoOpLogger() in tests.
func New(reg *registry.TypeRegistry, localMachine uint8, logger log.Logger) *World {
	return &World{
		reg:            reg,
		localMachine:   localMachine,
		log:            logger,
		routes:         make(map[routeKey]*route),
		messageIDs:     make(map[string]uint16),
		pendingByRoute: make(map[routeKey]bool),
	}
}

func (w *World) requireStage(want stage, action string) {
	if w.setupStage != want {
		panic(fmt.Sprintf("world: %s is only valid during setup stage %d, currently in stage %d", action, want, w.setupStage))
	}
}

// Registry exposes the shared TypeRegistry, read-only in spirit (callers
// use it to resolve names to ids); it remains mutable only during the
// setup stages below.
func (w *World) Registry() *registry.TypeRegistry { return w.reg }

// LocalMachineID returns the peer id this World runs on.
func (w *World) LocalMachineID() uint8 { return w.localMachine }

// SetMirror installs the networking layer's replication hook. Called once
// during setup, before the network starts and steps begin.
func (w *World) SetMirror(m Mirror) { w.mirror = m }

func (w *World) internMessage(name string) uint16 {
	if id, ok := w.messageIDs[name]; ok {
		return id
	}
	id := uint16(len(w.messageNames))
	w.messageIDs[name] = id
	w.messageNames = append(w.messageNames, name)
	return id
}

// MessageID returns the dense id assigned to messageName, if any handler
// or spawner has been registered for it.
func (w *World) MessageID(name string) (uint16, bool) {
	id, ok := w.messageIDs[name]
	return id, ok
}

// MessageName is the inverse of MessageID.
func (w *World) MessageName(id uint16) string {
	if int(id) >= len(w.messageNames) {
		return ""
	}
	return w.messageNames[id]
}

func (w *World) routeFor(key routeKey) *route {
	r, ok := w.routes[key]
	if !ok {
		r = &route{key: key, in: inbox.New[any](), messageID: w.internMessage(key.messageName)}
		w.routes[key] = r
	}
	return r
}

func (w *World) markPending(r *route) {
	if !w.pendingByRoute[r.key] {
		w.pendingByRoute[r.key] = true
		w.pendingList = append(w.pendingList, r)
	}
}

// collectPending drains the pending-route list, sorted by (actor type id
// ascending, message id ascending) for deterministic drain order, clearing
// the pending marks so a route that receives new traffic mid-step is
// queued again for the next sub-pass.
func (w *World) collectPending() []*route {
	if len(w.pendingList) == 0 {
		return nil
	}
	pending := w.pendingList
	w.pendingList = nil
	for _, r := range pending {
		w.pendingByRoute[r.key] = false
	}
	slices.SortFunc(pending, func(a, b *route) int {
		if a.key.actorTypeID != b.key.actorTypeID {
			if a.key.actorTypeID < b.key.actorTypeID {
				return -1
			}
			return 1
		}
		if a.messageID < b.messageID {
			return -1
		}
		if a.messageID > b.messageID {
			return 1
		}
		return 0
	})
	return pending
}

// Send enqueues payload for recipient under messageName, with no sender
// recorded. It panics with ErrNoHandler if no route is registered for
// (recipient.TypeID, messageName). Freeze only checks that trait
// implementors handle their traits' messages, so any other send to an
// unregistered pair is first detected here, when Send is called.
func (w *World) Send(recipient rawid.RawId, messageName string, payload any) {
	w.sendRaw(recipient, messageName, payload, rawid.RawId{}, false)
}

// SendFrom is Send but records sender as the originating actor, so the
// handler can reply without needing an out-of-band channel.
func (w *World) SendFrom(sender, recipient rawid.RawId, messageName string, payload any) {
	w.sendRaw(recipient, messageName, payload, sender, true)
}

func (w *World) sendRaw(recipient rawid.RawId, messageName string, payload any, sender rawid.RawId, hasSender bool) {
	key := routeKey{recipient.TypeID, messageName}
	if _, ok := w.routes[key]; !ok {
		panic(fmt.Errorf("world.Send: %w: actor type %q, message %q", ErrNoHandler, w.reg.ActorName(recipient.TypeID), messageName))
	}

	if recipient.IsBroadcast() {
		local := recipient
		local.InstanceID = rawid.LocalBroadcastInstance
		local.MachineID = w.localMachine
		w.enqueue(local, messageName, payload, sender, hasSender)
		if w.mirror != nil {
			w.mirror.MirrorBroadcast(recipient, messageName, payload, sender, hasSender)
		}
		return
	}

	if recipient.MachineID == w.localMachine {
		w.enqueue(recipient, messageName, payload, sender, hasSender)
		return
	}

	if w.mirror != nil {
		w.mirror.MirrorInstance(recipient, messageName, payload, sender, hasSender)
	}
}

func (w *World) enqueue(recipient rawid.RawId, messageName string, payload any, sender rawid.RawId, hasSender bool) {
	key := routeKey{recipient.TypeID, messageName}
	r := w.routeFor(key)
	r.in.Append(inbox.Packet[any]{Recipient: recipient, Payload: payload, Sender: sender, HasSender: hasSender})
	w.markPending(r)
}

// ApplyRemote injects a packet received from another peer (already
// decoded to its concrete Go type) into the appropriate local inbox. A
// global-broadcast recipient is rewritten to this peer's own
// local-broadcast before enqueueing, exactly mirroring what sendRaw does
// for locally originated global broadcasts.
func (w *World) ApplyRemote(recipient rawid.RawId, messageName string, payload any, sender rawid.RawId, hasSender bool) {
	if recipient.IsBroadcast() {
		recipient.InstanceID = rawid.LocalBroadcastInstance
		recipient.MachineID = w.localMachine
	}
	w.enqueue(recipient, messageName, payload, sender, hasSender)
}

// PendingPackets reports the number of packets currently queued across
// every route. Step drains to convergence, so between ordinary steps this
// is zero; it is nonzero while a skipped step is buffering applied turns
// it has not drained yet. Package network feeds it to the inbox-depth
// gauge.
func (w *World) PendingPackets() int {
	total := 0
	for _, r := range w.routes {
		total += r.in.Len()
	}
	return total
}

// DecodeMessage looks up the registered decode function for
// (actorTypeID, messageName) and uses it to turn wire bytes into the
// concrete Go value the route's handler expects. Used by package network
// when applying an incoming PACKET frame.
func (w *World) DecodeMessage(actorTypeID uint16, messageName string, data []byte) (any, error) {
	r, ok := w.routes[routeKey{actorTypeID, messageName}]
	if !ok {
		return nil, fmt.Errorf("world.DecodeMessage: %w: actor type %d, message %q", ErrNoHandler, actorTypeID, messageName)
	}
	return r.decode(data)
}
