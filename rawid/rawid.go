// Package rawid implements the 64-bit opaque actor identifier: a (type,
// machine, instance, version) tuple that is Copy, serializes
// transparently, and carries two distinguished instance values for
// broadcast addressing.
package rawid

import "fmt"

// Broadcast and local-broadcast are distinguished instance_id values.
// Ordinary instances are allocated below BroadcastInstance by the slot map
// in package arena, so the two never collide with a live instance.
const (
	BroadcastInstance      uint32 = 0xFFFFFFFF
	LocalBroadcastInstance uint32 = 0xFFFFFFFE
)

// RawId is the untyped 64-bit identifier. Fields are packed into a single
// uint64 so that RawId is Copy and round-trips through the wire byte-exact:
//
//	bits 48-63: TypeID   (u16, dense index into the type registry)
//	bits 40-47: MachineID (u8, owning peer)
//	bits  8-39: InstanceID (u32, position-independent handle)
//	bits  0-7:  Version   (u8, generation counter)
//
// The fields themselves are exported; Pack and Unpack convert to and from
// this packed layout.
type RawId struct {
	TypeID     uint16
	MachineID  uint8
	InstanceID uint32
	Version    uint8
}

// Zero is the zero RawId. It is also the id of the first instance of
// actor type 0 on machine 0, so it does not mark an id as unset.
var Zero = RawId{}

// IsBroadcast reports whether r addresses every instance of its type on
// every peer.
func (r RawId) IsBroadcast() bool {
	return r.InstanceID == BroadcastInstance
}

// IsLocalBroadcast reports whether r addresses every instance of its type
// on the owning peer only.
func (r RawId) IsLocalBroadcast() bool {
	return r.InstanceID == LocalBroadcastInstance
}

// IsInstance reports whether r addresses a single, ordinary instance.
func (r RawId) IsInstance() bool {
	return !r.IsBroadcast() && !r.IsLocalBroadcast()
}

// Pack returns the 64-bit wire representation, shallow part and tail both
// being empty for RawId itself (RawId has no dynamic tail: it is its own
// complete Compact shallow part).
func (r RawId) Pack() uint64 {
	return uint64(r.TypeID)<<48 |
		uint64(r.MachineID)<<40 |
		uint64(r.InstanceID)<<8 |
		uint64(r.Version)
}

// Unpack reconstructs a RawId from its wire representation.
func Unpack(bits uint64) RawId {
	return RawId{
		TypeID:     uint16(bits >> 48),
		MachineID:  uint8(bits >> 40),
		InstanceID: uint32(bits >> 8),
		Version:    uint8(bits),
	}
}

func (r RawId) String() string {
	switch {
	case r.IsBroadcast():
		return fmt.Sprintf("RawId{type=%d, broadcast}", r.TypeID)
	case r.IsLocalBroadcast():
		return fmt.Sprintf("RawId{type=%d, machine=%d, local-broadcast}", r.TypeID, r.MachineID)
	default:
		return fmt.Sprintf("RawId{type=%d, machine=%d, instance=%d, v%d}", r.TypeID, r.MachineID, r.InstanceID, r.Version)
	}
}

// TypedId pairs a RawId with the concrete actor type or trait-type T it
// refers to, at the Go type level. The zero value of T is never
// dereferenced; T only selects which type/trait registration governs
// conversions.
type TypedId[T any] struct {
	Raw RawId
}

// Of wraps a RawId as a TypedId[T]. Callers are expected to only do this
// once the registry has confirmed raw.TypeID names T or (for trait ids) an
// implementor of T; packages actor, world and trait are the only callers.
func Of[T any](raw RawId) TypedId[T] {
	return TypedId[T]{Raw: raw}
}

func (t TypedId[T]) String() string {
	return t.Raw.String()
}

// IntoTraitId reinterprets t as a trait-typed id for Trait. This is the
// identity on the RawId bit pattern: the concrete type_id in the RawId is
// unchanged, only the Go-level type parameter
// changes. Callers must have already verified (via the trait registry)
// that t's concrete type implements Trait; this function performs no
// runtime check, matching "the runtime records the target concrete
// type_id at id-conversion time".
func IntoTraitId[A any, Trait any](t TypedId[A]) TypedId[Trait] {
	return TypedId[Trait]{Raw: t.Raw}
}
