package compact

import "unsafe"

// Box is a "borrow-or-own box of T" container, used for fields that only
// some actors instantiate. It stores T inline
// when present (T is always Compact-sized here, since T has no further
// dynamic tail of its own beyond what the caller already accounts for);
// when absent it occupies no dynamic bytes, matching "stores T inline
// when Compact, else out-of-line" — the out-of-line case degenerates to
// "no storage at all" for an absent Box, since there is nothing to own.
type Box[T any] struct {
	inner   T
	present bool
}

// Empty returns an absent Box.
func Empty[T any]() Box[T] { return Box[T]{} }

// BoxOf returns a present Box wrapping v.
func BoxOf[T any](v T) Box[T] { return Box[T]{inner: v, present: true} }

// Get returns the contained value and whether it is present.
func (b Box[T]) Get() (T, bool) { return b.inner, b.present }

// Present reports whether the box currently owns a value.
func (b Box[T]) Present() bool { return b.present }

// Replace installs v, returning the box's own updated copy (Box values
// are used by value, not by pointer, matching the inline-Compact model).
func (b Box[T]) Replace(v T) Box[T] { return BoxOf(v) }

// Take empties the box, returning its previous contents.
func (b Box[T]) Take() (T, Box[T]) {
	return b.inner, Empty[T]()
}

// DynamicSizeBytes implements Value.
func (b Box[T]) DynamicSizeBytes() int {
	if !b.present {
		return 0
	}
	return int(unsafe.Sizeof(b.inner))
}

// IsStillCompact implements Value: Box never spills out-of-line.
func (b Box[T]) IsStillCompact() bool { return true }

// CompactFrom implements Value.
func (b Box[T]) CompactFrom(src Box[T]) Box[T] { return src }

// Decompact implements Value.
func (b Box[T]) Decompact() Box[T] { return b }
