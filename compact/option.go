package compact

import "unsafe"

// Option is a Compact optional value: present/absent, inline always (a
// single T plus a bool never needs an out-of-line allocation).
type Option[T any] struct {
	value   T
	present bool
}

// Some returns a present Option.
func Some[T any](v T) Option[T] { return Option[T]{value: v, present: true} }

// None returns an absent Option.
func None[T any]() Option[T] { return Option[T]{} }

// Get returns the contained value and whether it is present.
func (o Option[T]) Get() (T, bool) { return o.value, o.present }

// IsSome reports presence.
func (o Option[T]) IsSome() bool { return o.present }

// Set replaces the contents, marking present.
func (o *Option[T]) Set(v T) { o.value = v; o.present = true }

// Clear empties the option.
func (o *Option[T]) Clear() { var zero T; o.value = zero; o.present = false }

// DynamicSizeBytes implements Value.
func (o Option[T]) DynamicSizeBytes() int {
	if !o.present {
		return 0
	}
	return int(unsafe.Sizeof(o.value))
}

// IsStillCompact implements Value: an Option never spills out-of-line.
func (o Option[T]) IsStillCompact() bool { return true }

// CompactFrom implements Value.
func (o Option[T]) CompactFrom(src Option[T]) Option[T] { return src }

// Decompact implements Value.
func (o Option[T]) Decompact() Option[T] { return o }
