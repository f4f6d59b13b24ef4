package compact

// Set is a Compact set, a thin wrapper reusing Map's storage and
// insertion-order iteration rather than duplicating the inline/overflow
// bookkeeping.
type Set[T comparable] struct {
	m *Map[T, struct{}]
}

// NewSet returns an empty Set.
func NewSet[T comparable]() *Set[T] {
	return &Set[T]{m: NewMap[T, struct{}]()}
}

// SetOf builds a Set from elements.
func SetOf[T comparable](elements ...T) *Set[T] {
	s := NewSet[T]()
	for _, e := range elements {
		s.Add(e)
	}
	return s
}

// Add inserts elt, a no-op if already present.
func (s *Set[T]) Add(elt T) { s.m.Put(elt, struct{}{}) }

// Remove deletes elt, if present.
func (s *Set[T]) Remove(elt T) { s.m.Remove(elt) }

// Contains reports whether elt is a member.
func (s *Set[T]) Contains(elt T) bool { return s.m.Contains(elt) }

// Len returns the number of members.
func (s *Set[T]) Len() int { return s.m.Len() }

// List returns the members in insertion order.
func (s *Set[T]) List() []T { return s.m.Keys() }

// DynamicSizeBytes implements Value.
func (s *Set[T]) DynamicSizeBytes() int { return s.m.DynamicSizeBytes() }

// IsStillCompact implements Value.
func (s *Set[T]) IsStillCompact() bool { return s.m.IsStillCompact() }

// CompactFrom implements Value.
func (s *Set[T]) CompactFrom(src *Set[T]) *Set[T] {
	return &Set[T]{m: s.m.CompactFrom(src.m)}
}

// Decompact implements Value.
func (s *Set[T]) Decompact() *Set[T] {
	return &Set[T]{m: s.m.Decompact()}
}
