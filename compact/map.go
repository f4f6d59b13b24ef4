package compact

import "unsafe"

// Map is a Compact K→V mapping. Lookup is O(1) via an ordinary Go map;
// removal is linear in the entry count, because the key is also taken out
// of the insertion order, which is tracked separately (in a Vec of keys)
// so that iteration order is deterministic given the same
// operation history, which a bare Go map's randomized iteration cannot
// offer but replicated actor state across peers requires.
type Map[K comparable, V any] struct {
	values map[K]V
	order  *Vec[K]
}

// NewMap returns an empty Map.
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		values: make(map[K]V),
		order:  NewVec[K](),
	}
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int { return len(m.values) }

// Get looks up key, reporting whether it was present.
func (m *Map[K, V]) Get(key K) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Contains reports whether key is present.
func (m *Map[K, V]) Contains(key K) bool {
	_, ok := m.values[key]
	return ok
}

// Put inserts or updates key→val. New keys are appended to the insertion
// order; updating an existing key does not change its position.
func (m *Map[K, V]) Put(key K, val V) {
	if _, exists := m.values[key]; !exists {
		m.order.Push(key)
	}
	m.values[key] = val
}

// Remove deletes key, if present. The key's slot in the insertion order is
// filled by shifting, preserving relative order of survivors.
func (m *Map[K, V]) Remove(key K) {
	if _, exists := m.values[key]; !exists {
		return
	}
	delete(m.values, key)
	m.order.Iter(func(i int, k K) bool {
		if k == key {
			m.order.Remove(i)
			return false
		}
		return true
	})
}

// Iter calls fn for every entry in insertion order. Iteration stops early
// if fn returns false.
func (m *Map[K, V]) Iter(fn func(K, V) bool) {
	m.order.Iter(func(_ int, k K) bool {
		return fn(k, m.values[k])
	})
}

// Keys returns the keys in insertion order.
func (m *Map[K, V]) Keys() []K {
	out := make([]K, 0, m.Len())
	m.order.Iter(func(_ int, k K) bool {
		out = append(out, k)
		return true
	})
	return out
}

// DynamicSizeBytes implements Value.
func (m *Map[K, V]) DynamicSizeBytes() int {
	var k K
	var v V
	return m.Len() * (int(unsafe.Sizeof(k)) + int(unsafe.Sizeof(v)))
}

// IsStillCompact implements Value: a Map is compact iff its insertion-order
// Vec hasn't spilled out-of-line, the same rule every container uses to
// decide it has transitioned once it overflows inline capacity.
func (m *Map[K, V]) IsStillCompact() bool { return m.order.IsStillCompact() }

// CompactFrom implements Value.
func (m *Map[K, V]) CompactFrom(src *Map[K, V]) *Map[K, V] {
	out := NewMap[K, V]()
	src.Iter(func(k K, v V) bool {
		out.Put(k, v)
		return true
	})
	return out
}

// Decompact implements Value.
func (m *Map[K, V]) Decompact() *Map[K, V] {
	out := NewMap[K, V]()
	out.order = m.order.Decompact()
	out.values = make(map[K]V, m.Len())
	for k, v := range m.values {
		out.values[k] = v
	}
	return out
}
