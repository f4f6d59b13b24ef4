package compact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapPutGetRemove(t *testing.T) {
	m := NewMap[string, int]()
	m.Put("a", 1)
	m.Put("b", 2)
	require.Equal(t, 2, m.Len())

	v, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)
	require.True(t, m.Contains("b"))

	m.Remove("a")
	require.Equal(t, 1, m.Len())
	require.False(t, m.Contains("a"))
	_, ok = m.Get("a")
	require.False(t, ok)
}

func TestMapUpdatingAnExistingKeyPreservesItsPosition(t *testing.T) {
	m := NewMap[string, int]()
	m.Put("a", 1)
	m.Put("b", 2)
	m.Put("c", 3)
	m.Put("a", 100) // update, not re-insert

	require.Equal(t, []string{"a", "b", "c"}, m.Keys())
	v, _ := m.Get("a")
	require.Equal(t, 100, v)
}

func TestMapIterVisitsInInsertionOrder(t *testing.T) {
	m := NewMap[string, int]()
	m.Put("z", 1)
	m.Put("a", 2)
	m.Put("m", 3)

	var seen []string
	m.Iter(func(k string, v int) bool {
		seen = append(seen, k)
		return true
	})
	require.Equal(t, []string{"z", "a", "m"}, seen)
}

func TestMapIterStopsEarlyWhenFnReturnsFalse(t *testing.T) {
	m := NewMap[string, int]()
	m.Put("a", 1)
	m.Put("b", 2)
	m.Put("c", 3)

	var seen []string
	m.Iter(func(k string, v int) bool {
		seen = append(seen, k)
		return k != "b"
	})
	require.Equal(t, []string{"a", "b"}, seen)
}

func TestMapRemoveOfAbsentKeyIsANoOp(t *testing.T) {
	m := NewMap[string, int]()
	m.Put("a", 1)
	m.Remove("does-not-exist")
	require.Equal(t, 1, m.Len())
}

func TestMapCompactFromAndDecompactCopyEveryEntry(t *testing.T) {
	src := NewMap[string, int]()
	src.Put("a", 1)
	src.Put("b", 2)

	copied := src.CompactFrom(src)
	require.Equal(t, src.Keys(), copied.Keys())
	v, ok := copied.Get("b")
	require.True(t, ok)
	require.Equal(t, 2, v)

	decompacted := src.Decompact()
	require.Equal(t, src.Keys(), decompacted.Keys())
}
