package compact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVecStaysInlineUntilCapacityExceeded(t *testing.T) {
	v := NewVec[int]()
	for i := 0; i < inlineCapacity; i++ {
		v.Push(i)
		require.True(t, v.IsStillCompact())
	}
	require.Equal(t, inlineCapacity, v.Len())

	v.Push(100)
	require.False(t, v.IsStillCompact())
	require.Equal(t, inlineCapacity+1, v.Len())
	require.Equal(t, 100, v.At(inlineCapacity))
}

func TestVecPushPopOrder(t *testing.T) {
	v := VecOf(1, 2, 3)
	val, ok := v.Pop()
	require.True(t, ok)
	require.Equal(t, 3, val)
	require.Equal(t, 2, v.Len())

	_, _ = v.Pop()
	_, _ = v.Pop()
	_, ok = v.Pop()
	require.False(t, ok)
}

func TestVecInsertAndRemove(t *testing.T) {
	v := VecOf(1, 2, 4)
	v.Insert(2, 3)
	got := []int{}
	v.Iter(func(_ int, val int) bool { got = append(got, val); return true })
	require.Equal(t, []int{1, 2, 3, 4}, got)

	removed := v.Remove(1)
	require.Equal(t, 2, removed)
	got = got[:0]
	v.Iter(func(_ int, val int) bool { got = append(got, val); return true })
	require.Equal(t, []int{1, 3, 4}, got)
}

func TestVecCompactFromRestoresInlineWhenItFits(t *testing.T) {
	src := VecOf(1, 2, 3)
	out := src.CompactFrom(src)
	require.True(t, out.IsStillCompact())
	require.Equal(t, 3, out.Len())
}

func TestVecDecompactIsAlwaysOutOfLine(t *testing.T) {
	v := VecOf(1, 2)
	out := v.Decompact()
	require.False(t, out.IsStillCompact())
	require.Equal(t, 2, out.Len())
}

func TestVecIterStopsEarly(t *testing.T) {
	v := VecOf(1, 2, 3, 4)
	seen := []int{}
	v.Iter(func(_ int, val int) bool {
		seen = append(seen, val)
		return val != 2
	})
	require.Equal(t, []int{1, 2}, seen)
}
