package arena

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushAssignsSequentialSlotsAcrossChunkBoundaries(t *testing.T) {
	a := NewChunkedArena[int]()
	// baseChunkSize is 8; push enough to force growth into a second,
	// larger chunk and confirm slot indices and stored values survive it.
	for i := 0; i < 20; i++ {
		slot := a.Push(i * 10)
		require.Equal(t, i, slot)
	}
	require.Equal(t, 20, a.Len())
	for i := 0; i < 20; i++ {
		require.Equal(t, i*10, *a.At(i))
	}
}

func TestAtReturnsAStablePointerAcrossFurtherPushes(t *testing.T) {
	a := NewChunkedArena[int]()
	a.Push(1)
	p := a.At(0)
	for i := 0; i < 30; i++ {
		a.Push(i)
	}
	require.Equal(t, 1, *p, "an already-allocated chunk's backing array must never be reallocated")
}

func TestSwapRemoveOfNonLastSlotMovesTheLastElementIn(t *testing.T) {
	a := NewChunkedArena[string]()
	a.Push("a")
	a.Push("b")
	a.Push("c")

	removed, swappedFrom, hadSwap := a.SwapRemove(0)
	require.Equal(t, "a", removed)
	require.True(t, hadSwap)
	require.Equal(t, 2, swappedFrom)
	require.Equal(t, "c", *a.At(0), "the former last element must now occupy the removed slot")
	require.Equal(t, 2, a.Len())
}

func TestSwapRemoveOfLastSlotReportsNoSwap(t *testing.T) {
	a := NewChunkedArena[string]()
	a.Push("a")
	a.Push("b")

	removed, _, hadSwap := a.SwapRemove(1)
	require.Equal(t, "b", removed)
	require.False(t, hadSwap)
	require.Equal(t, 1, a.Len())
}
