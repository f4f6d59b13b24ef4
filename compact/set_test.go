package compact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetAddContainsRemove(t *testing.T) {
	s := NewSet[int]()
	s.Add(1)
	s.Add(2)
	s.Add(1) // duplicate, no-op
	require.Equal(t, 2, s.Len())
	require.True(t, s.Contains(1))

	s.Remove(1)
	require.False(t, s.Contains(1))
	require.Equal(t, 1, s.Len())
}

func TestSetOfBuildsFromElements(t *testing.T) {
	s := SetOf(3, 1, 2)
	require.Equal(t, 3, s.Len())
	require.Equal(t, []int{3, 1, 2}, s.List())
}

func TestSetCompactFromAndDecompact(t *testing.T) {
	src := SetOf("x", "y")
	copied := src.CompactFrom(src)
	require.ElementsMatch(t, src.List(), copied.List())

	decompacted := src.Decompact()
	require.ElementsMatch(t, src.List(), decompacted.List())
}
