package compact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoneIsAbsent(t *testing.T) {
	o := None[string]()
	_, ok := o.Get()
	require.False(t, ok)
	require.False(t, o.IsSome())
}

func TestSomeIsPresent(t *testing.T) {
	o := Some("x")
	v, ok := o.Get()
	require.True(t, ok)
	require.Equal(t, "x", v)
}

func TestSetThenClear(t *testing.T) {
	o := None[int]()
	o.Set(5)
	require.True(t, o.IsSome())
	v, _ := o.Get()
	require.Equal(t, 5, v)

	o.Clear()
	require.False(t, o.IsSome())
	v, _ = o.Get()
	require.Equal(t, 0, v, "Clear must zero the held value, not just flip the flag")
}
