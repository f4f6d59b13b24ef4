package wrappers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrsAggregatesAndIgnoresNil(t *testing.T) {
	var e Errs
	require.False(t, e.Errored())
	e.Add(nil)
	require.False(t, e.Errored())

	e.Add(errNamed("boom"))
	require.True(t, e.Errored())
	require.Equal(t, 1, e.Len())
	require.EqualError(t, e.Err(), "boom")

	e.Add(errNamed("bang"))
	require.Equal(t, 2, e.Len())
	require.Contains(t, e.Err().Error(), "boom")
	require.Contains(t, e.Err().Error(), "bang")
}

type errNamed string

func (e errNamed) Error() string { return string(e) }

func TestPackerUnpackerRoundTrip(t *testing.T) {
	p := NewPacker(64)
	p.PackByte(7)
	p.PackShort(1234)
	p.PackInt(987654321)
	p.PackLong(123456789012345)
	p.PackBytes([]byte("hello"))

	u := NewUnpacker(p.Bytes)
	require.Equal(t, byte(7), u.UnpackByte())
	require.Equal(t, uint16(1234), u.UnpackShort())
	require.Equal(t, uint32(987654321), u.UnpackInt())
	require.Equal(t, uint64(123456789012345), u.UnpackLong())
	require.Equal(t, []byte("hello"), u.UnpackBytes(5))
	require.NoError(t, u.Err)
}

func TestUnpackerShortReadSetsErrAndReturnsZero(t *testing.T) {
	u := NewUnpacker([]byte{1, 2})
	require.Equal(t, uint64(0), u.UnpackLong())
	require.Error(t, u.Err)

	// Once Err is set, every further read is a no-op.
	require.Equal(t, byte(0), u.UnpackByte())
}
