package rawid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	r := RawId{TypeID: 7, MachineID: 3, InstanceID: 99812, Version: 5}
	got := Unpack(r.Pack())
	require.Equal(t, r, got)
}

func TestBroadcastClassification(t *testing.T) {
	instance := RawId{TypeID: 1, InstanceID: 42}
	require.True(t, instance.IsInstance())
	require.False(t, instance.IsBroadcast())
	require.False(t, instance.IsLocalBroadcast())

	global := RawId{TypeID: 1, InstanceID: BroadcastInstance}
	require.True(t, global.IsBroadcast())
	require.False(t, global.IsInstance())

	local := RawId{TypeID: 1, InstanceID: LocalBroadcastInstance}
	require.True(t, local.IsLocalBroadcast())
	require.False(t, local.IsInstance())
}

func TestTypedIdRoundTripsRaw(t *testing.T) {
	raw := RawId{TypeID: 4, InstanceID: 1}
	typed := Of[string](raw)
	require.Equal(t, raw, typed.Raw)

	type Trait interface{ M() }
	retyped := IntoTraitId[string, Trait](typed)
	require.Equal(t, raw, retyped.Raw)
}
