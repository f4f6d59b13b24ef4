package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterActorTypeAssignsDenseAscendingIDs(t *testing.T) {
	r := New()
	a := r.RegisterActorType("Car")
	b := r.RegisterActorType("Pedestrian")
	require.Equal(t, uint16(0), a)
	require.Equal(t, uint16(1), b)

	id, ok := r.ActorID("Car")
	require.True(t, ok)
	require.Equal(t, a, id)
	require.Equal(t, "Pedestrian", r.ActorName(b))
}

func TestRegisterActorTypeTwicePanics(t *testing.T) {
	r := New()
	r.RegisterActorType("Car")
	require.Panics(t, func() { r.RegisterActorType("Car") })
}

func TestFreezePreventsFurtherRegistration(t *testing.T) {
	r := New()
	r.RegisterActorType("Car")
	r.Freeze()
	require.True(t, r.Frozen())
	require.Panics(t, func() { r.RegisterActorType("Bike") })
}

func TestFreezeCatchesMissingTraitHandler(t *testing.T) {
	r := New()
	car := r.RegisterActorType("Car")
	temporal := r.RegisterTraitType("Temporal", []string{"Tick"})
	r.RegisterImplementor(temporal, car)
	// no RegisterHandler(car, "Tick") — Freeze must catch this.
	require.Panics(t, func() { r.Freeze() })
}

func TestFreezePassesWhenEveryImplementorHandlesEveryMessage(t *testing.T) {
	r := New()
	car := r.RegisterActorType("Car")
	temporal := r.RegisterTraitType("Temporal", []string{"Tick"})
	r.RegisterImplementor(temporal, car)
	r.RegisterHandler(car, "Tick")
	require.NotPanics(t, func() { r.Freeze() })
}

func TestExportMatches(t *testing.T) {
	r1 := New()
	r1.RegisterActorType("Car")
	r1.RegisterTraitType("Temporal", []string{"Tick"})

	r2 := New()
	r2.RegisterActorType("Car")
	r2.RegisterTraitType("Temporal", []string{"Tick"})

	require.True(t, r1.Matches(r2.Export()))

	r3 := New()
	r3.RegisterActorType("Pedestrian")
	require.False(t, r1.Matches(r3.Export()))
}

func TestImplementorsPreservesRegistrationOrder(t *testing.T) {
	r := New()
	car := r.RegisterActorType("Car")
	bike := r.RegisterActorType("Bike")
	temporal := r.RegisterTraitType("Temporal", nil)
	r.RegisterImplementor(temporal, car)
	r.RegisterImplementor(temporal, bike)
	require.Equal(t, []uint16{car, bike}, r.Implementors(temporal))
}
