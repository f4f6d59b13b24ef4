package trait

import (
	"testing"

	"github.com/lockstepcore/engine/actor"
	"github.com/lockstepcore/engine/rawid"
	"github.com/lockstepcore/engine/registry"
	"github.com/lockstepcore/engine/world"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/log"
)

type vehicle struct {
	raw   rawid.RawId
	Ticks int
}

func (v vehicle) ID() rawid.RawId                  { return v.raw }
func (v vehicle) WithID(id rawid.RawId) vehicle    { v.raw = id; return v }
func (v vehicle) DynamicSizeBytes() int            { return 0 }
func (v vehicle) IsStillCompact() bool             { return true }
func (v vehicle) CompactFrom(src vehicle) vehicle  { return src }
func (v vehicle) Decompact() vehicle               { return v }

type tickMessage struct{ Dt int }

func TestBroadcastReachesEveryImplementorType(t *testing.T) {
	reg := registry.New()
	w := world.New(reg, 0, log.NewNoOpLogger())
	setup := world.NewSetup(w)

	carType := setup.RegisterActorType("Car")
	bikeType := setup.RegisterActorType("Bike")
	cars := actor.New[vehicle](carType, 0)
	bikes := actor.New[vehicle](bikeType, 0)

	setup.BeginTraits()
	temporal := setup.RegisterTraitType("Temporal", []string{"Tick"})
	setup.RegisterImplementor(temporal, carType)
	setup.RegisterImplementor(temporal, bikeType)

	setup.BeginHandlers()
	world.RegisterHandler(setup.World(), cars, "Tick", func(m tickMessage, v *vehicle, _ *world.World) actor.Fate {
		v.Ticks += m.Dt
		return actor.Live
	})
	world.RegisterHandler(setup.World(), bikes, "Tick", func(m tickMessage, v *vehicle, _ *world.World) actor.Fate {
		v.Ticks += m.Dt
		return actor.Live
	})
	setup.BeginSingletons()
	running := setup.Finish()

	car := cars.Spawn(func(rid rawid.RawId) vehicle { return vehicle{raw: rid} })
	bike := bikes.Spawn(func(rid rawid.RawId) vehicle { return vehicle{raw: rid} })

	Broadcast(running, "Temporal", "Tick", tickMessage{Dt: 1})
	running.Step()

	gotCar, _ := cars.At(car.Raw.InstanceID, car.Raw.Version)
	gotBike, _ := bikes.At(bike.Raw.InstanceID, bike.Raw.Version)
	require.Equal(t, 1, gotCar.Ticks)
	require.Equal(t, 1, gotBike.Ticks)
}

func TestBroadcastToUnknownTraitPanics(t *testing.T) {
	reg := registry.New()
	w := world.New(reg, 0, log.NewNoOpLogger())
	setup := world.NewSetup(w)
	setup.BeginTraits()
	setup.BeginHandlers()
	setup.BeginSingletons()
	running := setup.Finish()

	require.Panics(t, func() { Broadcast(running, "NoSuchTrait", "Tick", tickMessage{}) })
}

func TestAsVerifiesImplementorMembership(t *testing.T) {
	reg := registry.New()
	w := world.New(reg, 0, log.NewNoOpLogger())
	setup := world.NewSetup(w)

	carType := setup.RegisterActorType("Car")
	bikeType := setup.RegisterActorType("Bike")
	_ = actor.New[vehicle](carType, 0)
	_ = actor.New[vehicle](bikeType, 0)

	setup.BeginTraits()
	temporal := setup.RegisterTraitType("Temporal", nil)
	setup.RegisterImplementor(temporal, carType)
	setup.BeginHandlers()
	setup.BeginSingletons()
	running := setup.Finish()

	type Temporal interface{}
	carID := rawid.RawId{TypeID: carType, InstanceID: 3}
	typed := As[Temporal](running, "Temporal", carID)
	require.Equal(t, carID, typed.Raw)

	bikeID := rawid.RawId{TypeID: bikeType, InstanceID: 4}
	require.Panics(t, func() { As[Temporal](running, "Temporal", bikeID) })
}
