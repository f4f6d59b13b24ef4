package temporal

import (
	"testing"

	"github.com/lockstepcore/engine/actor"
	"github.com/lockstepcore/engine/rawid"
	"github.com/lockstepcore/engine/registry"
	"github.com/lockstepcore/engine/world"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/log"
)

type sleeper struct {
	raw      rawid.RawId
	WokenAt  uint64
	WasWoken bool
	Ticks    int
}

func (s sleeper) ID() rawid.RawId                  { return s.raw }
func (s sleeper) WithID(id rawid.RawId) sleeper    { s.raw = id; return s }
func (s sleeper) DynamicSizeBytes() int            { return 0 }
func (s sleeper) IsStillCompact() bool             { return true }
func (s sleeper) CompactFrom(src sleeper) sleeper  { return src }
func (s sleeper) Decompact() sleeper               { return s }

type testHarness struct {
	w       *world.World
	time    *actor.Swarm[Time]
	sleeper *actor.Swarm[sleeper]
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	reg := registry.New()
	w := world.New(reg, 0, log.NewNoOpLogger())
	setup := world.NewSetup(w)

	timeType := setup.RegisterActorType("Time")
	sleeperType := setup.RegisterActorType("Sleeper")
	timeSwarm := actor.New[Time](timeType, 0)
	sleeperSwarm := actor.New[sleeper](sleeperType, 0)

	setup.BeginTraits()
	temporalTrait := setup.RegisterTraitType("Temporal", []string{"Tick"})
	setup.RegisterImplementor(temporalTrait, sleeperType)

	setup.BeginHandlers()
	RegisterSingleton(setup.World(), timeSwarm, "SpawnTime")
	world.RegisterHandler(setup.World(), sleeperSwarm, "Tick", func(m TickMessage, s *sleeper, _ *world.World) actor.Fate {
		s.Ticks++
		return actor.Live
	})
	world.RegisterHandler(setup.World(), sleeperSwarm, "Wake", func(m WakeMessage, s *sleeper, _ *world.World) actor.Fate {
		s.WasWoken = true
		s.WokenAt = m.Instant
		return actor.Live
	})
	setup.BeginSingletons()
	world.Spawn(setup.Singletons(), timeSwarm, "SpawnTime", SpawnMessage{})
	running := setup.Finish()
	running.Step() // apply the Time singleton spawn

	return &testHarness{w: running, time: timeSwarm, sleeper: sleeperSwarm}
}

func TestAdvanceBroadcastsTickToImplementors(t *testing.T) {
	h := newHarness(t)
	id := h.sleeper.Spawn(func(rid rawid.RawId) sleeper { return sleeper{raw: rid} })

	Advance(h.w, h.time, "Temporal", "Tick", "Wake")
	h.w.Step()

	got, ok := h.sleeper.At(id.Raw.InstanceID, id.Raw.Version)
	require.True(t, ok)
	require.Equal(t, 1, got.Ticks)
}

func TestWakeUpInDeliversExactlyAtTheDueTick(t *testing.T) {
	h := newHarness(t)
	id := h.sleeper.Spawn(func(rid rawid.RawId) sleeper { return sleeper{raw: rid} })

	require.NoError(t, WakeUpIn(h.time, 2, id.Raw))

	Advance(h.w, h.time, "Temporal", "Tick", "Wake")
	h.w.Step()
	got, _ := h.sleeper.At(id.Raw.InstanceID, id.Raw.Version)
	require.False(t, got.WasWoken, "must not wake before its due tick")

	Advance(h.w, h.time, "Temporal", "Tick", "Wake")
	h.w.Step()
	got, _ = h.sleeper.At(id.Raw.InstanceID, id.Raw.Version)
	require.True(t, got.WasWoken)
	require.Equal(t, uint64(2), got.WokenAt)
}

func TestWakeUpInBeforeTimeSingletonSpawnedReturnsError(t *testing.T) {
	timeSwarm := actor.New[Time](0, 0)
	err := WakeUpIn(timeSwarm, 1, rawid.RawId{})
	require.Error(t, err)
}

func TestPopDueSweepsOverdueTicksAscendingInsertionOrderWithin(t *testing.T) {
	clock := New()
	a := rawid.RawId{InstanceID: 1}
	b := rawid.RawId{InstanceID: 2}
	c := rawid.RawId{InstanceID: 3}

	clock.WakeUpIn(3, b)
	clock.WakeUpIn(1, a)
	clock.WakeUpIn(3, c)

	require.Equal(t, []rawid.RawId{a, b, c}, clock.popDue(3))
	require.Empty(t, clock.popDue(3), "a popped tick must not fire twice")
}
