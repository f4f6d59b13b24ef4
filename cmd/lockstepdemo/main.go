// Command lockstepdemo runs a two-peer echo scenario in a single process:
// two Peers, connected over an in-memory Transport, each driving their own
// World through identical setup and identical turns.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/lockstepcore/engine/actor"
	"github.com/lockstepcore/engine/metrics"
	"github.com/lockstepcore/engine/network"
	"github.com/lockstepcore/engine/rawid"
	"github.com/lockstepcore/engine/registry"
	"github.com/lockstepcore/engine/world"

	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// Echo is the singleton actor of the two-peer echo scenario.
type Echo struct {
	raw      rawid.RawId
	LastPong uint64
}

func (e Echo) ID() rawid.RawId            { return e.raw }
func (e Echo) WithID(id rawid.RawId) Echo { e.raw = id; return e }
func (e Echo) DynamicSizeBytes() int      { return 0 }
func (e Echo) IsStillCompact() bool       { return true }
func (e Echo) CompactFrom(src Echo) Echo  { return src }
func (e Echo) Decompact() Echo            { return e }

// PingMessage carries the value the Echo actor will bounce back.
type PingMessage struct{ K uint64 }

// PongMessage is what Ping's handler broadcasts globally in reply.
type PongMessage struct{ K uint64 }

// spawnEchoMessage is the spawner payload; Echo takes no construction
// parameters.
type spawnEchoMessage struct{}

type peerSetup struct {
	w       *world.World
	echo    *actor.Swarm[Echo]
	peer    *network.Peer
	machine uint8
}

func setupPeer(machineID uint8, cfg network.Config) *peerSetup {
	reg := registry.New()
	w := world.New(reg, machineID, log.NewNoOpLogger())

	setup := world.NewSetup(w)
	echoTypeID := setup.RegisterActorType("Echo")
	echoSwarm := actor.New[Echo](echoTypeID, machineID)

	setup.BeginTraits() // no traits needed for this scenario
	setup.BeginHandlers()
	wh := setup.World()
	world.RegisterSpawner(wh, echoSwarm, "SpawnEcho", func(spawnEchoMessage, *world.World) Echo { return Echo{} })
	world.RegisterHandler(wh, echoSwarm, "Ping", func(msg PingMessage, _ *Echo, w *world.World) actor.Fate {
		w.Send(world.GlobalBroadcastID[Echo](echoSwarm).Raw, "Pong", PongMessage{K: msg.K})
		return actor.Live
	})
	world.RegisterHandler(wh, echoSwarm, "Pong", func(msg PongMessage, e *Echo, _ *world.World) actor.Fate {
		e.LastPong = msg.K
		fmt.Printf("peer %d: Echo received Pong(%d)\n", machineID, msg.K)
		return actor.Live
	})
	setup.BeginSingletons()
	if machineID == 0 {
		world.Spawn(setup.Singletons(), echoSwarm, "SpawnEcho", spawnEchoMessage{})
	}
	runningWorld := setup.Finish()

	p := network.NewPeer(runningWorld, cfg, machineID, log.NewNoOpLogger())
	p.SetMetrics(metrics.New(prometheus.NewRegistry()))
	return &peerSetup{w: runningWorld, echo: echoSwarm, peer: p, machine: machineID}
}

func main() {
	root := &cobra.Command{
		Use:   "lockstepdemo",
		Short: "Run the two-peer echo scenario in-process",
		RunE:  runDemo,
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDemo(*cobra.Command, []string) error {
	base := network.Config{
		NPeers:                 2,
		PeerAddresses:          []string{"inmem:0", "inmem:1"},
		BatchMessageBytes:      65536,
		AcceptableTurnDistance: 2,
		SkipTurnsPerTurnAhead:  1,
		ProtocolVersion:        1,
	}
	// Each peer binds at its own slot in PeerAddresses, so the other
	// peer's Dial(PeerAddresses[self]) lands on the right listener.
	cfg0 := base
	cfg0.BindAddress = base.PeerAddresses[0]
	cfg1 := base
	cfg1.BindAddress = base.PeerAddresses[1]

	p0 := setupPeer(0, cfg0)
	p1 := setupPeer(1, cfg1)

	t0 := network.NewInMemoryTransport()
	t1 := network.NewInMemoryTransport()

	type handshakeResult struct {
		conns []network.Conn
		err   error
	}
	results := make(chan handshakeResult, 2)
	go func() {
		conns, err := network.Handshake(t1, cfg1, 1, p1.w.Registry())
		results <- handshakeResult{conns, err}
	}()
	conns0, err := network.Handshake(t0, cfg0, 0, p0.w.Registry())
	if err != nil {
		return err
	}
	r1 := <-results
	if r1.err != nil {
		return r1.err
	}

	p0.peer.SetConns(conns0)
	p1.peer.SetConns(r1.conns)

	// Step the peers strictly in lockstep: each waits for the other's
	// TURN_END before taking its own step for that turn, so every turn
	// applies at the same local turn on both sides and the committed
	// hashes line up.
	for turn := uint64(0); turn <= 8; turn++ {
		if turn == 5 {
			echoID, ok := world.LocalFirst(p0.echo)
			if !ok {
				return fmt.Errorf("lockstepdemo: Echo singleton missing on peer 0 at turn 5")
			}
			p0.peer.OriginateLocal(echoID.Raw, "Ping", PingMessage{K: 42})
		}
		if err := p0.peer.Step(); err != nil {
			return fmt.Errorf("peer 0 step %d: %w", turn, err)
		}
		waitAdmissible(p1.peer, turn)
		if err := p1.peer.Step(); err != nil {
			return fmt.Errorf("peer 1 step %d: %w", turn, err)
		}
		waitAdmissible(p0.peer, turn)
	}

	h0, _ := p0.peer.TurnHash(5)
	h1, _ := p1.peer.TurnHash(5)
	fmt.Printf("turn 5 hashes: peer0=%x peer1=%x equal=%v\n", h0, h1, h0 == h1)
	return nil
}

func waitAdmissible(p *network.Peer, turn uint64) {
	for !p.Admissible(turn) {
		time.Sleep(time.Millisecond)
	}
}
