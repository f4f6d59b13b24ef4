package network

import (
	"encoding/binary"
	"fmt"

	"github.com/OneOfOne/xxhash"
	"github.com/lockstepcore/engine/metrics"
	"github.com/lockstepcore/engine/rawid"
	"github.com/lockstepcore/engine/utils/wrappers"
	"github.com/lockstepcore/engine/world"

	"github.com/luxfi/log"
)

// localSend is a turn-boundary message originated by this peer, buffered
// until Step applies it in ascending-peer-id order alongside whatever the
// other peers sent for the same turn.
type localSend struct {
	recipient   rawid.RawId
	messageName string
	payload     any
}

type incomingFrame struct {
	peer    uint8
	packet  packetFrame
	isPkt   bool
	turnEnd turnEndFrame
	err     error
}

// Peer is one machine's view of the per-peer networking state: local_turn,
// peer_turn[p], outbox[p], inbox[p][t], and turn_hashes[t]. It implements
// world.Mirror so handler-triggered sends to remote or global recipients
// are folded into the current turn's outbox automatically.
type Peer struct {
	w      *world.World
	self   uint8
	nPeers int
	cfg    Config
	conns  []Conn
	log    log.Logger

	localTurn       uint64
	nextTurnToApply uint64
	peerTurn        []uint64 // highest turn each remote peer has closed

	// localBuffered[turn] holds locally originated sends awaiting their
	// turn's application, mirrored to remote peers at origination time so
	// both sides agree on which turn carries them.
	localBuffered map[uint64][]localSend

	// remoteBuffered[turn][peer] holds received-but-unapplied PACKET
	// frames; turnClosed[turn][peer] records that peer's TURN_END for
	// turn; turnExpected/turnReceived track packet_count admissibility.
	remoteBuffered map[uint64]map[uint8][]packetFrame
	turnClosed     map[uint64]map[uint8]bool
	turnExpected   map[uint64]map[uint8]uint32
	turnReceived   map[uint64]map[uint8]uint32

	turnHashes map[uint64]uint64

	outbox [][][]byte // outbox[peer] = ordered PACKET frame bodies awaiting flush

	incoming chan incomingFrame

	skipRemaining uint64

	errs wrappers.Errs

	metrics *metrics.Metrics
}

// SetMetrics installs m, which from then on is updated once per Step: turn
// counts, packets mirrored/applied, turns skipped, inbox depth, and the
// peer-turn distance that drives turn-skip flow control. Passing nil
// (the default) disables metrics entirely at zero cost.
func (p *Peer) SetMetrics(m *metrics.Metrics) { p.metrics = m }

// NewPeer constructs a Peer for machine self among nPeers total, installs
// itself as w's Mirror, and returns. Connections are supplied separately
// by Handshake (or directly, in tests) via SetConns.
func NewPeer(w *world.World, cfg Config, self uint8, logger log.Logger) *Peer {
	p := &Peer{
		w:              w,
		self:           self,
		nPeers:         cfg.NPeers,
		cfg:            cfg,
		log:            logger,
		peerTurn:       make([]uint64, cfg.NPeers),
		localBuffered:  make(map[uint64][]localSend),
		remoteBuffered: make(map[uint64]map[uint8][]packetFrame),
		turnClosed:     make(map[uint64]map[uint8]bool),
		turnExpected:   make(map[uint64]map[uint8]uint32),
		turnReceived:   make(map[uint64]map[uint8]uint32),
		turnHashes:     make(map[uint64]uint64),
		outbox:         make([][][]byte, cfg.NPeers),
		incoming:       make(chan incomingFrame, 1024),
	}
	w.SetMirror(p)
	return p
}

// SetConns installs the per-peer connections established by Handshake (or
// by a test harness), and starts one receive goroutine per remote peer.
func (p *Peer) SetConns(conns []Conn) {
	p.conns = conns
	for peerID, conn := range conns {
		if uint8(peerID) == p.self || conn == nil {
			continue
		}
		go p.receiveLoop(uint8(peerID), conn)
	}
}

func (p *Peer) receiveLoop(peerID uint8, conn Conn) {
	for {
		body, err := readFrame(connReader{conn})
		if err != nil {
			p.incoming <- incomingFrame{peer: peerID, err: fmt.Errorf("network: read from peer %d: %w", peerID, err)}
			return
		}
		pkt, turnEnd, isPkt, err := decodeFrame(body)
		if err != nil {
			p.incoming <- incomingFrame{peer: peerID, err: err}
			return
		}
		p.incoming <- incomingFrame{peer: peerID, packet: pkt, isPkt: isPkt, turnEnd: turnEnd}
	}
}

// connReader adapts Conn (which only promises Read/Write/Close) to
// io.Reader for readFrame.
type connReader struct{ Conn }

// MirrorInstance implements world.Mirror.
func (p *Peer) MirrorInstance(recipient rawid.RawId, messageName string, payload any, _ rawid.RawId, _ bool) {
	p.mirrorTo(recipient.MachineID, recipient, messageName, payload)
}

// MirrorBroadcast implements world.Mirror.
func (p *Peer) MirrorBroadcast(recipient rawid.RawId, messageName string, payload any, _ rawid.RawId, _ bool) {
	for peerID := 0; peerID < p.nPeers; peerID++ {
		if uint8(peerID) == p.self {
			continue
		}
		p.mirrorTo(uint8(peerID), recipient, messageName, payload)
	}
}

func (p *Peer) mirrorTo(peerID uint8, recipient rawid.RawId, messageName string, payload any) {
	data, err := world.EncodeMessage(payload)
	if err != nil {
		panic(fmt.Errorf("network: encode message %q: %w", messageName, err))
	}
	msgID, _ := p.w.MessageID(messageName)
	body := encodePacketFrame(packetFrame{
		Turn: p.localTurn, Recipient: recipient, MessageTypeID: msgID,
		MessageName: messageName, Payload: data,
	})
	p.outbox[peerID] = append(p.outbox[peerID], body)
	if p.metrics != nil {
		p.metrics.PacketsSent.Inc()
	}
}

// OriginateLocal queues a turn-boundary input originated on this peer for
// the current local turn. Unlike handler-driven sends (which follow the
// recipient: instance traffic reaches the owner peer only), an input is
// external to the simulation, so its remote-facing copy is mirrored to
// every peer, labeled with the current turn. The exception is a
// local-broadcast input: it goes only to the peer its machine id names
// (buffered here when that is this peer, mirrored there otherwise). For
// the other inputs, peers that do not own the
// recipient drop it at delivery but still count it toward the turn's
// dispatched packet set, keeping the committed turn hashes comparable.
// The local copy is buffered until that turn is admissible and applied in
// this peer's ascending-id position alongside the other peers' traffic
// for it. It is a no-op while skipping: a skipped step originates no new
// packets.
func (p *Peer) OriginateLocal(recipient rawid.RawId, messageName string, payload any) {
	if p.skipRemaining > 0 {
		return
	}
	if recipient.IsLocalBroadcast() && recipient.MachineID != p.self {
		p.mirrorTo(recipient.MachineID, recipient, messageName, payload)
		return
	}
	if !recipient.IsLocalBroadcast() {
		for peerID := 0; peerID < p.nPeers; peerID++ {
			if uint8(peerID) == p.self {
				continue
			}
			p.mirrorTo(uint8(peerID), recipient, messageName, payload)
		}
	}
	p.localBuffered[p.localTurn] = append(p.localBuffered[p.localTurn], localSend{recipient, messageName, payload})
}

// LocalTurn reports the turn currently being filled on this peer.
func (p *Peer) LocalTurn() uint64 { return p.localTurn }

// Admissible polls for newly arrived frames, then reports whether turn's
// TURN_END has arrived from every remote peer with matching packet
// counts. Embedders driving several in-process peers use it to keep
// their step loops aligned before calling Step.
func (p *Peer) Admissible(turn uint64) bool {
	p.pollIncoming()
	return p.turnAdmissible(turn)
}

// TurnHash returns the state digest committed for turn, if any.
func (p *Peer) TurnHash(turn uint64) (uint64, bool) {
	h, ok := p.turnHashes[turn]
	return h, ok
}

func (p *Peer) pollIncoming() {
	for {
		select {
		case ev := <-p.incoming:
			p.handleIncoming(ev)
		default:
			return
		}
	}
}

func (p *Peer) handleIncoming(ev incomingFrame) {
	if ev.err != nil {
		p.log.Error("peer connection failed", "peer", ev.peer, "error", ev.err)
		p.errs.Add(ev.err)
		return
	}
	if ev.isPkt {
		p.noteRemotePacket(ev.peer, ev.packet)
		return
	}
	p.noteTurnEnd(ev.peer, ev.turnEnd)
}

func (p *Peer) noteRemotePacket(peer uint8, f packetFrame) {
	byPeer, ok := p.remoteBuffered[f.Turn]
	if !ok {
		byPeer = make(map[uint8][]packetFrame)
		p.remoteBuffered[f.Turn] = byPeer
	}
	byPeer[peer] = append(byPeer[peer], f)

	recv, ok := p.turnReceived[f.Turn]
	if !ok {
		recv = make(map[uint8]uint32)
		p.turnReceived[f.Turn] = recv
	}
	recv[peer]++
}

func (p *Peer) noteTurnEnd(peer uint8, f turnEndFrame) {
	if f.Turn > p.peerTurn[peer] {
		p.peerTurn[peer] = f.Turn
	}
	closed, ok := p.turnClosed[f.Turn]
	if !ok {
		closed = make(map[uint8]bool)
		p.turnClosed[f.Turn] = closed
	}
	closed[peer] = true

	expected, ok := p.turnExpected[f.Turn]
	if !ok {
		expected = make(map[uint8]uint32)
		p.turnExpected[f.Turn] = expected
	}
	expected[peer] = f.PacketCount
}

// turnAdmissible reports whether turn's TURN_END has arrived from every
// remote peer, with packet_count matching what was actually received: a
// turn is admissible on the receiver only once every peer has confirmed
// it and the stated packet counts match what arrived.
func (p *Peer) turnAdmissible(turn uint64) bool {
	closed := p.turnClosed[turn]
	expected := p.turnExpected[turn]
	received := p.turnReceived[turn]
	for peerID := 0; peerID < p.nPeers; peerID++ {
		if uint8(peerID) == p.self {
			continue
		}
		if !closed[uint8(peerID)] {
			return false
		}
		if received[uint8(peerID)] != expected[uint8(peerID)] {
			return false
		}
	}
	return true
}

// applyTurn enqueues every packet destined for local delivery during
// turn, in ascending peer id (self's own buffered local sends take their
// natural position in that ordering), then clears the buffers. It does
// not drain — that is Step's job, via World.Step.
func (p *Peer) applyTurn(turn uint64) {
	for peerID := 0; peerID < p.nPeers; peerID++ {
		if uint8(peerID) == p.self {
			// Already mirrored at origination time, so enqueue-only here:
			// going through Send again would mirror a second copy.
			for _, ls := range p.localBuffered[turn] {
				p.w.ApplyRemote(ls.recipient, ls.messageName, ls.payload, rawid.RawId{}, false)
			}
			delete(p.localBuffered, turn)
			continue
		}
		for _, f := range p.remoteBuffered[turn][uint8(peerID)] {
			payload, err := p.w.DecodeMessage(f.Recipient.TypeID, f.MessageName, f.Payload)
			if err != nil {
				p.log.Error("undecodable packet", "peer", peerID, "turn", turn, "message", f.MessageName, "error", err)
				p.errs.Add(err)
				continue
			}
			p.w.ApplyRemote(f.Recipient, f.MessageName, payload, rawid.RawId{}, false)
			if p.metrics != nil {
				p.metrics.PacketsReceived.Inc()
			}
		}
	}
	delete(p.remoteBuffered, turn)
}

// Step closes out the current local turn: poll for newly arrived network
// data, apply every admissible turn (including this one), drain the
// World, commit a turn hash, and run finish_turn's flush/skip-control
// logic. If a prior Step left skipRemaining > 0, this Step only applies
// incoming turns and does not originate, drain for local content, or
// advance local_turn: it is a skipped step.
func (p *Peer) Step() error {
	p.pollIncoming()

	// Never apply past local_turn: a turn's application includes this
	// peer's own buffered contribution, which only exists once the local
	// simulation has filled that turn.
	for p.nextTurnToApply <= p.localTurn && p.turnAdmissible(p.nextTurnToApply) {
		p.applyTurn(p.nextTurnToApply)
		p.nextTurnToApply++
	}

	if p.errs.Errored() {
		return p.errs.Err()
	}

	if p.skipRemaining > 0 {
		p.skipRemaining--
		if p.metrics != nil {
			// Applied-but-undrained turns accumulate across skipped
			// steps; this is the only time the depth reads nonzero.
			p.metrics.InboxDepth.Set(float64(p.w.PendingPackets()))
		}
		return nil
	}

	// The committed digest is the XOR of one xxhash64 per dispatched
	// packet, not a hash of the concatenated sequence: a remote peer
	// applies a turn's handler cascade flattened into a single sub-pass,
	// so the dispatched multiset is identical across peers while the
	// sub-pass order is not. Local-broadcast recipients carry the
	// executing peer's own machine id; it is normalized out so the same
	// broadcast hashes alike everywhere.
	var turnDigest uint64
	p.w.SetDispatchObserver(func(actorTypeID uint16, messageName string, recipient rawid.RawId, payload any) {
		data, err := world.EncodeMessage(payload)
		if err != nil {
			return
		}
		if recipient.IsLocalBroadcast() {
			recipient.MachineID = 0
		}
		hasher := xxhash.New64()
		var idBuf [8]byte
		binary.BigEndian.PutUint64(idBuf[:], recipient.Pack())
		_, _ = hasher.Write(idBuf[:])
		_, _ = hasher.Write([]byte(messageName))
		_, _ = hasher.Write(data)
		turnDigest ^= hasher.Sum64()
	})
	subpasses := p.w.Step()
	p.w.SetDispatchObserver(nil)

	hash := turnDigest
	p.turnHashes[p.localTurn] = hash

	if p.metrics != nil {
		p.metrics.TurnsCompleted.Inc()
		p.metrics.SubPassesPerStep.Observe(float64(subpasses))
		p.metrics.InboxDepth.Set(float64(p.w.PendingPackets()))
	}

	skip, err := p.finishTurn(hash)
	if err != nil {
		return err
	}
	p.skipRemaining = skip
	return nil
}

// finishTurn flushes this turn's outbox to every remote peer behind a
// TURN_END marker, then computes the turn-skip flow-control signal
// before incrementing local_turn.
func (p *Peer) finishTurn(hash uint64) (uint64, error) {
	for peerID := 0; peerID < p.nPeers; peerID++ {
		if uint8(peerID) == p.self || p.conns[peerID] == nil {
			continue
		}
		conn := p.conns[peerID]
		count := uint32(len(p.outbox[peerID]))
		var batchBytes int
		for _, body := range p.outbox[peerID] {
			batchBytes += len(body)
		}
		if err := writeBatched(conn, p.outbox[peerID], p.cfg.BatchMessageBytes); err != nil {
			return 0, fmt.Errorf("network: flush to peer %d: %w", peerID, err)
		}
		turnEnd := encodeTurnEndFrame(turnEndFrame{Turn: p.localTurn, StateHash: hash, PacketCount: count})
		if err := writeFrame(conn, turnEnd); err != nil {
			return 0, fmt.Errorf("network: flush TURN_END to peer %d: %w", peerID, err)
		}
		p.outbox[peerID] = nil
		if p.metrics != nil {
			p.metrics.BatchBytesSent.Observe(float64(batchBytes))
		}
	}

	minPeerTurn := p.localTurn
	for peerID := 0; peerID < p.nPeers; peerID++ {
		if uint8(peerID) == p.self {
			continue
		}
		if p.peerTurn[peerID] < minPeerTurn {
			minPeerTurn = p.peerTurn[peerID]
		}
	}

	var skip uint64
	var lead uint64
	if p.nPeers > 1 && p.localTurn > minPeerTurn {
		lead = p.localTurn - minPeerTurn
		if lead > p.cfg.AcceptableTurnDistance {
			skip = p.cfg.SkipTurnsPerTurnAhead * (lead - p.cfg.AcceptableTurnDistance)
			p.log.Debug("turn skip engaged", "turn", p.localTurn, "lead", lead, "skip", skip)
		}
	}

	if p.metrics != nil {
		p.metrics.PeerTurnDistance.Set(float64(lead))
		if skip > 0 {
			p.metrics.TurnsSkipped.Add(float64(skip))
		}
	}

	p.localTurn++
	return skip, nil
}
