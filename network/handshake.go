package network

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/lockstepcore/engine/registry"
	"github.com/lockstepcore/engine/utils/wrappers"
)

// handshakeMessage is exchanged once per connection before any PACKET or
// TURN_END frame: machine_id, protocol_version, and the TypeRegistry
// name→id mapping, so that ids are consistent across peers even if
// registration order differs locally.
type handshakeMessage struct {
	MachineID       uint8
	ProtocolVersion uint16
	Registry        registry.NameMapping
}

func writeHandshake(conn Conn, msg handshakeMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("network: marshal handshake: %w", err)
	}
	return writeFrame(conn, body)
}

func readHandshake(conn Conn) (handshakeMessage, error) {
	body, err := readFrame(connReader{conn})
	if err != nil {
		return handshakeMessage{}, fmt.Errorf("network: read handshake: %w", err)
	}
	var msg handshakeMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return handshakeMessage{}, fmt.Errorf("network: unmarshal handshake: %w", err)
	}
	return msg, nil
}

// Handshake bootstraps the full mesh of connections this peer needs:
// every peer dials each lower-numbered peer's bind address and accepts
// connections from each higher-numbered peer, generalizing the
// "peer 0 listens, others dial" pattern to a pairwise mesh instead of a
// single star so that every peer pair gets a direct connection regardless
// of N. Each connection exchanges a handshakeMessage in both directions;
// a protocol version or registry mismatch is a fatal setup error.
func Handshake(t Transport, cfg Config, self uint8, reg *registry.TypeRegistry) ([]Conn, error) {
	conns := make([]Conn, cfg.NPeers)
	var errs wrappers.Errs

	if int(self) < cfg.NPeers-1 {
		if err := t.Listen(cfg.BindAddress); err != nil {
			return nil, err
		}
		defer t.Close()
	}

	for other := uint8(0); int(other) < int(self); other++ {
		addr := cfg.PeerAddresses[other]
		conn, err := t.Dial(addr)
		if err != nil {
			errs.Add(fmt.Errorf("network: dial peer %d at %s: %w", other, addr, err))
			continue
		}
		if err := handshakeOver(conn, cfg, self, reg); err != nil {
			errs.Add(err)
			continue
		}
		conns[other] = conn
	}

	expectedAccepts := cfg.NPeers - int(self) - 1
	for i := 0; i < expectedAccepts; i++ {
		conn, err := t.Accept()
		if err != nil {
			errs.Add(fmt.Errorf("network: accept: %w", err))
			continue
		}
		peerMachineID, err := handshakeAcceptOver(conn, cfg, self, reg)
		if err != nil {
			errs.Add(err)
			continue
		}
		conns[peerMachineID] = conn
	}

	if errs.Errored() {
		return nil, errs.Err()
	}
	return conns, nil
}

func handshakeOver(conn Conn, cfg Config, self uint8, reg *registry.TypeRegistry) error {
	if err := writeHandshake(conn, handshakeMessage{MachineID: self, ProtocolVersion: cfg.ProtocolVersion, Registry: reg.Export()}); err != nil {
		return err
	}
	peerMsg, err := readHandshake(conn)
	if err != nil {
		return err
	}
	return validateHandshake(peerMsg, cfg, reg)
}

func handshakeAcceptOver(conn Conn, cfg Config, self uint8, reg *registry.TypeRegistry) (uint8, error) {
	peerMsg, err := readHandshake(conn)
	if err != nil {
		return 0, err
	}
	if err := writeHandshake(conn, handshakeMessage{MachineID: self, ProtocolVersion: cfg.ProtocolVersion, Registry: reg.Export()}); err != nil {
		return 0, err
	}
	if err := validateHandshake(peerMsg, cfg, reg); err != nil {
		return 0, err
	}
	return peerMsg.MachineID, nil
}

func validateHandshake(msg handshakeMessage, cfg Config, reg *registry.TypeRegistry) error {
	if msg.ProtocolVersion != cfg.ProtocolVersion {
		return fmt.Errorf("network: protocol version mismatch: local %d, peer %d reports %d", cfg.ProtocolVersion, msg.MachineID, msg.ProtocolVersion)
	}
	if !reg.Matches(msg.Registry) {
		return fmt.Errorf("network: TypeRegistry mismatch with peer %d", msg.MachineID)
	}
	return nil
}

var _ io.Reader = connReader{}
