package network

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/lockstepcore/engine/rawid"
	"github.com/lockstepcore/engine/utils/wrappers"
)

// Frame kinds for the length-prefixed wire protocol exchanged between
// peers.
const (
	frameKindPacket  byte = 1
	frameKindTurnEnd byte = 2
)

// packetFrame is a PACKET(turn, recipient, message_type_id,
// payload_bytes) frame: a single message produced on the sender at turn.
type packetFrame struct {
	Turn          uint64
	Recipient     rawid.RawId
	MessageTypeID uint16
	MessageName   string
	Payload       []byte
}

// turnEndFrame is a TURN_END(turn, state_hash, packet_count) frame:
// signals the sender is done producing for turn.
type turnEndFrame struct {
	Turn        uint64
	StateHash   uint64
	PacketCount uint32
}

func encodePacketFrame(f packetFrame) []byte {
	p := wrappers.NewPacker(64 + len(f.Payload) + len(f.MessageName))
	p.PackByte(frameKindPacket)
	p.PackLong(f.Turn)
	p.PackLong(f.Recipient.Pack())
	p.PackShort(f.MessageTypeID)
	p.PackShort(uint16(len(f.MessageName)))
	p.PackBytes([]byte(f.MessageName))
	p.PackInt(uint32(len(f.Payload)))
	p.PackBytes(f.Payload)
	return p.Bytes
}

func encodeTurnEndFrame(f turnEndFrame) []byte {
	p := wrappers.NewPacker(21)
	p.PackByte(frameKindTurnEnd)
	p.PackLong(f.Turn)
	p.PackLong(f.StateHash)
	p.PackInt(f.PacketCount)
	return p.Bytes
}

// decodeFrame decodes a single frame body (without the stream length
// prefix) into either a packetFrame or a turnEndFrame.
func decodeFrame(data []byte) (packetFrame, turnEndFrame, bool, error) {
	u := wrappers.NewUnpacker(data)
	kind := u.UnpackByte()
	switch kind {
	case frameKindPacket:
		var f packetFrame
		f.Turn = u.UnpackLong()
		f.Recipient = rawid.Unpack(u.UnpackLong())
		f.MessageTypeID = u.UnpackShort()
		nameLen := int(u.UnpackShort())
		f.MessageName = string(u.UnpackBytes(nameLen))
		payloadLen := int(u.UnpackInt())
		f.Payload = append([]byte(nil), u.UnpackBytes(payloadLen)...)
		if u.Err != nil {
			return packetFrame{}, turnEndFrame{}, false, fmt.Errorf("network: decode PACKET: %w", u.Err)
		}
		return f, turnEndFrame{}, true, nil
	case frameKindTurnEnd:
		var f turnEndFrame
		f.Turn = u.UnpackLong()
		f.StateHash = u.UnpackLong()
		f.PacketCount = u.UnpackInt()
		if u.Err != nil {
			return packetFrame{}, turnEndFrame{}, false, fmt.Errorf("network: decode TURN_END: %w", u.Err)
		}
		return packetFrame{}, f, false, nil
	default:
		return packetFrame{}, turnEndFrame{}, false, fmt.Errorf("network: unknown frame kind %d", kind)
	}
}

// writeFrame writes body as one length-prefixed frame on the wire.
func writeFrame(w io.Writer, body []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// readFrame reads one length-prefixed frame from r.
func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	body := make([]byte, binary.BigEndian.Uint32(lenBuf[:]))
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

// writeBatched writes every body in bodies as its own length-prefixed
// frame, coalescing as many consecutive frames as fit within
// maxBatchBytes into a single underlying Write, so the outbox flush
// issues writes of at most maxBatchBytes rather than one Write per
// packet. A single frame larger than maxBatchBytes is still written
// whole, in its own Write: the limit bounds how much is coalesced, not
// the size of an individual packet.
func writeBatched(w io.Writer, bodies [][]byte, maxBatchBytes int) error {
	if maxBatchBytes <= 0 {
		maxBatchBytes = 1
	}
	var buf []byte
	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		_, err := w.Write(buf)
		buf = nil
		return err
	}
	for _, body := range bodies {
		framed := len(buf) + 4 + len(body)
		if len(buf) > 0 && framed > maxBatchBytes {
			if err := flush(); err != nil {
				return err
			}
		}
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, body...)
	}
	return flush()
}
