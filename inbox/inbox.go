// Package inbox implements the Packet/Inbox primitives: a typed envelope
// and a FIFO queue keyed by (recipient-type, message-type).
package inbox

import "github.com/lockstepcore/engine/rawid"

// Packet is the triple (recipient_raw_id, message_payload,
// sender_raw_id_optional).
type Packet[M any] struct {
	Recipient rawid.RawId
	Payload   M
	Sender    rawid.RawId
	HasSender bool
}

// WithSender returns a Packet carrying an explicit sender id.
func WithSender[M any](recipient rawid.RawId, payload M, sender rawid.RawId) Packet[M] {
	return Packet[M]{Recipient: recipient, Payload: payload, Sender: sender, HasSender: true}
}

// WithoutSender returns a Packet with no sender id recorded.
func WithoutSender[M any](recipient rawid.RawId, payload M) Packet[M] {
	return Packet[M]{Recipient: recipient, Payload: payload}
}

// Inbox is a FIFO of Packet[M], one of which exists per (recipient-type,
// message-type) pair that has at least one registered handler. Append and
// Drain are the only operations the World needs: Drain swaps in a fresh
// empty buffer before returning the packets it collected, so packets sent
// by a handler mid-drain land in the fresh buffer rather than being
// observed (and possibly double-processed) by the in-flight drain.
type Inbox[M any] struct {
	packets []Packet[M]
}

// New returns an empty Inbox.
func New[M any]() *Inbox[M] {
	return &Inbox[M]{}
}

// Append enqueues a packet.
func (b *Inbox[M]) Append(p Packet[M]) {
	b.packets = append(b.packets, p)
}

// Len reports the number of packets currently queued.
func (b *Inbox[M]) Len() int { return len(b.packets) }

// Drain removes and returns every currently queued packet, replacing the
// backing buffer with a fresh one.
func (b *Inbox[M]) Drain() []Packet[M] {
	if len(b.packets) == 0 {
		return nil
	}
	drained := b.packets
	b.packets = nil
	return drained
}
