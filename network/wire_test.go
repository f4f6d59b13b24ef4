package network

import (
	"bytes"
	"testing"

	"github.com/lockstepcore/engine/rawid"
	"github.com/stretchr/testify/require"
)

func TestPacketFrameRoundTrip(t *testing.T) {
	f := packetFrame{
		Turn:          5,
		Recipient:     rawid.RawId{TypeID: 2, MachineID: 1, InstanceID: 9, Version: 3},
		MessageTypeID: 11,
		MessageName:   "Ping",
		Payload:       []byte(`{"K":42}`),
	}
	body := encodePacketFrame(f)
	pkt, _, isPkt, err := decodeFrame(body)
	require.NoError(t, err)
	require.True(t, isPkt)
	require.Equal(t, f, pkt)
}

func TestTurnEndFrameRoundTrip(t *testing.T) {
	f := turnEndFrame{Turn: 7, StateHash: 0xdeadbeef, PacketCount: 3}
	body := encodeTurnEndFrame(f)
	_, turnEnd, isPkt, err := decodeFrame(body)
	require.NoError(t, err)
	require.False(t, isPkt)
	require.Equal(t, f, turnEnd)
}

func TestDecodeFrameRejectsUnknownKind(t *testing.T) {
	_, _, _, err := decodeFrame([]byte{99})
	require.Error(t, err)
}

func TestWriteFrameThenReadFrameRecoversBody(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, []byte("hello")))
	got, err := readFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

// countingWriter records how many times Write was called, so the test can
// assert coalescing actually reduced the number of underlying writes
// rather than just checking the bytes round-trip.
type countingWriter struct {
	bytes.Buffer
	writes int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.writes++
	return w.Buffer.Write(p)
}

func TestWriteBatchedCoalescesSmallFramesIntoOneWrite(t *testing.T) {
	bodies := [][]byte{[]byte("a"), []byte("bb"), []byte("ccc")}
	var w countingWriter
	require.NoError(t, writeBatched(&w, bodies, 4096))
	require.Equal(t, 1, w.writes)

	for _, want := range bodies {
		got, err := readFrame(&w.Buffer)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestWriteBatchedSplitsWhenExceedingMaxBatchBytes(t *testing.T) {
	bodies := [][]byte{
		bytes.Repeat([]byte{1}, 10),
		bytes.Repeat([]byte{2}, 10),
		bytes.Repeat([]byte{3}, 10),
	}
	var w countingWriter
	// Each framed body is 4+10=14 bytes; a cap of 20 fits one frame per
	// write, forcing three separate underlying Writes.
	require.NoError(t, writeBatched(&w, bodies, 20))
	require.Equal(t, 3, w.writes)

	for _, want := range bodies {
		got, err := readFrame(&w.Buffer)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestWriteBatchedStillWritesOversizedSingleFrame(t *testing.T) {
	big := bytes.Repeat([]byte{7}, 100)
	var w countingWriter
	require.NoError(t, writeBatched(&w, [][]byte{big}, 16))
	require.Equal(t, 1, w.writes)

	got, err := readFrame(&w.Buffer)
	require.NoError(t, err)
	require.Equal(t, big, got)
}
