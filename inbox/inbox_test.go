package inbox

import (
	"testing"

	"github.com/lockstepcore/engine/rawid"
	"github.com/stretchr/testify/require"
)

func TestAppendThenDrainPreservesFIFOOrder(t *testing.T) {
	b := New[int]()
	b.Append(WithoutSender(rawid.RawId{}, 1))
	b.Append(WithoutSender(rawid.RawId{}, 2))
	b.Append(WithoutSender(rawid.RawId{}, 3))
	require.Equal(t, 3, b.Len())

	drained := b.Drain()
	require.Len(t, drained, 3)
	require.Equal(t, 1, drained[0].Payload)
	require.Equal(t, 2, drained[1].Payload)
	require.Equal(t, 3, drained[2].Payload)
	require.Equal(t, 0, b.Len())
}

func TestDrainReturnsFreshBufferForMidDrainAppends(t *testing.T) {
	b := New[int]()
	b.Append(WithoutSender(rawid.RawId{}, 1))
	first := b.Drain()
	require.Len(t, first, 1)

	// A packet appended after Drain must not retroactively appear in the
	// slice Drain already returned.
	b.Append(WithoutSender(rawid.RawId{}, 2))
	require.Len(t, first, 1)
	require.Equal(t, 1, b.Len())
}

func TestWithSenderRecordsSender(t *testing.T) {
	sender := rawid.RawId{InstanceID: 5}
	p := WithSender(rawid.RawId{InstanceID: 1}, "hi", sender)
	require.True(t, p.HasSender)
	require.Equal(t, sender, p.Sender)
}

func TestDrainOfEmptyInboxReturnsNil(t *testing.T) {
	b := New[int]()
	require.Nil(t, b.Drain())
}
