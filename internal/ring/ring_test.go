package ring

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/behrlich/go-blkback/internal/wire"
)

func TestResponseSlotRoundTrip(t *testing.T) {
	r, err := NewStubRing(wire.ProtocolNative, 4)
	require.NoError(t, err)
	require.Equal(t, 4, r.Size())

	slot := r.ReserveResponseSlot()
	want := wire.Response{ID: 0xAA, Operation: wire.OpRead, Status: wire.StatusOkay}
	require.NoError(t, slot.Set(want))

	got, err := slot.Get()
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestPublishNotifiesOnFirstResponse(t *testing.T) {
	r, err := NewStubRing(wire.ProtocolNative, 4)
	require.NoError(t, err)

	r.ReserveResponseSlot()
	require.True(t, r.PublishAndMaybeNotify())
}

func TestPublishWithNoPendingResponsesDoesNotNotify(t *testing.T) {
	r, err := NewStubRing(wire.ProtocolNative, 4)
	require.NoError(t, err)

	require.False(t, r.PublishAndMaybeNotify())
}

func TestPublishOnlyNotifiesWhenThresholdCrossed(t *testing.T) {
	r, err := NewStubRing(wire.ProtocolNative, 4)
	require.NoError(t, err)
	r.SetRspEvent(3)

	r.ReserveResponseSlot()
	require.False(t, r.PublishAndMaybeNotify())

	r.ReserveResponseSlot()
	require.False(t, r.PublishAndMaybeNotify())

	r.ReserveResponseSlot()
	require.True(t, r.PublishAndMaybeNotify())
}

func TestUnsupportedProtocolVariant(t *testing.T) {
	_, err := NewStubRing(wire.ProtocolVariant(42), 4)
	require.ErrorIs(t, err, ErrUnsupportedProtocol)
}
