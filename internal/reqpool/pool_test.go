package reqpool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitFillsFreeList(t *testing.T) {
	p, err := Init(4)
	require.NoError(t, err)
	require.Equal(t, 4, p.NFree())
	require.Equal(t, 0, p.InFlight())
}

func TestAcquireReleaseRoundTrip(t *testing.T) {
	p, err := Init(2)
	require.NoError(t, err)

	s1, err := p.Acquire()
	require.NoError(t, err)
	require.Equal(t, 1, p.NFree())
	require.Equal(t, 1, p.InFlight())

	s2, err := p.Acquire()
	require.NoError(t, err)
	require.Equal(t, 0, p.NFree())

	_, err = p.Acquire()
	require.ErrorIs(t, err, ErrPoolExhausted)

	require.NoError(t, p.Release(s1))
	require.Equal(t, 1, p.NFree())

	require.NoError(t, p.Release(s2))
	require.Equal(t, 2, p.NFree())
	require.Equal(t, 0, p.InFlight())
}

func TestDoubleReleaseFails(t *testing.T) {
	p, err := Init(1)
	require.NoError(t, err)

	s, err := p.Acquire()
	require.NoError(t, err)
	require.NoError(t, p.Release(s))
	require.ErrorIs(t, p.Release(s), ErrDoubleRelease)
}

func TestSlotRecoveryByIndex(t *testing.T) {
	p, err := Init(3)
	require.NoError(t, err)

	s, err := p.Acquire()
	require.NoError(t, err)
	s.Name = "backend-1-0.a"

	recovered := p.Slot(s.Index)
	require.Same(t, s, recovered)
	require.Equal(t, "backend-1-0.a", recovered.Name)
}

func TestReleaseClearsInFlightState(t *testing.T) {
	p, err := Init(1)
	require.NoError(t, err)

	s, err := p.Acquire()
	require.NoError(t, err)
	s.Bounce = make([]byte, 4096)

	require.NoError(t, p.Release(s))
	require.Nil(t, s.Bounce)
}
