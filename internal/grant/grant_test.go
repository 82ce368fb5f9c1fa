package grant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/behrlich/go-blkback/internal/collab"
	"github.com/behrlich/go-blkback/internal/wire"
)

func TestStubMapCopiesGuestContent(t *testing.T) {
	m := NewStubGrantMapper()
	page := m.GuestPage(0x100)
	for i := range page {
		page[i] = 0x5A
	}

	region, err := m.Map(context.Background(), 1, []uint32{0x100}, collab.ProtRead)
	require.NoError(t, err)
	require.Len(t, region.Bytes, wire.PageSize)
	for _, b := range region.Bytes {
		require.Equal(t, byte(0x5A), b)
	}

	require.NoError(t, m.Unmap(context.Background(), region))
}

func TestStubUnmapWritesBackToGuest(t *testing.T) {
	m := NewStubGrantMapper()

	region, err := m.Map(context.Background(), 1, []uint32{0x200}, collab.ProtWrite)
	require.NoError(t, err)

	for i := range region.Bytes {
		region.Bytes[i] = 0x42
	}
	require.NoError(t, m.Unmap(context.Background(), region))

	page := m.GuestPage(0x200)
	for _, b := range page {
		require.Equal(t, byte(0x42), b)
	}
}

func TestStubUnmapUnknownHandleFails(t *testing.T) {
	m := NewStubGrantMapper()
	err := m.Unmap(context.Background(), collab.Region{HostVA: 999})
	require.ErrorIs(t, err, ErrGrantUnmapFailed)
}

type fakeHypervisor struct {
	mapErr   error
	unmapErr error
}

func (f *fakeHypervisor) GrantMap(ctx context.Context, domid uint16, grefs []uint32, prot collab.Protection) (collab.Region, error) {
	if f.mapErr != nil {
		return collab.Region{}, f.mapErr
	}
	return collab.Region{Bytes: make([]byte, len(grefs)*wire.PageSize), N: len(grefs)}, nil
}

func (f *fakeHypervisor) GrantUnmap(ctx context.Context, region collab.Region) error {
	return f.unmapErr
}

func TestHypervisorMapperWrapsErrors(t *testing.T) {
	hv := &fakeHypervisor{mapErr: errTest}
	m := NewHypervisorMapper(hv)

	_, err := m.Map(context.Background(), 1, []uint32{1}, collab.ProtRead)
	require.ErrorIs(t, err, ErrGrantMapFailed)

	hv2 := &fakeHypervisor{unmapErr: errTest}
	m2 := NewHypervisorMapper(hv2)
	err = m2.Unmap(context.Background(), collab.Region{})
	require.ErrorIs(t, err, ErrGrantUnmapFailed)
}

var errTest = &testErr{"boom"}

type testErr struct{ msg string }

func (e *testErr) Error() string { return e.msg }
