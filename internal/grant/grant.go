// Package grant implements the Guest Memory Mapper: translating an ordered
// array of grant references into a contiguous host virtual region, and the
// inverse. Grounded on the teacher's mmapQueues pattern (one seam, two
// backing implementations: a real one and a test stub) and on
// original_source/drivers/td-req.c's guest_copy, which pairs every
// xc_gnttab_map_domain_grant_refs with exactly one xc_gnttab_munmap.
package grant

import (
	"context"
	"errors"

	"github.com/behrlich/go-blkback/internal/collab"
	"github.com/behrlich/go-blkback/internal/wire"
)

// ErrGrantMapFailed is returned when the hypervisor rejects a map request
// (guest revoked the grant, permission mismatch, or resource exhaustion).
var ErrGrantMapFailed = errors.New("grant: map failed")

// ErrGrantUnmapFailed is returned when the hypervisor rejects an unmap
// request. Unmap failure is reported but never alters the logical request
// state the caller already committed to.
var ErrGrantUnmapFailed = errors.New("grant: unmap failed")

// Mapper is the Guest Memory Mapper seam: map an ordered set of grant
// references into one contiguous host region, and release it. Every
// successful Map must be paired with exactly one Unmap on every exit path
// (the scoped-acquisition contract, spec §4.3 Scoping).
type Mapper interface {
	Map(ctx context.Context, domid uint16, grefs []uint32, prot collab.Protection) (collab.Region, error)
	Unmap(ctx context.Context, region collab.Region) error
}

// HypervisorMapper wraps a caller-supplied GrantHypervisor collaborator.
// It owns only the scoped-acquisition bookkeeping; the actual grant_map/
// grant_unmap work is the hypervisor binding's.
type HypervisorMapper struct {
	hv collab.GrantHypervisor
}

// NewHypervisorMapper wraps hv as a Mapper.
func NewHypervisorMapper(hv collab.GrantHypervisor) *HypervisorMapper {
	return &HypervisorMapper{hv: hv}
}

func (m *HypervisorMapper) Map(ctx context.Context, domid uint16, grefs []uint32, prot collab.Protection) (collab.Region, error) {
	region, err := m.hv.GrantMap(ctx, domid, grefs, prot)
	if err != nil {
		return collab.Region{}, errJoin(ErrGrantMapFailed, err)
	}
	return region, nil
}

func (m *HypervisorMapper) Unmap(ctx context.Context, region collab.Region) error {
	if err := m.hv.GrantUnmap(ctx, region); err != nil {
		return errJoin(ErrGrantUnmapFailed, err)
	}
	return nil
}

func errJoin(sentinel, inner error) error {
	if inner == nil {
		return sentinel
	}
	return &wrapped{sentinel: sentinel, inner: inner}
}

type wrapped struct {
	sentinel error
	inner    error
}

func (w *wrapped) Error() string { return w.sentinel.Error() + ": " + w.inner.Error() }
func (w *wrapped) Unwrap() []error { return []error{w.sentinel, w.inner} }

// StubGrantMapper backs grants with a process-local page store instead of
// a real hypervisor, so unit tests can exercise the full translate/complete
// path without one. Map copies guest page content into a fresh contiguous
// host buffer (a snapshot); Unmap copies that buffer's current content back
// into the guest page store. This models the zero-copy semantics of a real
// grant mapping closely enough for tests: whatever the host reads after Map
// matches current guest content, and whatever it writes before Unmap is
// visible to the guest afterward.
type StubGrantMapper struct {
	pages    map[uint32]*[wire.PageSize]byte
	mappings map[uintptr][]uint32
	nextH    uintptr
}

// NewStubGrantMapper returns an empty stub; guest pages are created lazily
// on first reference to a grant reference.
func NewStubGrantMapper() *StubGrantMapper {
	return &StubGrantMapper{
		pages:    make(map[uint32]*[wire.PageSize]byte),
		mappings: make(map[uintptr][]uint32),
	}
}

// GuestPage returns the backing page for gref, creating it (zeroed) if it
// does not yet exist. Tests use this to seed guest content or to assert
// what the host wrote.
func (m *StubGrantMapper) GuestPage(gref uint32) *[wire.PageSize]byte {
	p, ok := m.pages[gref]
	if !ok {
		p = &[wire.PageSize]byte{}
		m.pages[gref] = p
	}
	return p
}

func (m *StubGrantMapper) Map(ctx context.Context, domid uint16, grefs []uint32, prot collab.Protection) (collab.Region, error) {
	buf := make([]byte, len(grefs)*wire.PageSize)
	for i, gref := range grefs {
		page := m.GuestPage(gref)
		copy(buf[i*wire.PageSize:(i+1)*wire.PageSize], page[:])
	}

	handle := m.nextH
	m.nextH++
	m.mappings[handle] = append([]uint32(nil), grefs...)

	return collab.Region{Bytes: buf, HostVA: handle, N: len(grefs)}, nil
}

func (m *StubGrantMapper) Unmap(ctx context.Context, region collab.Region) error {
	grefs, ok := m.mappings[region.HostVA]
	if !ok {
		return ErrGrantUnmapFailed
	}
	delete(m.mappings, region.HostVA)

	for i, gref := range grefs {
		page := m.GuestPage(gref)
		copy(page[:], region.Bytes[i*wire.PageSize:(i+1)*wire.PageSize])
	}
	return nil
}

var _ Mapper = (*HypervisorMapper)(nil)
var _ Mapper = (*StubGrantMapper)(nil)
