package blkback

import (
	"context"
	"sync"
)

// MockImageSubsystem is a configurable ImageSubsystem for tests that do not
// need a real storage backend. By default QueueRequest completes every
// descriptor synchronously and successfully; set RejectNext/ErrnoNext or
// FillReads/FillByte to exercise error and read-completion paths. Grounded on the teacher's
// MockBackend (call-count tracking behind a mutex).
type MockImageSubsystem struct {
	// FillByte, if FillReads is true, is written into every iov of a READ
	// descriptor before completion, simulating a backend returning data.
	FillByte  byte
	FillReads bool

	// RejectNext, if > 0, makes the next N calls to QueueRequest return
	// ErrSubmitFailed instead of accepting the descriptor.
	RejectNext int

	// ErrnoNext is the errno passed to the completion callback for the
	// next accepted descriptor (0 = success). Consumed once, then resets.
	ErrnoNext int

	mu        sync.Mutex
	submitted []*Descriptor
}

func (m *MockImageSubsystem) QueueRequest(ctx context.Context, desc *Descriptor, complete CompletionFunc) error {
	m.mu.Lock()
	m.submitted = append(m.submitted, desc)
	if m.RejectNext > 0 {
		m.RejectNext--
		m.mu.Unlock()
		return ErrSubmitFailed
	}
	errno := m.ErrnoNext
	m.ErrnoNext = 0
	fill, fillByte := m.FillReads, m.FillByte
	m.mu.Unlock()

	if fill {
		for _, v := range desc.IOV {
			for i := range v.Base {
				v.Base[i] = fillByte
			}
		}
	}
	complete(desc, errno, nil, true)
	return nil
}

// Submitted returns every descriptor QueueRequest has been called with, in
// call order.
func (m *MockImageSubsystem) Submitted() []*Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Descriptor, len(m.submitted))
	copy(out, m.submitted)
	return out
}

// MockGrantHypervisor is a process-local stand-in for a real grant-table
// hypervisor binding: it keeps one page per grant reference in memory and
// round-trips Map/Unmap through it, so tests can exercise copy-in/copy-out
// without a Xen host. Grounded on the teacher's MockBackend pattern, paired
// here with the page-store behaviour of internal/grant.StubGrantMapper.
type MockGrantHypervisor struct {
	mu       sync.Mutex
	pages    map[uint32]*[PageSize]byte
	mappings map[uintptr][]uint32
	nextH    uintptr

	// FailMap/FailUnmap make the next call to GrantMap/GrantUnmap fail.
	FailMap   bool
	FailUnmap bool
}

// NewMockGrantHypervisor returns an empty mock; guest pages are created
// lazily on first reference.
func NewMockGrantHypervisor() *MockGrantHypervisor {
	return &MockGrantHypervisor{
		pages:    make(map[uint32]*[PageSize]byte),
		mappings: make(map[uintptr][]uint32),
	}
}

// GuestPage returns the backing page for gref, creating it zeroed if needed.
func (m *MockGrantHypervisor) GuestPage(gref uint32) *[PageSize]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.guestPageLocked(gref)
}

func (m *MockGrantHypervisor) guestPageLocked(gref uint32) *[PageSize]byte {
	p, ok := m.pages[gref]
	if !ok {
		p = &[PageSize]byte{}
		m.pages[gref] = p
	}
	return p
}

func (m *MockGrantHypervisor) GrantMap(ctx context.Context, domid uint16, grefs []uint32, prot Protection) (Region, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailMap {
		m.FailMap = false
		return Region{}, ErrGrantMapFailed
	}

	buf := make([]byte, len(grefs)*PageSize)
	for i, gref := range grefs {
		page := m.guestPageLocked(gref)
		copy(buf[i*PageSize:(i+1)*PageSize], page[:])
	}

	handle := m.nextH
	m.nextH++
	m.mappings[handle] = append([]uint32(nil), grefs...)
	return Region{Bytes: buf, HostVA: handle, N: len(grefs)}, nil
}

func (m *MockGrantHypervisor) GrantUnmap(ctx context.Context, region Region) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailUnmap {
		m.FailUnmap = false
		return ErrGrantUnmapFailed
	}

	grefs, ok := m.mappings[region.HostVA]
	if !ok {
		return ErrGrantUnmapFailed
	}
	delete(m.mappings, region.HostVA)
	for i, gref := range grefs {
		page := m.guestPageLocked(gref)
		copy(page[:], region.Bytes[i*PageSize:(i+1)*PageSize])
	}
	return nil
}

// MockEventChannel records every Notify call; set FailNext to simulate a
// notify failure on the next call.
type MockEventChannel struct {
	mu       sync.Mutex
	notified []uint32
	FailNext bool
}

func (m *MockEventChannel) Notify(ctx context.Context, port uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNext {
		m.FailNext = false
		return ErrNotifyFailed
	}
	m.notified = append(m.notified, port)
	return nil
}

// Notified returns every port Notify has been called with, in call order.
func (m *MockEventChannel) Notified() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uint32, len(m.notified))
	copy(out, m.notified)
	return out
}

var (
	_ ImageSubsystem = (*MockImageSubsystem)(nil)
	_ GrantHypervisor = (*MockGrantHypervisor)(nil)
	_ EventChannel    = (*MockEventChannel)(nil)
)
