// Package reqpool implements the Request Pool: a fixed-size pre-allocated
// array of request slots sized to the ring, plus an index-based free-list.
// Grounded on original_source/drivers/td-req.c's
// tapdisk_xenblkif_reqs_init/tapdisk_xenblkif_free_request, restated with
// indices instead of pointer-into-parent-struct arithmetic (see the
// slot-embedding design note: wire-request handles carry the index
// explicitly rather than relying on pointer arithmetic into a parent
// structure).
package reqpool

import (
	"errors"

	"github.com/behrlich/go-blkback/internal/collab"
	"github.com/behrlich/go-blkback/internal/wire"
)

// ErrOutOfMemory is returned by Init when slot or free-list allocation
// fails. Init releases any partial allocation before returning it.
var ErrOutOfMemory = errors.New("reqpool: allocation failed")

// ErrPoolExhausted is returned by Acquire when n_reqs_free == 0. The
// drainer must never call Acquire more than n_reqs_free times per wakeup.
var ErrPoolExhausted = errors.New("reqpool: pool exhausted")

// ErrDoubleRelease is returned by Release if the slot is already free.
var ErrDoubleRelease = errors.New("reqpool: slot already released")

// Slot is TapReq: the internal lifetime-bearing record pairing a ring
// request with its in-flight state.
type Slot struct {
	Index int

	// Header is a snapshot of the wire request, captured once at
	// translation time so later validation never re-reads guest-owned
	// ring memory (the TOCTOU design note).
	Header wire.Request

	Operation  uint8
	Protection collab.Protection

	// Bounce is the page-aligned scratch buffer for this request's
	// payload, or nil when the slot holds no in-flight request.
	Bounce []byte

	Grefs []uint32
	IOV   []collab.IOVec

	// Name is the stable identifying string, "backend-<domid>-<devid>.<hex-id>".
	Name string

	Desc collab.Descriptor

	free       bool
	generation uint64
}

// Pool owns ring_size Slots and a ring_size-length free-list of slot
// indices.
type Pool struct {
	slots    []Slot
	free     []int
	nFree    int
	ringSize int
}

// Init allocates both arrays and pushes every slot onto the free-list.
func Init(ringSize int) (*Pool, error) {
	if ringSize <= 0 {
		return nil, ErrOutOfMemory
	}

	p := &Pool{
		slots:    make([]Slot, ringSize),
		free:     make([]int, ringSize),
		ringSize: ringSize,
	}
	for i := 0; i < ringSize; i++ {
		p.slots[i] = Slot{Index: i, free: true}
		p.free[i] = i
	}
	p.nFree = ringSize
	return p, nil
}

// RingSize returns the fixed pool capacity.
func (p *Pool) RingSize() int { return p.ringSize }

// NFree returns the current free-list count, n_reqs_free.
func (p *Pool) NFree() int { return p.nFree }

// InFlight returns ring_size - n_reqs_free, the number of slots currently
// owned by in-flight requests.
func (p *Pool) InFlight() int { return p.ringSize - p.nFree }

// Acquire vends the slot at the top of the free-list. Precondition:
// NFree() > 0; the drainer must not pull more ring requests than the free
// count permits.
func (p *Pool) Acquire() (*Slot, error) {
	if p.nFree == 0 {
		return nil, ErrPoolExhausted
	}
	p.nFree--
	idx := p.free[p.nFree]
	slot := &p.slots[idx]
	slot.free = false
	slot.generation++
	return slot, nil
}

// Release returns slot to the free-list. The free-list is a stack whose live
// entries are free[0:n_reqs_free]: Release writes slot.Index at
// free[n_reqs_free] and then increments n_reqs_free, so after the call
// slot.Index is at free[n_reqs_free-1], not at free[ring_size - n_reqs_free].
func (p *Pool) Release(slot *Slot) error {
	if slot == nil || slot.Index < 0 || slot.Index >= p.ringSize {
		return ErrDoubleRelease
	}
	if slot.free {
		return ErrDoubleRelease
	}

	slot.free = true
	slot.Bounce = nil
	slot.Grefs = nil
	slot.IOV = nil
	slot.Desc = collab.Descriptor{}
	slot.Name = ""
	slot.Operation = 0
	slot.Header = wire.Request{}

	p.free[p.nFree] = slot.Index
	p.nFree++
	return nil
}

// Slot returns the slot at idx, for recovering a slot from a descriptor's
// embedded SlotIndex during completion.
func (p *Pool) Slot(idx int) *Slot {
	if idx < 0 || idx >= p.ringSize {
		return nil
	}
	return &p.slots[idx]
}
