// Package collab defines the collaborator interfaces the request-processing
// core consumes and is invoked through. They are declared here, separate
// from the root package, so internal packages (grant, translate, engine)
// can depend on them without importing the root package and creating an
// import cycle; the root package re-exports each as a type alias.
package collab

import "context"

// Protection is the memory-protection mode requested for a grant mapping.
// READ requests map guest pages writable (the host writes into them);
// WRITE requests map guest pages readable (the host reads out of them).
type Protection uint8

const (
	ProtWrite Protection = iota // host writes into guest pages (READ op)
	ProtRead                    // host reads from guest pages (WRITE op)
)

// Region is a contiguous host-side mapping of one or more guest grant
// references, as returned by GrantHypervisor.GrantMap. Len(Bytes) is always
// n*PageSize for the n passed to GrantMap.
type Region struct {
	Bytes  []byte
	HostVA uintptr
	N      int
}

// GrantHypervisor is the downward hypervisor binding for the grant-table
// mechanism: mapping and unmapping guest-owned pages into the backend's
// address space. An implementation is supplied by the caller at attach
// time; the core never talks to the hypervisor directly.
type GrantHypervisor interface {
	GrantMap(ctx context.Context, domid uint16, grefs []uint32, prot Protection) (Region, error)
	GrantUnmap(ctx context.Context, region Region) error
}

// EventChannel is the downward hypervisor binding used to wake the guest
// after responses are published.
type EventChannel interface {
	Notify(ctx context.Context, port uint32) error
}

// Descriptor is the internal I/O descriptor a Request Translator hands to
// the image subsystem: a scatter/gather vector over a bounce buffer plus
// enough context for the Completion Handler to finish the request.
type Descriptor struct {
	Name      string
	Operation uint8
	Sector    uint64
	IOV       []IOVec
	SlotIndex int
	Token     any
}

// IOVec is one coalesced run within the bounce buffer.
type IOVec struct {
	Base []byte
	Off  int // byte offset of Base within the bounce buffer, for copy-out addressing
}

// CompletionFunc is the signature the image subsystem calls back with.
// errno is 0 on success; final indicates whether this is the last (or
// only) completion the caller should act on for the owning batch.
type CompletionFunc func(desc *Descriptor, errno int, token any, final bool)

// ImageSubsystem is the upward collaborator that performs the actual I/O
// against the host-side disk image. When QueueRequest accepts a descriptor
// (returns nil) it must invoke complete exactly once, synchronously or
// asynchronously. When it rejects one (returns an error) it must not invoke
// complete: the engine then completes the request itself.
type ImageSubsystem interface {
	QueueRequest(ctx context.Context, desc *Descriptor, complete CompletionFunc) error
}

// Logger is the ambient logging seam, identical in shape to the teacher's
// own Logger interface.
type Logger interface {
	Printf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// Observer is the ambient metrics-collection seam. The three ObserveXError
// methods correspond directly to the sideways counters named in spec §6:
// errors.map (grant mapping and request-validation failures), errors.vbd
// (synchronous image-subsystem rejection), and errors.img (asynchronous
// image-subsystem errors).
type Observer interface {
	ObserveRequestIn()
	ObserveRequest(op uint8, bytes uint64, latencyNs uint64, success bool)
	ObserveNotify(success bool)
	ObserveQueueDepth(inFlight int)
	ObserveMapError()
	ObserveVBDError()
	ObserveImageError()
}
