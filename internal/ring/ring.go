// Package ring implements the Ring Abstraction: a uniform API over the
// three wire layouts (native, 32-bit compat, 64-bit compat), hiding layout
// differences behind ring_size / get_response_slot /
// publish_and_maybe_notify. Dispatch on the protocol tag is a constant-time
// switch, per spec §4.1's own rationale ("a variant table indexed by tag is
// acceptable") — here realised as wire's per-variant encode/decode
// functions, closed over by the single Ring type below, grounded on the
// teacher's internal/uring.Ring interface (one seam, multiple backing
// byte regions). Ring indices are plain uint32 fields with no atomics: the
// core runs on a single event-loop thread.
package ring

import (
	"errors"

	"github.com/behrlich/go-blkback/internal/wire"
)

// ErrUnsupportedProtocol is returned by NewRing when variant is not one of
// the three known tags.
var ErrUnsupportedProtocol = wire.ErrUnsupportedProtocol

// Ring is a response ring of a fixed protocol variant over a caller-owned
// backing byte region (an mmap'd shared page in production, a plain
// make()'d slice in tests).
type Ring struct {
	variant    wire.ProtocolVariant
	backing    []byte
	respSize   int
	ringSize   int
	prodPvt    uint32 // private producer counter, not yet published
	sharedProd uint32 // last-published producer index, visible to the guest
	rspEvent   uint32 // guest-set threshold requesting notification
}

// NewRing wraps backing (sized ringSize*ResponseSize(variant) bytes) as a
// response ring. The guest's notification threshold (rsp_event) starts at
// 1, the value real Xen guests initialise it to, requesting a kick after the
// first response; SetRspEvent changes it.
func NewRing(variant wire.ProtocolVariant, backing []byte, ringSize int) (*Ring, error) {
	respSize, err := wire.ResponseSize(variant)
	if err != nil {
		return nil, err
	}
	need := ringSize * respSize
	if len(backing) < need {
		return nil, errors.New("ring: backing buffer too small for ring_size")
	}
	return &Ring{
		variant:  variant,
		backing:  backing,
		respSize: respSize,
		ringSize: ringSize,
		rspEvent: 1,
	}, nil
}

// NewStubRing allocates its own backing buffer — an in-process ring with no
// real mmap behind it, for unit tests that exercise the translate/complete
// path without a hypervisor. Grounded on the teacher's NewStubRunner.
func NewStubRing(variant wire.ProtocolVariant, ringSize int) (*Ring, error) {
	respSize, err := wire.ResponseSize(variant)
	if err != nil {
		return nil, err
	}
	return NewRing(variant, make([]byte, ringSize*respSize), ringSize)
}

// Size returns ring_size: the number of request/response descriptors this
// ring can hold.
func (r *Ring) Size() int { return r.ringSize }

// ResponseSlot is a writable handle to one response slot, reserved via
// ReserveResponseSlot.
type ResponseSlot struct {
	ring *Ring
	off  int
}

// Set writes resp into the slot using the ring's protocol-variant layout.
func (s ResponseSlot) Set(resp wire.Response) error {
	return wire.EncodeResponse(s.ring.variant, &resp, s.ring.backing[s.off:s.off+s.ring.respSize])
}

// Get decodes the response currently at this slot, for test assertions.
func (s ResponseSlot) Get() (wire.Response, error) {
	return wire.DecodeResponse(s.ring.variant, s.ring.backing[s.off:s.off+s.ring.respSize])
}

// ReserveResponseSlot increments the private producer counter and returns a
// handle to the slot it now owns. The Completion Handler calls this once
// per completed request (spec §4.5 step 3: "Reserve a ring response slot
// (increment producer index)").
func (r *Ring) ReserveResponseSlot() ResponseSlot {
	idx := r.prodPvt % uint32(r.ringSize)
	r.prodPvt++
	return ResponseSlot{ring: r, off: int(idx) * r.respSize}
}

// SetRspEvent sets the guest's notification threshold, for tests that want
// to control exactly when the predicate fires. Real ring memory carries
// this value in the shared page; it is read here as a plain field because
// negotiating/mapping that shared page is out of this core's scope.
func (r *Ring) SetRspEvent(threshold uint32) {
	r.rspEvent = threshold
}

// PublishAndMaybeNotify publishes every response reserved since the last
// call (advances the published producer index to the private counter) and
// reports whether the consumer-side notification predicate fires: whether
// the guest's requested threshold falls within the newly published range.
// It does not itself call the event channel — the caller (Completion
// Handler) does that, since EventChannel is a separate downward
// collaborator this component does not hold a reference to.
func (r *Ring) PublishAndMaybeNotify() bool {
	old := r.sharedProd
	new := r.prodPvt
	r.sharedProd = new

	if old == new {
		return false
	}
	// Xen's RING_PUSH_RESPONSES_AND_CHECK_NOTIFY predicate, using unsigned
	// wraparound arithmetic exactly as the macro does:
	//   notify = (new - rsp_event) < (new - old)
	return (new - r.rspEvent) < (new - old)
}
