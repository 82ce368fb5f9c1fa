// Package engine implements the Completion Handler and the batch drainer
// that feeds it, tying together the Ring Abstraction, Request Pool, Guest
// Memory Mapper, Request Translator, and bounce arena into the full request
// lifecycle described in spec.md §4.4-4.5. Grounded on the teacher's
// queue.Runner: one event-loop-owned struct holding every collaborator,
// a batch-oriented drain step (processRequests), and a per-request
// completion step (handleCompletion) that always ends by arming the next
// piece of work.
package engine

import (
	"context"
	"runtime"

	"github.com/behrlich/go-blkback/internal/bounce"
	"github.com/behrlich/go-blkback/internal/collab"
	"github.com/behrlich/go-blkback/internal/grant"
	"github.com/behrlich/go-blkback/internal/reqpool"
	"github.com/behrlich/go-blkback/internal/ring"
	"github.com/behrlich/go-blkback/internal/translate"
	"github.com/behrlich/go-blkback/internal/wire"
)

// FetchFunc supplies the next batch of already-decoded ring requests to a
// running Engine. It should block until requests are available or ctx is
// cancelled, returning (nil, ctx.Err()) in the latter case. Decoding the
// ring's request side is outside this package's scope; FetchFunc is the
// seam a caller's ring-consumer plugs into.
type FetchFunc func(ctx context.Context) ([]wire.Request, error)

// Config collects every collaborator and identity value the engine needs.
// All fields are required except Logger and Observer, which are ambient and
// nil-safe.
type Config struct {
	DomID   uint16
	DevID   uint32
	Port    uint32 // event-channel port used for post-completion notify
	Variant wire.ProtocolVariant

	Pool     *reqpool.Pool
	Ring     *ring.Ring
	Arena    *bounce.Arena
	Mapper   grant.Mapper
	Image    collab.ImageSubsystem
	EvtChn   collab.EventChannel
	Logger   collab.Logger
	Observer collab.Observer
}

// Engine owns the per-Blkif collaborators and runs the translate/submit/
// complete pipeline. It is not safe for concurrent use: spec §5 requires a
// single event-loop thread per Block Interface, and the engine takes no
// locks of its own on that assumption.
type Engine struct {
	domid   uint16
	devid   uint32
	port    uint32
	variant wire.ProtocolVariant

	pool     *reqpool.Pool
	ringAbs  *ring.Ring
	arena    *bounce.Arena
	mapper   grant.Mapper
	image    collab.ImageSubsystem
	evtchn   collab.EventChannel
	logger   collab.Logger
	observer collab.Observer
}

// New builds an Engine from cfg. It does not validate that every
// collaborator field is non-nil beyond Logger/Observer; the caller (the
// Blkif attach path) owns that contract.
func New(cfg Config) *Engine {
	return &Engine{
		domid:    cfg.DomID,
		devid:    cfg.DevID,
		port:     cfg.Port,
		variant:  cfg.Variant,
		pool:     cfg.Pool,
		ringAbs:  cfg.Ring,
		arena:    cfg.Arena,
		mapper:   cfg.Mapper,
		image:    cfg.Image,
		evtchn:   cfg.EvtChn,
		logger:   cfg.Logger,
		observer: cfg.Observer,
	}
}

func (e *Engine) debugf(format string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Debugf(format, args...)
	}
}

func (e *Engine) printf(format string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}

// QueueRequests is the batch drainer (tapdisk_xenblkif_queue_requests):
// translate and submit every request the ring presented this wakeup, in
// ring order. A request that fails translation or synchronous submission is
// completed inline, with final=1 on its own response. After the whole batch,
// if any request errored, one empty publish-and-notify is issued so the
// guest wakes even when every pushed response carried final=0.
func (e *Engine) QueueRequests(ctx context.Context, reqs []wire.Request) error {
	batchErrored := false

	for _, req := range reqs {
		if e.observer != nil {
			e.observer.ObserveQueueDepth(e.pool.InFlight())
		}

		slot, err := e.pool.Acquire()
		if err != nil {
			// The caller must not present more requests than NFree()
			// permitted; treat this as a logic error in the caller, not a
			// per-request outcome.
			return err
		}
		if e.observer != nil {
			e.observer.ObserveRequestIn()
		}

		if err := translate.Translate(ctx, slot, req, e.domid, e.devid, e.arena, e.mapper); err != nil {
			e.debugf("blkback: translate %s failed: %v", slot.Name, err)
			e.bumpTranslateError(err)
			e.completeInline(ctx, slot, statusFor(err), true)
			batchErrored = true
			continue
		}

		if err := e.image.QueueRequest(ctx, &slot.Desc, e.onComplete); err != nil {
			e.debugf("blkback: submit %s failed: %v", slot.Name, err)
			if e.observer != nil {
				e.observer.ObserveVBDError()
			}
			e.completeInline(ctx, slot, wire.StatusError, true)
			batchErrored = true
			continue
		}
	}

	if batchErrored {
		notified := e.ringAbs.PublishAndMaybeNotify()
		e.notifyIfNeeded(ctx, notified)
	}

	return nil
}

// bumpTranslateError routes a Translate error to its named counter bucket.
// Sector-range and segment-count validation failures, protocol mismatches,
// and allocation failures all land in errors.map alongside grant mapping
// failures, matching the accounting spec.md's scenario 4 specifies for
// InvalidSectorRange.
func (e *Engine) bumpTranslateError(err error) {
	if e.observer == nil {
		return
	}
	e.observer.ObserveMapError()
}

// statusFor maps a translation error to its wire response status.
// UnsupportedOp prefers EOPNOTSUPP per spec §4.5 step 3; everything else is
// a plain ERROR.
func statusFor(err error) wire.Status {
	if err == translate.ErrUnsupportedOp {
		return wire.StatusEOpNotSupp
	}
	return wire.StatusError
}

// completeInline finishes a request that never reached the image subsystem:
// there is nothing to copy out, only the bounce buffer (if any) to release
// and a response to push.
func (e *Engine) completeInline(ctx context.Context, slot *reqpool.Slot, status wire.Status, final bool) {
	if slot.Bounce != nil {
		e.arena.Free(slot.Bounce)
		slot.Bounce = nil
	}
	e.respond(ctx, slot, status, final)
}

// onComplete is the CompletionFunc handed to the image subsystem. It
// recovers the slot from desc.SlotIndex (the spec's design note on
// avoiding raw pointer upcasting through the token), runs the read
// copy-out, and finishes the request.
func (e *Engine) onComplete(desc *collab.Descriptor, errno int, token any, final bool) {
	ctx := context.Background()

	slot := e.pool.Slot(desc.SlotIndex)
	if slot == nil {
		e.printf("blkback: completion for unknown slot index %d", desc.SlotIndex)
		return
	}

	finalErrno := errno
	if slot.Bounce != nil && slot.Operation == wire.OpRead && errno == 0 {
		if err := e.copyOut(ctx, slot); err != nil {
			e.debugf("blkback: copy-out %s failed: %v", slot.Name, err)
			if e.observer != nil {
				e.observer.ObserveMapError()
			}
			finalErrno = -1
		}
	}

	if slot.Bounce != nil {
		e.arena.Free(slot.Bounce)
		slot.Bounce = nil
	}

	status := wire.StatusOkay
	if finalErrno != 0 {
		status = wire.StatusError
		if errno != 0 && e.observer != nil {
			e.observer.ObserveImageError()
		}
	}

	e.respond(ctx, slot, status, final)
}

// copyOut maps the request's grants writable and copies each coalesced iov
// run from the bounce buffer back into the guest pages, then unmaps. Mirror
// image of the write-path copy-in in Translate, using the same per-iov
// offset convention.
func (e *Engine) copyOut(ctx context.Context, slot *reqpool.Slot) error {
	region, err := e.mapper.Map(ctx, e.domid, slot.Grefs, collab.ProtWrite)
	if err != nil {
		return err
	}
	for _, v := range slot.IOV {
		copy(region.Bytes[v.Off:v.Off+len(v.Base)], v.Base)
	}
	return e.mapper.Unmap(ctx, region)
}

// respond reserves a response slot, writes it, publishes it if final, and
// returns the slot to the pool. It is the shared tail of both the inline
// and asynchronous completion paths (spec §4.5 steps 3-6).
func (e *Engine) respond(ctx context.Context, slot *reqpool.Slot, status wire.Status, final bool) {
	rs := e.ringAbs.ReserveResponseSlot()
	resp := wire.Response{ID: slot.Header.ID, Operation: slot.Operation, Status: status}
	if err := rs.Set(resp); err != nil {
		e.printf("blkback: failed to encode response for %s: %v", slot.Name, err)
	}

	if final {
		notified := e.ringAbs.PublishAndMaybeNotify()
		e.notifyIfNeeded(ctx, notified)
	}

	var nbytes uint64
	for _, v := range slot.IOV {
		nbytes += uint64(len(v.Base))
	}

	if err := e.pool.Release(slot); err != nil {
		e.printf("blkback: failed to release slot %s: %v", slot.Name, err)
	}

	if e.observer != nil {
		e.observer.ObserveRequest(resp.Operation, nbytes, 0, status == wire.StatusOkay)
	}
}

// notifyIfNeeded calls the event channel when the ring's publish predicate
// fired. A notify failure is logged and counted but never changes the
// status of an already-pushed response (spec §7's NotifyFailed taxonomy
// entry).
func (e *Engine) notifyIfNeeded(ctx context.Context, notified bool) {
	if !notified {
		return
	}
	if err := e.evtchn.Notify(ctx, e.port); err != nil {
		e.printf("blkback: event channel notify failed: %v", err)
		if e.observer != nil {
			e.observer.ObserveNotify(false)
		}
		return
	}
	if e.observer != nil {
		e.observer.ObserveNotify(true)
	}
}

// Run drives the Engine from a request source until ctx is cancelled,
// mirroring the teacher's Runner.ioLoop: one goroutine, pinned to its OS
// thread only when the grant mapper is the real hypervisor binding (mmap
// must run on a consistent thread the same way the teacher pins ublk I/O
// threads; the stub mapper has no such requirement). Run stops fetching as
// soon as ctx is cancelled; draining whatever is already in flight is the
// caller's teardown responsibility (spec's "drain before teardown"
// cancellation model), not Run's.
func (e *Engine) Run(ctx context.Context, fetch FetchFunc) error {
	if _, real := e.mapper.(*grant.HypervisorMapper); real {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		reqs, err := fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if len(reqs) == 0 {
			continue
		}
		if err := e.QueueRequests(ctx, reqs); err != nil {
			return err
		}
	}
}
