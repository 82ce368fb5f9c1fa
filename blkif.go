// Package blkback implements the guest block-request processing core of a
// Xen-style paravirtualised block-device backend: ring decode, translate,
// grant-map, submit, complete, respond, notify. The substantial
// implementation lives under internal/; this package is the thin public
// surface a caller attaches a virtual disk through, mirroring the teacher's
// own Device/Backend split.
package blkback

import (
	"context"
	"fmt"

	"github.com/behrlich/go-blkback/internal/bounce"
	"github.com/behrlich/go-blkback/internal/constants"
	"github.com/behrlich/go-blkback/internal/engine"
	"github.com/behrlich/go-blkback/internal/grant"
	"github.com/behrlich/go-blkback/internal/logging"
	"github.com/behrlich/go-blkback/internal/reqpool"
	"github.com/behrlich/go-blkback/internal/ring"
)

// AttachParams collects everything needed to attach one virtual disk.
// Adapted from the teacher's DeviceParams: mandatory collaborators plus
// sizing knobs with sensible defaults.
type AttachParams struct {
	DomID uint16 // guest domain id
	DevID uint32 // virtual device id, scoped to DomID

	// Port is the event-channel port used to wake the guest after
	// responses are published.
	Port uint32

	// RingSize is ring_size: the number of request/response slots. Zero
	// defaults to DefaultRingSize.
	RingSize int

	// Variant selects the wire layout the guest negotiated. Zero value is
	// ProtocolNative.
	Variant ProtocolVariant

	// RingBacking is the caller-mmap'd shared memory backing the response
	// ring, sized RingSize*ResponseSize(Variant) bytes. If nil, an
	// in-process stub ring is used instead (no real guest behind it),
	// intended for tests and for images with no real hypervisor attached.
	RingBacking []byte

	// Image is the upward collaborator that performs the actual I/O.
	Image ImageSubsystem

	// GrantHV is the downward hypervisor binding for grant mapping. If
	// nil, Attach uses an in-process stub grant mapper that backs each
	// grant reference with a process-local page (no real guest memory).
	GrantHV GrantHypervisor

	// EvtChn is the downward hypervisor binding used to notify the guest.
	EvtChn EventChannel
}

// DefaultAttachParams returns an AttachParams with RingSize and Variant
// defaulted, wired to the given collaborators.
func DefaultAttachParams(image ImageSubsystem, grantHV GrantHypervisor, evtchn EventChannel) AttachParams {
	return AttachParams{
		RingSize: constants.DefaultRingSize,
		Variant:  ProtocolNative,
		Image:    image,
		GrantHV:  grantHV,
		EvtChn:   evtchn,
	}
}

// Options carries ambient collaborators that are not part of the protocol:
// cancellation context, logging, and metrics observation. Adapted from the
// teacher's Options struct.
type Options struct {
	// Context for cancellation; if nil, context.Background() is used.
	Context context.Context

	// Logger for debug/info messages. If nil, Attach defaults to
	// internal/logging's package-level default logger, tagged with DomID
	// and DevID.
	Logger Logger

	// Observer for metrics; if nil, a *Stats is created and used, reachable
	// via Blkif.Stats().
	Observer Observer
}

// BlkifState mirrors the teacher's DeviceState.
type BlkifState string

const (
	BlkifStateAttached BlkifState = "attached"
	BlkifStateRunning  BlkifState = "running"
	BlkifStateDetached BlkifState = "detached"
)

// Blkif is one attached virtual disk: its request pool, ring, bounce
// arena, grant mapper, and completion engine, per spec.md's Block
// Interface glossary entry.
type Blkif struct {
	DomID uint16
	DevID uint32

	ctx    context.Context
	cancel context.CancelFunc

	variant  ProtocolVariant
	ringSize int

	pool    *reqpool.Pool
	ringAbs *ring.Ring
	arena   *bounce.Arena
	mapper  grant.Mapper
	eng     *engine.Engine

	stats   *Stats
	logger  Logger
	started bool
}

// Attach builds every collaborator for one virtual disk and wires them into
// an Engine, the way the teacher's CreateAndServe builds a Runner per
// queue. It does not start an event loop on its own; call Run (or drive
// QueueRequests directly) once ready.
func Attach(ctx context.Context, params AttachParams, opts *Options) (*Blkif, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts == nil {
		opts = &Options{}
	}
	if opts.Context != nil {
		ctx = opts.Context
	}

	if params.Image == nil || params.EvtChn == nil {
		return nil, NewError("attach", ErrCodeInvalidParameters, "Image and EvtChn are required")
	}

	ringSize := params.RingSize
	if ringSize <= 0 {
		ringSize = constants.DefaultRingSize
	}

	pool, err := reqpool.Init(ringSize)
	if err != nil {
		return nil, WrapError("attach", err)
	}

	arena, err := bounce.NewArena(ringSize)
	if err != nil {
		return nil, WrapError("attach", err)
	}

	var ringAbs *ring.Ring
	if params.RingBacking != nil {
		ringAbs, err = ring.NewRing(params.Variant, params.RingBacking, ringSize)
	} else {
		ringAbs, err = ring.NewStubRing(params.Variant, ringSize)
	}
	if err != nil {
		return nil, WrapError("attach", err)
	}

	var mapper grant.Mapper
	if params.GrantHV != nil {
		mapper = grant.NewHypervisorMapper(params.GrantHV)
	} else {
		mapper = grant.NewStubGrantMapper()
	}

	stats := opts.Observer
	var ownStats *Stats
	if stats == nil {
		ownStats = NewStats()
		stats = ownStats
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Default().WithDomain(params.DomID).WithDevice(params.DevID)
	}

	eng := engine.New(engine.Config{
		DomID:    params.DomID,
		DevID:    params.DevID,
		Port:     params.Port,
		Variant:  params.Variant,
		Pool:     pool,
		Ring:     ringAbs,
		Arena:    arena,
		Mapper:   mapper,
		Image:    params.Image,
		EvtChn:   params.EvtChn,
		Logger:   logger,
		Observer: stats,
	})

	bctx, cancel := context.WithCancel(ctx)

	b := &Blkif{
		DomID:    params.DomID,
		DevID:    params.DevID,
		ctx:      bctx,
		cancel:   cancel,
		variant:  params.Variant,
		ringSize: ringSize,
		pool:     pool,
		ringAbs:  ringAbs,
		arena:    arena,
		mapper:   mapper,
		eng:      eng,
		stats:    ownStats,
		logger:   logger,
		started:  true,
	}

	if b.logger != nil {
		b.logger.Printf("blkback: attached dom=%d dev=%d ring_size=%d variant=%s", params.DomID, params.DevID, ringSize, params.Variant)
	}

	return b, nil
}

// QueueRequests hands a batch of already-decoded ring requests to the
// Completion Handler's batch drainer (spec.md §4.5 "Batch error path").
func (b *Blkif) QueueRequests(reqs []Request) error {
	return b.eng.QueueRequests(b.ctx, reqs)
}

// Run drives the Blkif's event loop from fetch until Detach cancels it or
// fetch itself errors out. It is the long-running alternative to calling
// QueueRequests directly; most tests use QueueRequests, a real caller with a
// ring-consumer goroutine uses Run.
func (b *Blkif) Run(fetch engine.FetchFunc) error {
	return b.eng.Run(b.ctx, fetch)
}

// State reports whether the Blkif is still serving requests.
func (b *Blkif) State() BlkifState {
	if b == nil {
		return BlkifStateDetached
	}
	select {
	case <-b.ctx.Done():
		return BlkifStateDetached
	default:
	}
	if !b.started {
		return BlkifStateAttached
	}
	return BlkifStateRunning
}

// RingSize returns ring_size, the fixed slot count this Blkif was attached
// with.
func (b *Blkif) RingSize() int { return b.ringSize }

// InFlight returns the number of requests currently owned by the pool.
func (b *Blkif) InFlight() int { return b.pool.InFlight() }

// Stats returns the metrics counters for this Blkif, or nil if attached
// with a caller-supplied Observer instead of the built-in Stats.
func (b *Blkif) Stats() *Stats { return b.stats }

// BlkifInfo is a snapshot of a Blkif's identity and state, for admin
// surfaces (mirrors the teacher's DeviceInfo).
type BlkifInfo struct {
	DomID    uint16
	DevID    uint32
	State    BlkifState
	RingSize int
	InFlight int
}

// Info returns a BlkifInfo snapshot.
func (b *Blkif) Info() BlkifInfo {
	if b == nil {
		return BlkifInfo{State: BlkifStateDetached}
	}
	return BlkifInfo{
		DomID:    b.DomID,
		DevID:    b.DevID,
		State:    b.State(),
		RingSize: b.ringSize,
		InFlight: b.InFlight(),
	}
}

// Detach drains in-flight requests and tears the Blkif down (spec.md §5
// "Cancellation": there is no per-request cancellation, only a full drain on
// teardown). It blocks until every in-flight slot has been released or ctx
// is cancelled, whichever comes first.
func Detach(ctx context.Context, b *Blkif) error {
	if b == nil {
		return NewError("detach", ErrCodeInvalidParameters, "nil Blkif")
	}

	for b.pool.InFlight() > 0 {
		select {
		case <-ctx.Done():
			b.cancel()
			return fmt.Errorf("detach: timed out draining dom=%d dev=%d: %w", b.DomID, b.DevID, ctx.Err())
		default:
		}
	}

	b.cancel()
	b.started = false
	if b.logger != nil {
		b.logger.Printf("blkback: detached dom=%d dev=%d", b.DomID, b.DevID)
	}
	return nil
}
