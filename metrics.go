package blkback

import "sync/atomic"

// Stats tracks the sideways counters spec.md §6 names: reqs.in, reqs.out,
// kicks.out, errors.map, errors.vbd, errors.img. It implements
// collab.Observer so an engine.Engine can report directly into it, the way
// the teacher's Metrics implements its own Observer via MetricsObserver.
type Stats struct {
	ReqsIn    atomic.Uint64
	ReqsOut   atomic.Uint64
	KicksOut  atomic.Uint64
	ErrorsMap atomic.Uint64
	ErrorsVBD atomic.Uint64
	ErrorsImg atomic.Uint64

	opsByCode   [2]atomic.Uint64 // indexed by wire op code, successes only
	bytesByCode [2]atomic.Uint64
}

// NewStats returns a zeroed Stats ready to observe a Blkif's traffic.
func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) ObserveRequestIn() { s.ReqsIn.Add(1) }

func (s *Stats) ObserveRequest(op uint8, bytes uint64, latencyNs uint64, success bool) {
	s.ReqsOut.Add(1)
	if success && int(op) < len(s.opsByCode) {
		s.opsByCode[op].Add(1)
		s.bytesByCode[op].Add(bytes)
	}
}

func (s *Stats) ObserveNotify(success bool) {
	if success {
		s.KicksOut.Add(1)
	}
}

func (s *Stats) ObserveQueueDepth(inFlight int) {}

func (s *Stats) ObserveMapError() { s.ErrorsMap.Add(1) }
func (s *Stats) ObserveVBDError() { s.ErrorsVBD.Add(1) }
func (s *Stats) ObserveImageError() { s.ErrorsImg.Add(1) }

// StatsSnapshot is a point-in-time copy of Stats, safe to read without
// racing further updates.
type StatsSnapshot struct {
	ReqsIn    uint64
	ReqsOut   uint64
	KicksOut  uint64
	ErrorsMap uint64
	ErrorsVBD uint64
	ErrorsImg uint64

	ReadOps    uint64
	WriteOps   uint64
	ReadBytes  uint64
	WriteBytes uint64
}

// Snapshot returns a point-in-time copy of every counter.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		ReqsIn:     s.ReqsIn.Load(),
		ReqsOut:    s.ReqsOut.Load(),
		KicksOut:   s.KicksOut.Load(),
		ErrorsMap:  s.ErrorsMap.Load(),
		ErrorsVBD:  s.ErrorsVBD.Load(),
		ErrorsImg:  s.ErrorsImg.Load(),
		ReadOps:    s.opsByCode[0].Load(),
		WriteOps:   s.opsByCode[1].Load(),
		ReadBytes:  s.bytesByCode[0].Load(),
		WriteBytes: s.bytesByCode[1].Load(),
	}
}

var _ Observer = (*Stats)(nil)
