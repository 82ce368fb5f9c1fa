package blkback

import "testing"

func TestStatsInitialState(t *testing.T) {
	s := NewStats()
	snap := s.Snapshot()

	if snap.ReqsIn != 0 || snap.ReqsOut != 0 || snap.KicksOut != 0 {
		t.Errorf("expected zeroed counters, got %+v", snap)
	}
}

func TestStatsObserveRequestIn(t *testing.T) {
	s := NewStats()
	s.ObserveRequestIn()
	s.ObserveRequestIn()

	if snap := s.Snapshot(); snap.ReqsIn != 2 {
		t.Errorf("ReqsIn = %d, want 2", snap.ReqsIn)
	}
}

func TestStatsObserveRequestTracksOpsAndBytesOnSuccessOnly(t *testing.T) {
	s := NewStats()
	s.ObserveRequest(OpRead, 4096, 1000, true)
	s.ObserveRequest(OpWrite, 8192, 2000, true)
	s.ObserveRequest(OpRead, 4096, 500, false)

	snap := s.Snapshot()
	if snap.ReqsOut != 3 {
		t.Errorf("ReqsOut = %d, want 3", snap.ReqsOut)
	}
	if snap.ReadOps != 1 {
		t.Errorf("ReadOps = %d, want 1 (failed read should not count)", snap.ReadOps)
	}
	if snap.ReadBytes != 4096 {
		t.Errorf("ReadBytes = %d, want 4096", snap.ReadBytes)
	}
	if snap.WriteOps != 1 {
		t.Errorf("WriteOps = %d, want 1", snap.WriteOps)
	}
	if snap.WriteBytes != 8192 {
		t.Errorf("WriteBytes = %d, want 8192", snap.WriteBytes)
	}
}

func TestStatsObserveNotifyOnlyCountsSuccess(t *testing.T) {
	s := NewStats()
	s.ObserveNotify(true)
	s.ObserveNotify(false)
	s.ObserveNotify(true)

	if snap := s.Snapshot(); snap.KicksOut != 2 {
		t.Errorf("KicksOut = %d, want 2", snap.KicksOut)
	}
}

func TestStatsErrorCounters(t *testing.T) {
	s := NewStats()
	s.ObserveMapError()
	s.ObserveMapError()
	s.ObserveVBDError()
	s.ObserveImageError()
	s.ObserveImageError()
	s.ObserveImageError()

	snap := s.Snapshot()
	if snap.ErrorsMap != 2 {
		t.Errorf("ErrorsMap = %d, want 2", snap.ErrorsMap)
	}
	if snap.ErrorsVBD != 1 {
		t.Errorf("ErrorsVBD = %d, want 1", snap.ErrorsVBD)
	}
	if snap.ErrorsImg != 3 {
		t.Errorf("ErrorsImg = %d, want 3", snap.ErrorsImg)
	}
}

func TestStatsImplementsObserver(t *testing.T) {
	var o Observer = NewStats()
	o.ObserveQueueDepth(5) // no-op, must not panic
}
