package metrics

import (
	"sync"
	"testing"
)

func TestMetrics_ConcurrentIncrements(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Inc(RoomJoins)
			}
		}()
	}
	wg.Wait()

	if got := m.Get(RoomJoins); got != 800 {
		t.Fatalf("Get(%q)=%d, want 800", RoomJoins, got)
	}
}

func TestMetrics_SnapshotIsCopy(t *testing.T) {
	m := New()
	m.Inc(SendDropped)

	snap := m.Snapshot()
	snap[SendDropped] = 99

	if got := m.Get(SendDropped); got != 1 {
		t.Fatalf("Get after mutating snapshot=%d, want 1", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Inc(RoomsCreated)
	if got := m.Get(RoomsCreated); got != 0 {
		t.Fatalf("nil Get=%d, want 0", got)
	}
	if snap := m.Snapshot(); len(snap) != 0 {
		t.Fatalf("nil Snapshot=%v, want empty", snap)
	}
}
