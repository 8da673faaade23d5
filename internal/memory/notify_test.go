// file: internal/memory/notify_test.go
// version: 1.0.0
// guid: 126926f3-30cc-40ec-8e70-88ed2189991d

package memory

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/djordjedjukic/ravendb/internal/sysinfo"
)

type recordingHandler struct {
	low      chan struct{}
	restored chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		low:      make(chan struct{}, 8),
		restored: make(chan struct{}, 8),
	}
}

func (h *recordingHandler) HandleLowMemory()      { h.low <- struct{}{} }
func (h *recordingHandler) HandleMemoryRestored() { h.restored <- struct{}{} }

func waitSignal(t *testing.T, ch chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestNotifierEnterAndLeave(t *testing.T) {
	available := atomic.Int64{}
	available.Store(4096) // healthy: 50% of 8 GiB
	m := newTestMonitor(func() (sysinfo.MemoryFigures, error) {
		return testFigures(available.Load()), nil
	})

	n := NewNotifier(m, 0.10, 10*time.Millisecond)
	h := newRecordingHandler()
	n.Register(h)

	var entered, left atomic.Int32
	n.OnTransition(func(enteredLow bool, _ MemoryInfo) {
		if enteredLow {
			entered.Add(1)
		} else {
			left.Add(1)
		}
	})

	n.Start()
	defer n.Stop()

	// Drop below 10% of 8192 MB.
	available.Store(512)
	waitSignal(t, h.low, "low-memory notification")
	if !n.InLowMemory() {
		t.Error("notifier should report low memory")
	}

	available.Store(4096)
	waitSignal(t, h.restored, "memory-restored notification")
	if n.InLowMemory() {
		t.Error("notifier should have left low memory")
	}

	if entered.Load() < 1 || left.Load() < 1 {
		t.Errorf("transitions: entered=%d left=%d, want at least one each", entered.Load(), left.Load())
	}
}

func TestNotifierSimulate(t *testing.T) {
	m := newTestMonitor(func() (sysinfo.MemoryFigures, error) {
		return testFigures(4096), nil // always healthy
	})
	n := NewNotifier(m, 0.10, 10*time.Millisecond)
	h := newRecordingHandler()
	n.Register(h)
	n.Start()
	defer n.Stop()

	n.Simulate()
	waitSignal(t, h.low, "simulated low-memory notification")
	// Real figures are healthy, so the next tick recovers.
	waitSignal(t, h.restored, "recovery after simulation")
}

func TestNotifierDefaults(t *testing.T) {
	n := NewNotifier(nil, 0, 0)
	if n.threshold != DefaultLowMemoryThreshold {
		t.Errorf("threshold = %v, want default %v", n.threshold, DefaultLowMemoryThreshold)
	}
	if n.interval != DefaultCheckInterval {
		t.Errorf("interval = %v, want default %v", n.interval, DefaultCheckInterval)
	}
}
