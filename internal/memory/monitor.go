// file: internal/memory/monitor.go
// version: 1.1.0
// guid: fd777033-fb0c-4a5c-8205-6ffd9ad0d956

package memory

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/djordjedjukic/ravendb/internal/sysinfo"
	"github.com/djordjedjukic/ravendb/internal/units"
)

// Fallback figures reported forever once a platform probe has failed.
// Deliberately conservative: under-reporting availability is safer than
// trusting a platform that already lied once.
var (
	fallbackGeneral     = units.NewSize(256, units.Megabytes)
	fallbackCommittable = units.NewSize(384, units.Megabytes)
)

// MemoryInfo is the public snapshot: the raw platform figures plus the
// recorder's high/low table. Immutable once returned.
type MemoryInfo struct {
	sysinfo.MemoryFigures
	MemoryUsageRecords UsageExtremes `json:"memory_usage_records"`
}

// Monitor produces memory snapshots and owns the sticky-failure policy:
// after the first probe failure every later snapshot is the fixed
// fallback, with no further probe attempts for the process lifetime.
//
// A Monitor is safe for concurrent use. Construct one per process and
// share it; tests construct their own so the latch starts clear.
type Monitor struct {
	recorder *Recorder
	failed   atomic.Bool

	readFigures func() (sysinfo.MemoryFigures, error)
	now         func() time.Time
	onFailure   atomic.Pointer[func(err error)]
}

// NewMonitor builds a monitor backed by the platform probe.
func NewMonitor() *Monitor {
	return &Monitor{
		recorder:    NewRecorder(),
		readFigures: sysinfo.ReadMemoryFigures,
		now:         time.Now,
	}
}

// OnProbeFailure registers a callback invoked exactly once, at the
// moment the failure latch trips.
func (m *Monitor) OnProbeFailure(fn func(err error)) {
	m.onFailure.Store(&fn)
}

// Failed reports whether the failure latch has tripped.
func (m *Monitor) Failed() bool {
	return m.failed.Load()
}

// GetMemoryInfo returns the current snapshot. It never fails: a probe
// error trips the latch and yields the fallback instead.
func (m *Monitor) GetMemoryInfo() MemoryInfo {
	if m.failed.Load() {
		return fallbackInfo()
	}

	figures, err := m.readFigures()
	if err != nil {
		if m.failed.CompareAndSwap(false, true) {
			log.Printf("[WARN] memory probe failed, switching to fixed %s fallback for the rest of the process: %v",
				fallbackGeneral, err)
			if fn := m.onFailure.Load(); fn != nil {
				(*fn)(err)
			}
		}
		return fallbackInfo()
	}

	m.recorder.Record(figures.AvailableMemory, m.now())
	return MemoryInfo{
		MemoryFigures:      figures,
		MemoryUsageRecords: m.recorder.Extremes(),
	}
}

// History returns the retained availability samples, oldest first.
func (m *Monitor) History() []Sample {
	return m.recorder.Samples()
}

func fallbackInfo() MemoryInfo {
	return MemoryInfo{
		MemoryFigures: sysinfo.MemoryFigures{
			AvailableMemory:        fallbackGeneral,
			TotalPhysicalMemory:    fallbackGeneral,
			InstalledMemory:        fallbackGeneral,
			TotalCommittableMemory: fallbackCommittable,
			CurrentCommitCharge:    fallbackGeneral,
		},
		MemoryUsageRecords: UsageExtremes{},
	}
}
