// file: internal/metrics/metrics.go
// version: 1.1.0
// guid: b069a061-da8c-4597-a874-2c4098b65524

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	guardChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "memoryd",
		Name:      "guard_checks_total",
		Help:      "Total number of pre-allocation guard checks by result",
	}, []string{"result"})
	probeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "memoryd",
		Name:      "probe_failures_total",
		Help:      "Total number of platform probe failures (at most one per process due to the failure latch)",
	})
	lowMemoryTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "memoryd",
		Name:      "low_memory_transitions_total",
		Help:      "Total number of low-memory state transitions by direction",
	}, []string{"direction"})
	journalEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "memoryd",
		Name:      "journal_events_total",
		Help:      "Total number of journal events written by type",
	}, []string{"type"})
	oomKillsObserved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "memoryd",
		Name:      "oom_kills_observed_total",
		Help:      "Total number of kernel OOM kills observed in the cgroup",
	})
	snapshotDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "memoryd",
		Name:      "snapshot_duration_seconds",
		Help:      "Histogram of memory snapshot production time in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.00005, 2.5, 10), // ~50µs up to ~500ms
	})

	availableGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "memoryd",
		Name:      "available_memory_bytes",
		Help:      "Available memory from the last snapshot",
	})
	totalPhysicalGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "memoryd",
		Name:      "total_physical_memory_bytes",
		Help:      "Total physical (or container-limited) memory from the last snapshot",
	})
	committableGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "memoryd",
		Name:      "total_committable_memory_bytes",
		Help:      "Committable memory bound from the last snapshot",
	})
	commitChargeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "memoryd",
		Name:      "current_commit_charge_bytes",
		Help:      "Current commit charge from the last snapshot",
	})
	installedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "memoryd",
		Name:      "installed_memory_bytes",
		Help:      "Physically installed memory from the last snapshot",
	})

	workingSetGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "memoryd",
		Name:      "self_working_set_bytes",
		Help:      "Resident set of this process",
	})
	unmanagedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "memoryd",
		Name:      "self_unmanaged_bytes",
		Help:      "Native allocations tracked by registered counters",
	})
	managedHeapGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "memoryd",
		Name:      "self_managed_heap_bytes",
		Help:      "Go heap in use (HeapAlloc)",
	})
	mappedTempGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "memoryd",
		Name:      "self_mapped_temp_bytes",
		Help:      "Sum of per-region mapped temp buffer high-water marks",
	})

	lowMemoryGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "memoryd",
		Name:      "low_memory_state",
		Help:      "1 while the process considers the host low on memory, else 0",
	})
	historySamplesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "memoryd",
		Name:      "history_samples",
		Help:      "Number of availability samples currently retained",
	})
	goroutinesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "memoryd",
		Name:      "process_goroutines",
		Help:      "Number of currently running goroutines",
	})
)

// Register initializes metrics with the global Prometheus registry (idempotent)
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(guardChecks, probeFailures, lowMemoryTransitions, journalEvents,
			oomKillsObserved, snapshotDuration,
			availableGauge, totalPhysicalGauge, committableGauge, commitChargeGauge, installedGauge,
			workingSetGauge, unmanagedGauge, managedHeapGauge, mappedTempGauge,
			lowMemoryGauge, historySamplesGauge, goroutinesGauge)
	})
}

// Counters
func IncGuardCheck(allowed bool) {
	result := "allowed"
	if !allowed {
		result = "rejected"
	}
	guardChecks.WithLabelValues(result).Inc()
}
func IncProbeFailure() { probeFailures.Inc() }
func IncLowMemoryTransition(entered bool) {
	direction := "leave"
	if entered {
		direction = "enter"
	}
	lowMemoryTransitions.WithLabelValues(direction).Inc()
}
func IncJournalEvent(eventType string) { journalEvents.WithLabelValues(eventType).Inc() }
func AddOOMKillsObserved(n uint64)     { oomKillsObserved.Add(float64(n)) }
func ObserveSnapshotDuration(d time.Duration) {
	snapshotDuration.Observe(d.Seconds())
}

// Gauges
func SetMemoryFigures(available, totalPhysical, committable, commitCharge, installed int64) {
	availableGauge.Set(float64(available))
	totalPhysicalGauge.Set(float64(totalPhysical))
	committableGauge.Set(float64(committable))
	commitChargeGauge.Set(float64(commitCharge))
	installedGauge.Set(float64(installed))
}
func SetSelfUsage(workingSet, unmanaged, managedHeap, mappedTemp int64) {
	workingSetGauge.Set(float64(workingSet))
	unmanagedGauge.Set(float64(unmanaged))
	managedHeapGauge.Set(float64(managedHeap))
	mappedTempGauge.Set(float64(mappedTemp))
}
func SetLowMemoryState(low bool) {
	if low {
		lowMemoryGauge.Set(1)
	} else {
		lowMemoryGauge.Set(0)
	}
}
func SetHistorySamples(n int) { historySamplesGauge.Set(float64(n)) }
func SetGoroutines(n int)     { goroutinesGauge.Set(float64(n)) }
