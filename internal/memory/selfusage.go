// file: internal/memory/selfusage.go
// version: 1.0.0
// guid: 0ee2e2ff-ae64-43a8-b4cc-fc20749043cf

package memory

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/djordjedjukic/ravendb/internal/sysinfo"
	"github.com/djordjedjukic/ravendb/internal/units"
)

// SelfUsage describes the calling process's own footprint. The four
// figures are independent reads, not a consistent snapshot, and they
// feed diagnostics only, never the allocation guard.
type SelfUsage struct {
	WorkingSet           units.Size `json:"working_set"`
	UnmanagedAllocations units.Size `json:"unmanaged_allocations"`
	ManagedHeap          units.Size `json:"managed_heap"`
	MappedTempBuffers    units.Size `json:"mapped_temp_buffers"`
}

// AllocationCounter tracks native (out-of-heap) bytes owned by one
// component or worker. Counters count toward self-usage only while
// registered; Unregister drops the contribution entirely.
type AllocationCounter struct {
	name  string
	bytes atomic.Int64
	owner *Accountant
}

// Name returns the label the counter was registered under.
func (c *AllocationCounter) Name() string { return c.name }

// Add records n more allocated bytes (n may be negative on release).
func (c *AllocationCounter) Add(n int64) { c.bytes.Add(n) }

// Allocated returns the counter's current byte total.
func (c *AllocationCounter) Allocated() int64 { return c.bytes.Load() }

// Unregister removes the counter from its accountant. Safe to call
// more than once.
func (c *AllocationCounter) Unregister() {
	c.owner.dropCounter(c)
}

// MappedRegion tracks a temporary buffer mapping. Self-usage sums the
// high-water mark of concurrently mapped bytes per region, so a region
// that repeatedly maps and unmaps the same buffer counts once at its
// peak, not per map call.
type MappedRegion struct {
	name      string
	current   atomic.Int64
	highWater atomic.Int64
	owner     *Accountant
}

// Name returns the label the region was registered under.
func (r *MappedRegion) Name() string { return r.name }

// Map records n newly mapped bytes and advances the high-water mark.
func (r *MappedRegion) Map(n int64) {
	mapped := r.current.Add(n)
	atomicStoreMax(&r.highWater, mapped)
}

// Unmap records n released bytes. The high-water mark is unaffected.
func (r *MappedRegion) Unmap(n int64) {
	r.current.Add(-n)
}

// HighWater returns the peak concurrently mapped byte count.
func (r *MappedRegion) HighWater() int64 { return r.highWater.Load() }

// Unregister removes the region from its accountant.
func (r *MappedRegion) Unregister() {
	r.owner.dropRegion(r)
}

// Accountant aggregates the process's own memory figures: the
// OS-reported resident set, the registered native-allocation counters,
// the Go heap, and the registered mapped-buffer regions.
type Accountant struct {
	mu       sync.Mutex
	counters map[*AllocationCounter]struct{}
	regions  map[*MappedRegion]struct{}
}

// NewAccountant builds an empty accountant.
func NewAccountant() *Accountant {
	return &Accountant{
		counters: make(map[*AllocationCounter]struct{}),
		regions:  make(map[*MappedRegion]struct{}),
	}
}

// RegisterCounter adds a named native-allocation counter.
func (a *Accountant) RegisterCounter(name string) *AllocationCounter {
	c := &AllocationCounter{name: name, owner: a}
	a.mu.Lock()
	a.counters[c] = struct{}{}
	a.mu.Unlock()
	return c
}

// RegisterMappedRegion adds a named temporary-buffer mapping.
func (a *Accountant) RegisterMappedRegion(name string) *MappedRegion {
	r := &MappedRegion{name: name, owner: a}
	a.mu.Lock()
	a.regions[r] = struct{}{}
	a.mu.Unlock()
	return r
}

func (a *Accountant) dropCounter(c *AllocationCounter) {
	a.mu.Lock()
	delete(a.counters, c)
	a.mu.Unlock()
}

func (a *Accountant) dropRegion(r *MappedRegion) {
	a.mu.Lock()
	delete(a.regions, r)
	a.mu.Unlock()
}

// Usage computes the current self-usage figures. Best-effort by
// contract: a failed resident-set read yields zero, never an error.
func (a *Accountant) Usage() SelfUsage {
	workingSet := units.Zero
	if rss, err := sysinfo.ProcessResidentSet(); err == nil && !rss.IsNegative() {
		workingSet = rss
	}

	var unmanaged, mapped int64
	a.mu.Lock()
	for c := range a.counters {
		unmanaged += c.Allocated()
	}
	for r := range a.regions {
		mapped += r.HighWater()
	}
	a.mu.Unlock()

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	return SelfUsage{
		WorkingSet:           workingSet,
		UnmanagedAllocations: units.NewSize(unmanaged, units.Bytes),
		ManagedHeap:          units.NewSize(int64(stats.HeapAlloc), units.Bytes),
		MappedTempBuffers:    units.NewSize(mapped, units.Bytes),
	}
}
