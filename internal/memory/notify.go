// file: internal/memory/notify.go
// version: 1.0.0
// guid: b270e131-0873-4abe-b1fc-e4284f5d320f

package memory

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultLowMemoryThreshold is the fraction of physical memory below
	// which available memory counts as low.
	DefaultLowMemoryThreshold = 0.10
	// DefaultCheckInterval is how often the notifier re-evaluates.
	DefaultCheckInterval = 5 * time.Second
)

// LowMemoryHandler is implemented by components that can shed memory
// (caches, buffers) when the host runs low.
type LowMemoryHandler interface {
	HandleLowMemory()
	HandleMemoryRestored()
}

// Notifier periodically samples the monitor and drives registered
// handlers through low-memory enter/leave transitions. One instance
// runs per process; Start and Stop bracket its background loop.
type Notifier struct {
	monitor   *Monitor
	threshold float64
	interval  time.Duration

	mu       sync.Mutex
	handlers []LowMemoryHandler

	inLowMemory atomic.Bool
	simulate    chan struct{}
	stop        chan struct{}
	stopped     chan struct{}

	onTransition atomic.Pointer[func(entered bool, info MemoryInfo)]
}

// NewNotifier builds a notifier. Non-positive threshold or interval
// fall back to the defaults.
func NewNotifier(monitor *Monitor, threshold float64, interval time.Duration) *Notifier {
	if threshold <= 0 {
		threshold = DefaultLowMemoryThreshold
	}
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &Notifier{
		monitor:   monitor,
		threshold: threshold,
		interval:  interval,
		simulate:  make(chan struct{}, 1),
		stop:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

// Register adds a handler. Handlers registered while the process is
// already low on memory are notified on the next evaluation, not
// retroactively.
func (n *Notifier) Register(h LowMemoryHandler) {
	n.mu.Lock()
	n.handlers = append(n.handlers, h)
	n.mu.Unlock()
}

// OnTransition registers a callback fired on every enter/leave
// transition, after the handlers ran.
func (n *Notifier) OnTransition(fn func(entered bool, info MemoryInfo)) {
	n.onTransition.Store(&fn)
}

// InLowMemory reports the current state.
func (n *Notifier) InLowMemory() bool {
	return n.inLowMemory.Load()
}

// Threshold returns the low-memory fraction the notifier evaluates
// against.
func (n *Notifier) Threshold() float64 {
	return n.threshold
}

// Simulate forces the next evaluation to treat the host as low on
// memory regardless of the real figures. Used by the admin endpoint to
// exercise handlers; the state recovers on the following tick.
func (n *Notifier) Simulate() {
	select {
	case n.simulate <- struct{}{}:
	default:
	}
}

// Start launches the evaluation loop.
func (n *Notifier) Start() {
	go n.run()
}

// Stop terminates the loop and waits for it to exit.
func (n *Notifier) Stop() {
	close(n.stop)
	<-n.stopped
}

func (n *Notifier) run() {
	defer close(n.stopped)
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-n.stop:
			return
		case <-n.simulate:
			n.evaluate(true)
		case <-ticker.C:
			n.evaluate(false)
		}
	}
}

func (n *Notifier) evaluate(force bool) {
	info := n.monitor.GetMemoryInfo()
	floor := info.TotalPhysicalMemory.Scale(n.threshold)
	low := force || info.AvailableMemory.Less(floor)

	switch {
	case low && n.inLowMemory.CompareAndSwap(false, true):
		log.Printf("[WARN] low memory: %s available, floor %s", info.AvailableMemory, floor)
		n.notify(func(h LowMemoryHandler) { h.HandleLowMemory() })
		n.fireTransition(true, info)
	case !low && n.inLowMemory.CompareAndSwap(true, false):
		log.Printf("[INFO] memory restored: %s available", info.AvailableMemory)
		n.notify(func(h LowMemoryHandler) { h.HandleMemoryRestored() })
		n.fireTransition(false, info)
	}
}

func (n *Notifier) notify(call func(LowMemoryHandler)) {
	n.mu.Lock()
	handlers := make([]LowMemoryHandler, len(n.handlers))
	copy(handlers, n.handlers)
	n.mu.Unlock()
	for _, h := range handlers {
		call(h)
	}
}

func (n *Notifier) fireTransition(entered bool, info MemoryInfo) {
	if fn := n.onTransition.Load(); fn != nil {
		(*fn)(entered, info)
	}
}
