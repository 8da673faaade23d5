// file: internal/memory/history.go
// version: 1.1.0
// guid: 6ebd0a69-be2b-4599-9fbc-580acf7d9bd0

package memory

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/djordjedjukic/ravendb/internal/units"
)

const (
	// historyWindow is how long samples are retained.
	historyWindow = 5 * time.Minute
	// shortWindow is the near-term extrema interval.
	shortWindow = time.Minute
	// minSampleSpacing throttles how often a new sample is accepted.
	minSampleSpacing = 100 * time.Millisecond
)

// sampleNode is one entry of the lock-free sample queue. Nodes are
// immutable after linking except for the next pointer.
type sampleNode struct {
	available int64
	at        int64 // unix nanoseconds
	next      atomic.Pointer[sampleNode]
}

// sampleQueue is a multi-producer queue with a dummy head node.
// Appends go through a tail CAS, eviction advances the head pointer,
// and scans walk the immutable next chain, so no operation takes a lock.
type sampleQueue struct {
	head atomic.Pointer[sampleNode]
	tail atomic.Pointer[sampleNode]
}

func newSampleQueue() *sampleQueue {
	q := &sampleQueue{}
	dummy := &sampleNode{}
	q.head.Store(dummy)
	q.tail.Store(dummy)
	return q
}

func (q *sampleQueue) push(n *sampleNode) {
	for {
		t := q.tail.Load()
		if next := t.next.Load(); next != nil {
			// Help a stalled producer finish its tail swing.
			q.tail.CompareAndSwap(t, next)
			continue
		}
		if t.next.CompareAndSwap(nil, n) {
			q.tail.CompareAndSwap(t, n)
			return
		}
	}
}

// evictOlderThan drops samples from the front until the oldest is at or
// after the cutoff. The dropped node becomes the new dummy head.
func (q *sampleQueue) evictOlderThan(cutoffNanos int64) {
	for {
		h := q.head.Load()
		first := h.next.Load()
		if first == nil || first.at >= cutoffNanos {
			return
		}
		q.head.CompareAndSwap(h, first)
	}
}

// scan visits every live sample oldest-first.
func (q *sampleQueue) scan(visit func(atNanos, available int64)) {
	for n := q.head.Load().next.Load(); n != nil; n = n.next.Load() {
		visit(n.at, n.available)
	}
}

// IntervalExtremes holds one extreme (high or low) of the available
// figure per tracked interval.
type IntervalExtremes struct {
	LastOneMinute   units.Size `json:"last_one_minute"`
	LastFiveMinutes units.Size `json:"last_five_minutes"`
	SinceStartup    units.Size `json:"since_startup"`
}

// UsageExtremes is the high/low table callers see in a snapshot.
type UsageExtremes struct {
	High IntervalExtremes `json:"high"`
	Low  IntervalExtremes `json:"low"`
}

// Sample is one retained availability observation.
type Sample struct {
	Available units.Size `json:"available"`
	At        time.Time  `json:"at"`
}

// Recorder keeps a throttled five-minute history of available-memory
// samples and maintains high/low extrema for the last minute, the last
// five minutes, and the process lifetime. All methods are safe for
// concurrent use and none of them block on a lock.
type Recorder struct {
	queue        *sampleQueue
	lastAccepted atomic.Int64 // unix nanos of the last accepted sample

	startupHigh atomic.Int64
	startupLow  atomic.Int64
	oneMinHigh  atomic.Int64
	oneMinLow   atomic.Int64
	fiveMinHigh atomic.Int64
	fiveMinLow  atomic.Int64
}

// NewRecorder builds an empty recorder. Extrema read back as zero until
// the first sample arrives.
func NewRecorder() *Recorder {
	r := &Recorder{queue: newSampleQueue()}
	r.startupHigh.Store(math.MinInt64)
	r.startupLow.Store(math.MaxInt64)
	r.oneMinHigh.Store(math.MinInt64)
	r.oneMinLow.Store(math.MaxInt64)
	r.fiveMinHigh.Store(math.MinInt64)
	r.fiveMinLow.Store(math.MaxInt64)
	return r
}

// Record feeds one availability observation into the history.
//
// The since-startup extrema are updated on every call so lifetime
// highs and lows are never lost to throttling. The sample itself is
// only appended when at least minSampleSpacing has elapsed since the
// last accepted sample; an accepted sample additionally evicts entries
// older than the retention window and recomputes the windowed extrema.
func (r *Recorder) Record(available units.Size, now time.Time) {
	value := available.Bytes()
	atomicStoreMax(&r.startupHigh, value)
	atomicStoreMin(&r.startupLow, value)

	nowNanos := now.UnixNano()
	r.queue.evictOlderThan(nowNanos - historyWindow.Nanoseconds())

	last := r.lastAccepted.Load()
	if nowNanos-last < minSampleSpacing.Nanoseconds() {
		return
	}
	if !r.lastAccepted.CompareAndSwap(last, nowNanos) {
		// Another producer won this sampling slot.
		return
	}

	r.queue.push(&sampleNode{available: value, at: nowNanos})
	r.recomputeWindows(nowNanos)
}

// recomputeWindows rescans the retained samples and publishes fresh
// one-minute and five-minute extrema. The scan is bounded by the
// retention window and the sampling throttle.
func (r *Recorder) recomputeWindows(nowNanos int64) {
	oneMinCutoff := nowNanos - shortWindow.Nanoseconds()
	var (
		oneHigh  = int64(math.MinInt64)
		oneLow   = int64(math.MaxInt64)
		fiveHigh = int64(math.MinInt64)
		fiveLow  = int64(math.MaxInt64)
	)
	r.queue.scan(func(at, available int64) {
		if available > fiveHigh {
			fiveHigh = available
		}
		if available < fiveLow {
			fiveLow = available
		}
		if at >= oneMinCutoff {
			if available > oneHigh {
				oneHigh = available
			}
			if available < oneLow {
				oneLow = available
			}
		}
	})
	if fiveHigh != math.MinInt64 {
		r.fiveMinHigh.Store(fiveHigh)
		r.fiveMinLow.Store(fiveLow)
	}
	if oneHigh != math.MinInt64 {
		r.oneMinHigh.Store(oneHigh)
		r.oneMinLow.Store(oneLow)
	}
}

// Extremes returns the current high/low table. Values from intervals
// that never saw a sample read as zero. Pairs are read independently,
// so a caller racing a concurrent Record may see a table that is
// correct as of an instant ago rather than exactly now.
func (r *Recorder) Extremes() UsageExtremes {
	return UsageExtremes{
		High: IntervalExtremes{
			LastOneMinute:   sizeOrZero(r.oneMinHigh.Load(), math.MinInt64),
			LastFiveMinutes: sizeOrZero(r.fiveMinHigh.Load(), math.MinInt64),
			SinceStartup:    sizeOrZero(r.startupHigh.Load(), math.MinInt64),
		},
		Low: IntervalExtremes{
			LastOneMinute:   sizeOrZero(r.oneMinLow.Load(), math.MaxInt64),
			LastFiveMinutes: sizeOrZero(r.fiveMinLow.Load(), math.MaxInt64),
			SinceStartup:    sizeOrZero(r.startupLow.Load(), math.MaxInt64),
		},
	}
}

// Samples returns a copy of the retained history, oldest first.
func (r *Recorder) Samples() []Sample {
	var out []Sample
	r.queue.scan(func(at, available int64) {
		out = append(out, Sample{
			Available: units.NewSize(available, units.Bytes),
			At:        time.Unix(0, at),
		})
	})
	return out
}

func sizeOrZero(v, unset int64) units.Size {
	if v == unset {
		return units.Zero
	}
	return units.NewSize(v, units.Bytes)
}

func atomicStoreMax(a *atomic.Int64, v int64) {
	for {
		cur := a.Load()
		if v <= cur || a.CompareAndSwap(cur, v) {
			return
		}
	}
}

func atomicStoreMin(a *atomic.Int64, v int64) {
	for {
		cur := a.Load()
		if v >= cur || a.CompareAndSwap(cur, v) {
			return
		}
	}
}
