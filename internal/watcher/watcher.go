// file: internal/watcher/watcher.go
// version: 2.1.0
// guid: b2c3d4e5-f6a7-8901-bcde-f23456789012

package watcher

import (
	"bufio"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the default debounce period. Kernel OOM kills can
// come in bursts; one callback per settled burst is enough.
const DefaultDebounce = time.Second

// Callback is invoked after the debounce period with the number of new
// out-of-memory kills since the previous invocation.
type Callback func(kills uint64)

// Watcher monitors a cgroup v2 memory.events file and invokes a callback
// when the kernel's oom_kill counter increases. Kills that happened
// before Start are not reported.
type Watcher struct {
	fsWatcher    *fsnotify.Watcher
	eventsPath   string
	debounce     time.Duration
	callback     Callback
	stop         chan struct{}
	stopped      chan struct{}
	mu           sync.Mutex
	timer        *time.Timer
	running      bool
	lastReported uint64
	observed     atomic.Uint64
}

// New creates a Watcher. The callback is called after the oom_kill
// counter settles for the debounce duration. Pass 0 for debounce to use
// DefaultDebounce.
func New(callback Callback, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		debounce: debounce,
		callback: callback,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start begins watching the memory.events file at eventsPath. It is safe
// to call only once.
func (w *Watcher) Start(eventsPath string) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	initial, err := readOOMKills(eventsPath)
	if err != nil {
		return err
	}
	w.observed.Store(initial)
	w.lastReported = initial

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsWatcher = fsw
	w.eventsPath = eventsPath

	if err := fsw.Add(eventsPath); err != nil {
		fsw.Close()
		return err
	}

	go w.eventLoop()
	return nil
}

// Stop gracefully shuts down the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stop)
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
	}
	<-w.stopped

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
}

// Kills returns the last oom_kill counter value seen in memory.events.
func (w *Watcher) Kills() uint64 {
	return w.observed.Load()
}

func (w *Watcher) eventLoop() {
	defer close(w.stopped)

	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Printf("[ERROR] watcher: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		log.Printf("[WARN] watcher: %s disappeared, stopping OOM observation", event.Name)
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Chmod) == 0 {
		return
	}

	count, err := readOOMKills(w.eventsPath)
	if err != nil {
		log.Printf("[WARN] watcher: cannot re-read %s: %v", w.eventsPath, err)
		return
	}
	if count > w.observed.Load() {
		w.observed.Store(count)
		w.scheduleReport()
	}
}

func (w *Watcher) scheduleReport() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Reset(w.debounce)
		return
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		w.timer = nil
		current := w.observed.Load()
		delta := current - w.lastReported
		w.lastReported = current
		w.mu.Unlock()

		if delta == 0 {
			return
		}
		log.Printf("[WARN] watcher: kernel killed %d process(es) in this control group", delta)
		if w.callback != nil {
			w.callback(delta)
		}
	})
}

// readOOMKills extracts the oom_kill counter from a memory.events file.
// A file without the line (older kernels) reads as zero.
func readOOMKills(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return parseOOMKills(f)
}

func parseOOMKills(r io.Reader) (uint64, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 || fields[0] != "oom_kill" {
			continue
		}
		count, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		return count, nil
	}
	return 0, scanner.Err()
}
