// file: internal/sysinfo/cgroup.go
// version: 1.0.0
// guid: a4f82a08-d133-47dd-b109-a633e4922b9c

package sysinfo

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/djordjedjukic/ravendb/internal/units"
)

// cgroupRoot is the mount point of the cgroup filesystem. Overridable
// so tests can point it at fixture directories.
var cgroupRoot = "/sys/fs/cgroup"

// cgroupFigures carries the memory-controller values read from the
// cgroup filesystem. Zero values mean "could not be read", which skips
// the container override rather than failing the probe.
type cgroupFigures struct {
	Limit    int64 // enforced ceiling (v2 memory.max, v1 memory.limit_in_bytes)
	MaxUsage int64 // high-water usage (v2 memory.peak, v1 memory.max_usage_in_bytes)
	Usage    int64 // current usage (v2 memory.current, v1 memory.usage_in_bytes)
}

// readCgroupFigures reads the memory controller, preferring the unified
// v2 hierarchy and falling back to the v1 layout. Every read is
// best-effort: a missing or malformed file degrades to zero.
func readCgroupFigures() cgroupFigures {
	if cgroupIsV2() {
		return cgroupFigures{
			Limit:    readCgroupValue(filepath.Join(cgroupRoot, "memory.max")),
			MaxUsage: readCgroupValue(filepath.Join(cgroupRoot, "memory.peak")),
			Usage:    readCgroupValue(filepath.Join(cgroupRoot, "memory.current")),
		}
	}
	memDir := filepath.Join(cgroupRoot, "memory")
	return cgroupFigures{
		Limit:    readCgroupValue(filepath.Join(memDir, "memory.limit_in_bytes")),
		MaxUsage: readCgroupValue(filepath.Join(memDir, "memory.max_usage_in_bytes")),
		Usage:    readCgroupValue(filepath.Join(memDir, "memory.usage_in_bytes")),
	}
}

// cgroupIsV2 reports whether the unified hierarchy is mounted at the root.
func cgroupIsV2() bool {
	_, err := os.Stat(filepath.Join(cgroupRoot, "cgroup.controllers"))
	return err == nil
}

// readCgroupValue reads a single-number cgroup file. The v2 literal
// "max" maps to MaxInt64 so an unlimited controller never looks like a
// ceiling below host memory. Any failure yields zero.
func readCgroupValue(path string) int64 {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	text := strings.TrimSpace(string(data))
	if text == "max" {
		return math.MaxInt64
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// applyCgroupOverride rewrites host-wide figures with container-scoped
// ones when the process runs under a memory ceiling at or below host
// physical memory. The ceiling candidate is the larger of the enforced
// limit and the high-water usage. Returns whether the override applied.
func applyCgroupOverride(f *MemoryFigures, cg cgroupFigures) bool {
	ceiling := cg.Limit
	if cg.MaxUsage > ceiling {
		ceiling = cg.MaxUsage
	}
	if ceiling == 0 || ceiling > f.TotalPhysicalMemory.Bytes() {
		return false
	}
	charge := cg.Usage
	capacity := ceiling
	if charge > capacity {
		capacity = charge
	}
	f.CurrentCommitCharge = units.NewSize(charge, units.Bytes)
	f.AvailableMemory = units.NewSize(ceiling-charge, units.Bytes)
	f.TotalPhysicalMemory = units.NewSize(capacity, units.Bytes)
	f.TotalCommittableMemory = units.NewSize(capacity, units.Bytes)
	return true
}

// MemoryEventsPath returns the cgroup v2 memory.events file for this
// process, used to observe kernel OOM kills. ok is false when the
// unified hierarchy is not present.
func MemoryEventsPath() (string, bool) {
	if !cgroupIsV2() {
		return "", false
	}
	path := filepath.Join(cgroupRoot, "memory.events")
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}
