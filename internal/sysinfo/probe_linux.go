// file: internal/sysinfo/probe_linux.go
// version: 1.0.0
// guid: bd1b1dc7-ee16-4643-9ccf-2d42529fef8d

//go:build linux

package sysinfo

import (
	"fmt"
	"os"

	"github.com/djordjedjukic/ravendb/internal/units"
)

// Pseudo-file paths, overridable so tests can substitute fixtures.
var (
	procMeminfoPath    = "/proc/meminfo"
	procSelfStatusPath = "/proc/self/status"
)

// readMemoryFiguresPlatform probes /proc/meminfo and overlays cgroup
// figures when the process runs under a container memory ceiling.
func readMemoryFiguresPlatform() (MemoryFigures, error) {
	file, err := os.Open(procMeminfoPath)
	if err != nil {
		return MemoryFigures{}, fmt.Errorf("opening %s: %w", procMeminfoPath, err)
	}
	defer file.Close()

	stats, err := parseMeminfo(file)
	if err != nil {
		return MemoryFigures{}, err
	}

	figures := MemoryFigures{
		AvailableMemory:     units.NewSize(availableFromMeminfo(stats), units.Bytes),
		TotalPhysicalMemory: units.NewSize(stats.MemTotal, units.Bytes),
		InstalledMemory:     units.NewSize(stats.MemTotal, units.Bytes),
		// Committable is physical plus swap; the kernel's own overcommit
		// heuristics are deliberately not consulted.
		TotalCommittableMemory: units.NewSize(stats.MemTotal+stats.SwapTotal, units.Bytes),
		CurrentCommitCharge:    units.NewSize(stats.CommittedAS, units.Bytes),
	}
	applyCgroupOverride(&figures, readCgroupFigures())
	return figures, nil
}

// residentSetPlatform reads the VmRSS line of the process status file.
func residentSetPlatform() (units.Size, error) {
	file, err := os.Open(procSelfStatusPath)
	if err != nil {
		return units.NewSize(-1, units.Bytes), fmt.Errorf("opening %s: %w", procSelfStatusPath, err)
	}
	defer file.Close()

	rss, ok := scanStatusValue(file, "VmRSS")
	if !ok {
		return units.NewSize(-1, units.Bytes), fmt.Errorf("no VmRSS line in %s", procSelfStatusPath)
	}
	return units.NewSize(rss, units.Bytes), nil
}
