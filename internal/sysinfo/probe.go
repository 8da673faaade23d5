// file: internal/sysinfo/probe.go
// version: 1.1.0
// guid: b081bff1-32ee-41d4-b6fd-911e9c171662

package sysinfo

import (
	"github.com/djordjedjukic/ravendb/internal/units"
)

// MemoryFigures is the raw tuple a platform probe produces. All figures
// are point-in-time and already scaled to bytes regardless of the unit
// the underlying OS interface reports in.
type MemoryFigures struct {
	// AvailableMemory is memory usable without swapping.
	AvailableMemory units.Size `json:"available_memory"`
	// TotalPhysicalMemory is the physical memory the OS reports as usable,
	// or the container ceiling when a cgroup limit is in force.
	TotalPhysicalMemory units.Size `json:"total_physical_memory"`
	// InstalledMemory is the physically installed memory, which may exceed
	// what the OS exposes (reserved regions, hardware holes).
	InstalledMemory units.Size `json:"installed_memory"`
	// TotalCommittableMemory is the upper bound the OS will allow to be
	// committed: physical plus swap/page file, or the cgroup ceiling.
	TotalCommittableMemory units.Size `json:"total_committable_memory"`
	// CurrentCommitCharge is what is committed against that bound right now.
	CurrentCommitCharge units.Size `json:"current_commit_charge"`
}

// memoryFiguresProvider allows tests to override the platform probe.
var memoryFiguresProvider = readMemoryFiguresPlatform

// residentSetProvider allows tests to override the resident-set query.
var residentSetProvider = residentSetPlatform

// ReadMemoryFigures probes the host (or container) for the current memory
// figures. Any platform failure is returned as-is; callers own the policy
// for what a failed probe means.
func ReadMemoryFigures() (MemoryFigures, error) {
	return memoryFiguresProvider()
}

// ProcessResidentSet reports the calling process's resident memory: the
// OS working set on Windows and macOS, VmRSS on Linux.
func ProcessResidentSet() (units.Size, error) {
	return residentSetProvider()
}
