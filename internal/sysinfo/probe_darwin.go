// file: internal/sysinfo/probe_darwin.go
// version: 1.0.0
// guid: cb350099-0068-4e5a-9abb-d75f568b69ac

//go:build darwin

package sysinfo

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/djordjedjukic/ravendb/internal/units"
)

// readMemoryFiguresPlatform probes macOS through sysctl. Unlike the
// Linux probe, any failure here aborts the whole read: the page-count
// queries supply multiple required fields, so partial results would be
// inconsistent rather than merely degraded.
func readMemoryFiguresPlatform() (MemoryFigures, error) {
	total, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return MemoryFigures{}, fmt.Errorf("sysctl hw.memsize: %w", err)
	}
	pageSize, err := unix.SysctlUint32("vm.pagesize")
	if err != nil {
		return MemoryFigures{}, fmt.Errorf("sysctl vm.pagesize: %w", err)
	}

	freePages, err := sysctlPageCount("vm.page_free_count")
	if err != nil {
		return MemoryFigures{}, err
	}
	purgeablePages, err := sysctlPageCount("vm.page_purgeable_count")
	if err != nil {
		return MemoryFigures{}, err
	}
	speculativePages, err := sysctlPageCount("vm.page_speculative_count")
	if err != nil {
		return MemoryFigures{}, err
	}

	swapTotal, swapUsed, err := swapUsage()
	if err != nil {
		return MemoryFigures{}, err
	}

	// Inactive pages are not sysctl-exposed; purgeable plus speculative
	// is the closest reclaimable approximation without a Mach call.
	available := (freePages + purgeablePages + speculativePages) * uint64(pageSize)
	if available > total {
		available = total
	}
	// Wired and active counts are likewise unavailable, so the resident
	// commit portion is taken as total minus reclaimable.
	commitCharge := (total - available) + swapUsed

	return MemoryFigures{
		AvailableMemory:        units.NewSize(int64(available), units.Bytes),
		TotalPhysicalMemory:    units.NewSize(int64(total), units.Bytes),
		InstalledMemory:        units.NewSize(int64(total), units.Bytes),
		TotalCommittableMemory: units.NewSize(int64(total+swapTotal), units.Bytes),
		CurrentCommitCharge:    units.NewSize(int64(commitCharge), units.Bytes),
	}, nil
}

// sysctlPageCount reads a vm.page_* counter, which the kernel exposes
// as a native-endian 32-bit value.
func sysctlPageCount(name string) (uint64, error) {
	raw, err := unix.SysctlRaw(name)
	if err != nil {
		return 0, fmt.Errorf("sysctl %s: %w", name, err)
	}
	if len(raw) < 4 {
		return 0, fmt.Errorf("sysctl %s: short read (%d bytes)", name, len(raw))
	}
	return uint64(binary.LittleEndian.Uint32(raw)), nil
}

// swapUsage decodes the xsw_usage structure behind vm.swapusage:
// three consecutive 64-bit byte counts (total, available, used).
func swapUsage() (total, used uint64, err error) {
	raw, err := unix.SysctlRaw("vm.swapusage")
	if err != nil {
		return 0, 0, fmt.Errorf("sysctl vm.swapusage: %w", err)
	}
	if len(raw) < 24 {
		return 0, 0, fmt.Errorf("sysctl vm.swapusage: short read (%d bytes)", len(raw))
	}
	total = binary.LittleEndian.Uint64(raw[0:8])
	used = binary.LittleEndian.Uint64(raw[16:24])
	return total, used, nil
}

// residentSetPlatform reports the high-water resident set from rusage.
// The instantaneous working set needs a Mach task query, so the peak is
// used as the closest portable figure.
func residentSetPlatform() (units.Size, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return units.NewSize(-1, units.Bytes), fmt.Errorf("getrusage: %w", err)
	}
	// ru_maxrss is bytes on macOS (kilobytes on Linux).
	return units.NewSize(ru.Maxrss, units.Bytes), nil
}
