// file: internal/sysinfo/probe_windows.go
// version: 1.0.0
// guid: 0f148f84-e182-453b-8ac0-8811e19452fe

//go:build windows

package sysinfo

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/djordjedjukic/ravendb/internal/units"
)

// memoryStatusEx mirrors the MEMORYSTATUSEX layout filled in by
// GlobalMemoryStatusEx. dwLength must be set before the call.
type memoryStatusEx struct {
	dwLength                uint32
	dwMemoryLoad            uint32
	ullTotalPhys            uint64
	ullAvailPhys            uint64
	ullTotalPageFile        uint64
	ullAvailPageFile        uint64
	ullTotalVirtual         uint64
	ullAvailVirtual         uint64
	ullAvailExtendedVirtual uint64
}

// processMemoryCounters mirrors PROCESS_MEMORY_COUNTERS for
// GetProcessMemoryInfo.
type processMemoryCounters struct {
	cb                         uint32
	pageFaultCount             uint32
	peakWorkingSetSize         uintptr
	workingSetSize             uintptr
	quotaPeakPagedPoolUsage    uintptr
	quotaPagedPoolUsage        uintptr
	quotaPeakNonPagedPoolUsage uintptr
	quotaNonPagedPoolUsage     uintptr
	pagefileUsage              uintptr
	peakPagefileUsage          uintptr
}

var (
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")
	psapi    = windows.NewLazySystemDLL("psapi.dll")

	procGlobalMemoryStatusEx               = kernel32.NewProc("GlobalMemoryStatusEx")
	procGetPhysicallyInstalledSystemMemory = kernel32.NewProc("GetPhysicallyInstalledSystemMemory")
	procGetProcessMemoryInfo               = psapi.NewProc("GetProcessMemoryInfo")
)

// readMemoryFiguresPlatform probes Windows. One call fills the whole
// commit picture: the page-file totals already include physical memory,
// so they are the committable bound and the commit charge directly.
func readMemoryFiguresPlatform() (MemoryFigures, error) {
	var status memoryStatusEx
	status.dwLength = uint32(unsafe.Sizeof(status))
	ret, _, callErr := procGlobalMemoryStatusEx.Call(uintptr(unsafe.Pointer(&status)))
	if ret == 0 {
		return MemoryFigures{}, fmt.Errorf("GlobalMemoryStatusEx: %w", callErr)
	}

	// Physically installed memory may exceed what the OS reports as
	// usable. The query is best-effort; fall back to the reported total.
	installed := status.ullTotalPhys
	var installedKB uint64
	ret, _, _ = procGetPhysicallyInstalledSystemMemory.Call(uintptr(unsafe.Pointer(&installedKB)))
	if ret != 0 {
		installed = installedKB * 1024
	}

	return MemoryFigures{
		AvailableMemory:        units.NewSize(int64(status.ullAvailPhys), units.Bytes),
		TotalPhysicalMemory:    units.NewSize(int64(status.ullTotalPhys), units.Bytes),
		InstalledMemory:        units.NewSize(int64(installed), units.Bytes),
		TotalCommittableMemory: units.NewSize(int64(status.ullTotalPageFile), units.Bytes),
		CurrentCommitCharge:    units.NewSize(int64(status.ullTotalPageFile-status.ullAvailPageFile), units.Bytes),
	}, nil
}

// residentSetPlatform reports the current working set size.
func residentSetPlatform() (units.Size, error) {
	var counters processMemoryCounters
	counters.cb = uint32(unsafe.Sizeof(counters))
	ret, _, callErr := procGetProcessMemoryInfo.Call(
		uintptr(windows.CurrentProcess()),
		uintptr(unsafe.Pointer(&counters)),
		uintptr(counters.cb),
	)
	if ret == 0 {
		return units.NewSize(-1, units.Bytes), fmt.Errorf("GetProcessMemoryInfo: %w", callErr)
	}
	return units.NewSize(int64(counters.workingSetSize), units.Bytes), nil
}
