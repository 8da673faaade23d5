// file: internal/sysinfo/residency_windows.go
// version: 1.0.0
// guid: 0c3a6239-c3b1-462d-97f5-22915d0940b0

//go:build windows

package sysinfo

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

var procQueryWorkingSetEx = psapi.NewProc("QueryWorkingSetEx")

// workingSetExInformation mirrors PSAPI_WORKING_SET_EX_INFORMATION.
// Bit 0 of the attributes word is the Valid (resident) flag.
type workingSetExInformation struct {
	virtualAddress    uintptr
	virtualAttributes uintptr
}

// willCauseHardPageFaultPlatform queries working-set attributes for
// every page backing the range. Any non-resident page means a touch
// would fault to disk.
func willCauseHardPageFaultPlatform(b []byte) (bool, error) {
	if len(b) == 0 {
		return false, nil
	}
	pageSize := uintptr(os.Getpagesize())
	start := uintptr(unsafe.Pointer(&b[0]))
	end := start + uintptr(len(b))

	var entries []workingSetExInformation
	for addr := start &^ (pageSize - 1); addr < end; addr += pageSize {
		entries = append(entries, workingSetExInformation{virtualAddress: addr})
	}

	ret, _, callErr := procQueryWorkingSetEx.Call(
		uintptr(windows.CurrentProcess()),
		uintptr(unsafe.Pointer(&entries[0])),
		uintptr(len(entries))*unsafe.Sizeof(entries[0]),
	)
	if ret == 0 {
		return false, fmt.Errorf("QueryWorkingSetEx: %w", callErr)
	}
	for _, e := range entries {
		if e.virtualAttributes&1 == 0 {
			return true, nil
		}
	}
	return false, nil
}
