// file: internal/sysinfo/swap_windows.go
// version: 1.0.0
// guid: aa24d9cd-6b8d-4c03-9e48-1402f88ef8a4

//go:build windows

package sysinfo

import (
	"fmt"
	"unsafe"
)

// swapDiagnosticPlatform reports page-file pressure from the global
// memory status. Drive-medium detection needs volume IOCTLs and is not
// attempted; the commit figures are the actionable part.
func swapDiagnosticPlatform() string {
	var status memoryStatusEx
	status.dwLength = uint32(unsafe.Sizeof(status))
	ret, _, callErr := procGlobalMemoryStatusEx.Call(uintptr(unsafe.Pointer(&status)))
	if ret == 0 {
		return fmt.Sprintf("swap state unavailable: %v", callErr)
	}

	pageFileTotal := int64(status.ullTotalPageFile) - int64(status.ullTotalPhys)
	if pageFileTotal <= 0 {
		return "no page file is configured"
	}
	committed := int64(status.ullTotalPageFile - status.ullAvailPageFile)
	return fmt.Sprintf("page file: %d MB configured, system commit charge %d MB of %d MB (medium type not inspected)",
		pageFileTotal/(1024*1024),
		committed/(1024*1024),
		int64(status.ullTotalPageFile)/(1024*1024))
}
