// file: internal/sysinfo/residency_unix.go
// version: 1.0.0
// guid: 3a396899-069e-4345-8216-afaa433e25e4

//go:build linux || darwin

package sysinfo

import (
	"os"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// willCauseHardPageFaultPlatform asks the kernel which pages backing
// the range are resident. mincore requires a page-aligned start, so the
// range is widened to page boundaries before the query. A page without
// its in-core bit set would fault on access.
func willCauseHardPageFaultPlatform(b []byte) (bool, error) {
	if len(b) == 0 {
		return false, nil
	}
	pageSize := uintptr(os.Getpagesize())
	start := uintptr(unsafe.Pointer(&b[0]))
	aligned := start &^ (pageSize - 1)
	length := start + uintptr(len(b)) - aligned
	pages := (length + pageSize - 1) / pageSize

	vec := make([]byte, pages)
	_, _, errno := unix.Syscall(unix.SYS_MINCORE, aligned, length, uintptr(unsafe.Pointer(&vec[0])))
	runtime.KeepAlive(b)
	if errno != 0 {
		return false, errno
	}
	for _, v := range vec {
		if v&1 == 0 {
			return true, nil
		}
	}
	return false, nil
}
