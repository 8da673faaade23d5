// file: internal/sysinfo/swap_darwin.go
// version: 1.0.0
// guid: 74319320-bdda-4317-a9d8-67b803494efa

//go:build darwin

package sysinfo

import (
	"fmt"
)

// swapDiagnosticPlatform reports dynamic-pager usage. macOS pages to
// the internal volume, so the medium itself is not a concern; the
// interesting signal is whether swapping happens at all.
func swapDiagnosticPlatform() string {
	total, used, err := swapUsage()
	if err != nil {
		return fmt.Sprintf("swap state unavailable: %v", err)
	}
	if total == 0 {
		return "no swap is configured"
	}
	return fmt.Sprintf("swap in use: %d MB of %d MB on the internal volume",
		used/(1024*1024), total/(1024*1024))
}
