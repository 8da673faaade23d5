// file: internal/sysinfo/swap.go
// version: 1.0.0
// guid: d3acc853-6ee6-4c5a-9664-852d98f53f91

package sysinfo

// SwapDiagnostic describes, for operators, whether the host is swapping
// and whether the swap medium is slower than expected (rotational
// storage). Always returns a human-readable string, never fails.
func SwapDiagnostic() string {
	return swapDiagnosticPlatform()
}
