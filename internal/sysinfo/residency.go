// file: internal/sysinfo/residency.go
// version: 1.0.0
// guid: 55c07f54-c102-481c-987f-ece4366cc1ee

package sysinfo

// WillCauseHardPageFault reports whether touching the given range is
// likely to make the kernel read pages back from disk. When the page
// table cannot be queried the answer is false; the caller's recourse
// either way is to touch the memory.
func WillCauseHardPageFault(b []byte) bool {
	fault, err := willCauseHardPageFaultPlatform(b)
	if err != nil {
		return false
	}
	return fault
}
