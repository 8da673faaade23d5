// file: internal/sysinfo/meminfo_test.go
// version: 1.0.0
// guid: fa21b530-27a7-4b9b-8e91-6a25f40003ca

package sysinfo

import (
	"strings"
	"testing"
)

const meminfoFixture = `MemTotal:        8000000 kB
MemFree:          500000 kB
MemAvailable:    3000000 kB
Buffers:          100000 kB
Cached:          2000000 kB
SwapTotal:       2000000 kB
SwapFree:        1500000 kB
Committed_AS:    4000000 kB
`

func TestParseMeminfo(t *testing.T) {
	stats, err := parseMeminfo(strings.NewReader(meminfoFixture))
	if err != nil {
		t.Fatalf("parseMeminfo: %v", err)
	}
	if got, want := stats.MemTotal, int64(8000000*1024); got != want {
		t.Errorf("MemTotal = %d, want %d", got, want)
	}
	if got, want := stats.MemAvailable, int64(3000000*1024); got != want {
		t.Errorf("MemAvailable = %d, want %d", got, want)
	}
	if got, want := stats.SwapTotal, int64(2000000*1024); got != want {
		t.Errorf("SwapTotal = %d, want %d", got, want)
	}
	if got, want := stats.CommittedAS, int64(4000000*1024); got != want {
		t.Errorf("Committed_AS = %d, want %d", got, want)
	}
	if !stats.hasMemAvailable {
		t.Error("expected hasMemAvailable to be set")
	}
}

func TestAvailableFromMeminfoPrefersMemAvailable(t *testing.T) {
	stats, err := parseMeminfo(strings.NewReader(meminfoFixture))
	if err != nil {
		t.Fatalf("parseMeminfo: %v", err)
	}
	if got, want := availableFromMeminfo(stats), int64(3000000*1024); got != want {
		t.Errorf("available = %d, want %d (MemAvailable)", got, want)
	}
}

func TestAvailableFromMeminfoOldKernelFallback(t *testing.T) {
	// Kernels before 3.14 have no MemAvailable line; MemFree must win.
	fixture := `MemTotal:        8000000 kB
MemFree:          100000 kB
SwapTotal:             0 kB
Committed_AS:    4000000 kB
`
	stats, err := parseMeminfo(strings.NewReader(fixture))
	if err != nil {
		t.Fatalf("parseMeminfo: %v", err)
	}
	if stats.hasMemAvailable {
		t.Error("fixture should not report MemAvailable")
	}
	if got, want := availableFromMeminfo(stats), int64(100000*1024); got != want {
		t.Errorf("available = %d, want %d (MemFree fallback)", got, want)
	}
}

func TestParseMeminfoMissingMemTotal(t *testing.T) {
	_, err := parseMeminfo(strings.NewReader("MemFree: 1234 kB\n"))
	if err == nil {
		t.Error("expected an error for a meminfo without MemTotal")
	}
}

func TestParseKBLineMalformed(t *testing.T) {
	if got := parseKBLine("MemTotal: notanumber kB"); got != 0 {
		t.Errorf("malformed line should parse as 0, got %d", got)
	}
	if got := parseKBLine("MemTotal:"); got != 0 {
		t.Errorf("truncated line should parse as 0, got %d", got)
	}
}

func TestScanStatusValue(t *testing.T) {
	status := `Name:   memoryd
VmPeak:   102400 kB
VmRSS:     51200 kB
Threads:  12
`
	rss, ok := scanStatusValue(strings.NewReader(status), "VmRSS")
	if !ok {
		t.Fatal("VmRSS not found")
	}
	if want := int64(51200 * 1024); rss != want {
		t.Errorf("VmRSS = %d, want %d", rss, want)
	}
	if _, ok := scanStatusValue(strings.NewReader(status), "VmSwap"); ok {
		t.Error("VmSwap should not be found")
	}
}
