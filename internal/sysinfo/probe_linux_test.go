// file: internal/sysinfo/probe_linux_test.go
// version: 1.0.0
// guid: 6f77d142-f6f0-4976-91ab-1ff0639f3124

//go:build linux

package sysinfo

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadMemoryFiguresFromFixture(t *testing.T) {
	originalMeminfo := procMeminfoPath
	originalRoot := cgroupRoot
	t.Cleanup(func() {
		procMeminfoPath = originalMeminfo
		cgroupRoot = originalRoot
	})
	procMeminfoPath = writeFixture(t, meminfoFixture)
	cgroupRoot = t.TempDir() // no controller files, override skipped

	figures, err := ReadMemoryFigures()
	if err != nil {
		t.Fatalf("ReadMemoryFigures: %v", err)
	}
	if got, want := figures.TotalPhysicalMemory.Bytes(), int64(8000000*1024); got != want {
		t.Errorf("TotalPhysicalMemory = %d, want %d", got, want)
	}
	if got, want := figures.AvailableMemory.Bytes(), int64(3000000*1024); got != want {
		t.Errorf("AvailableMemory = %d, want %d", got, want)
	}
	if got, want := figures.TotalCommittableMemory.Bytes(), int64((8000000+2000000)*1024); got != want {
		t.Errorf("TotalCommittableMemory = %d, want %d (physical+swap)", got, want)
	}
	if got, want := figures.CurrentCommitCharge.Bytes(), int64(4000000*1024); got != want {
		t.Errorf("CurrentCommitCharge = %d, want %d", got, want)
	}
	if got, want := figures.InstalledMemory.Bytes(), int64(8000000*1024); got != want {
		t.Errorf("InstalledMemory = %d, want %d", got, want)
	}
}

func TestReadMemoryFiguresCgroupConstrained(t *testing.T) {
	originalMeminfo := procMeminfoPath
	originalRoot := cgroupRoot
	t.Cleanup(func() {
		procMeminfoPath = originalMeminfo
		cgroupRoot = originalRoot
	})
	procMeminfoPath = writeFixture(t, meminfoFixture)

	dir := t.TempDir()
	cgroupRoot = dir
	writeCgroupFile(t, dir, "cgroup.controllers", "memory\n")
	writeCgroupFile(t, dir, "memory.max", "1073741824\n")
	writeCgroupFile(t, dir, "memory.current", "268435456\n")

	figures, err := ReadMemoryFigures()
	if err != nil {
		t.Fatalf("ReadMemoryFigures: %v", err)
	}
	if got := figures.TotalPhysicalMemory.Bytes(); got != gib {
		t.Errorf("TotalPhysicalMemory = %d, want container ceiling %d", got, gib)
	}
	if got := figures.AvailableMemory.Bytes(); got != gib-gib/4 {
		t.Errorf("AvailableMemory = %d, want %d", got, gib-gib/4)
	}
	// Installed memory keeps describing the hardware, not the container.
	if got, want := figures.InstalledMemory.Bytes(), int64(8000000*1024); got != want {
		t.Errorf("InstalledMemory = %d, want %d", got, want)
	}
}

func TestReadMemoryFiguresMissingMeminfo(t *testing.T) {
	original := procMeminfoPath
	t.Cleanup(func() { procMeminfoPath = original })
	procMeminfoPath = filepath.Join(t.TempDir(), "does-not-exist")

	if _, err := ReadMemoryFigures(); err == nil {
		t.Error("expected an error when meminfo is unreadable")
	}
}

func TestProcessResidentSetFromStatusFixture(t *testing.T) {
	original := procSelfStatusPath
	t.Cleanup(func() { procSelfStatusPath = original })
	procSelfStatusPath = writeFixture(t, "Name: memoryd\nVmRSS:  51200 kB\n")

	rss, err := ProcessResidentSet()
	if err != nil {
		t.Fatalf("ProcessResidentSet: %v", err)
	}
	if want := int64(51200 * 1024); rss.Bytes() != want {
		t.Errorf("resident set = %d, want %d", rss.Bytes(), want)
	}
}

func TestProcessResidentSetLive(t *testing.T) {
	rss, err := ProcessResidentSet()
	if err != nil {
		t.Fatalf("ProcessResidentSet: %v", err)
	}
	if rss.Bytes() <= 0 {
		t.Errorf("a running process should have a positive resident set, got %d", rss.Bytes())
	}
}
