// file: internal/sysinfo/cgroup_test.go
// version: 1.0.0
// guid: e3d3b420-bba4-4289-939c-6b9e3750828d

package sysinfo

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/djordjedjukic/ravendb/internal/units"
)

const gib = int64(1024 * 1024 * 1024)

func hostFigures(totalBytes int64) MemoryFigures {
	return MemoryFigures{
		AvailableMemory:        units.NewSize(totalBytes/2, units.Bytes),
		TotalPhysicalMemory:    units.NewSize(totalBytes, units.Bytes),
		InstalledMemory:        units.NewSize(totalBytes, units.Bytes),
		TotalCommittableMemory: units.NewSize(totalBytes*2, units.Bytes),
		CurrentCommitCharge:    units.NewSize(totalBytes/4, units.Bytes),
	}
}

func TestApplyCgroupOverrideConstrained(t *testing.T) {
	figures := hostFigures(8 * gib)
	usage := int64(256 * 1024 * 1024)
	cg := cgroupFigures{Limit: gib, MaxUsage: gib / 2, Usage: usage}

	if !applyCgroupOverride(&figures, cg) {
		t.Fatal("override should apply when ceiling <= host total")
	}
	if got := figures.TotalPhysicalMemory.Bytes(); got != gib {
		t.Errorf("TotalPhysicalMemory = %d, want %d", got, gib)
	}
	if got := figures.AvailableMemory.Bytes(); got != gib-usage {
		t.Errorf("AvailableMemory = %d, want %d", got, gib-usage)
	}
	if got := figures.CurrentCommitCharge.Bytes(); got != usage {
		t.Errorf("CurrentCommitCharge = %d, want %d", got, usage)
	}
	if got := figures.TotalCommittableMemory.Bytes(); got != gib {
		t.Errorf("TotalCommittableMemory = %d, want %d", got, gib)
	}
}

func TestApplyCgroupOverrideCeilingAboveHost(t *testing.T) {
	figures := hostFigures(8 * gib)
	before := figures
	cg := cgroupFigures{Limit: 16 * gib, Usage: gib}

	if applyCgroupOverride(&figures, cg) {
		t.Fatal("override must not apply when ceiling exceeds host total")
	}
	if figures != before {
		t.Error("figures must be unchanged when the override is skipped")
	}
}

func TestApplyCgroupOverrideNoCgroupData(t *testing.T) {
	figures := hostFigures(8 * gib)
	before := figures
	if applyCgroupOverride(&figures, cgroupFigures{}) {
		t.Fatal("override must not apply without cgroup data")
	}
	if figures != before {
		t.Error("figures must be unchanged")
	}
}

func TestApplyCgroupOverrideUsageAboveCeiling(t *testing.T) {
	// Shared hosts can report usage above the ceiling; capacity follows
	// the larger of the two.
	figures := hostFigures(8 * gib)
	cg := cgroupFigures{Limit: gib, Usage: gib + 1}

	if !applyCgroupOverride(&figures, cg) {
		t.Fatal("override should apply")
	}
	if got := figures.TotalPhysicalMemory.Bytes(); got != gib+1 {
		t.Errorf("TotalPhysicalMemory = %d, want %d", got, gib+1)
	}
	if got := figures.AvailableMemory.Bytes(); got != -1 {
		t.Errorf("AvailableMemory = %d, want -1", got)
	}
}

func writeCgroupFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestReadCgroupFiguresV2(t *testing.T) {
	dir := t.TempDir()
	original := cgroupRoot
	cgroupRoot = dir
	t.Cleanup(func() { cgroupRoot = original })

	writeCgroupFile(t, dir, "cgroup.controllers", "cpuset cpu memory\n")
	writeCgroupFile(t, dir, "memory.max", "1073741824\n")
	writeCgroupFile(t, dir, "memory.peak", "536870912\n")
	writeCgroupFile(t, dir, "memory.current", "268435456\n")

	cg := readCgroupFigures()
	if cg.Limit != gib {
		t.Errorf("Limit = %d, want %d", cg.Limit, gib)
	}
	if cg.MaxUsage != gib/2 {
		t.Errorf("MaxUsage = %d, want %d", cg.MaxUsage, gib/2)
	}
	if cg.Usage != gib/4 {
		t.Errorf("Usage = %d, want %d", cg.Usage, gib/4)
	}
}

func TestReadCgroupFiguresV2Unlimited(t *testing.T) {
	dir := t.TempDir()
	original := cgroupRoot
	cgroupRoot = dir
	t.Cleanup(func() { cgroupRoot = original })

	writeCgroupFile(t, dir, "cgroup.controllers", "memory\n")
	writeCgroupFile(t, dir, "memory.max", "max\n")
	writeCgroupFile(t, dir, "memory.current", "1024\n")

	cg := readCgroupFigures()
	if cg.Limit != math.MaxInt64 {
		t.Errorf("unlimited controller should report MaxInt64, got %d", cg.Limit)
	}
	// An unlimited ceiling must never trigger the container override.
	figures := hostFigures(8 * gib)
	if applyCgroupOverride(&figures, cg) {
		t.Error("override applied for an unlimited cgroup")
	}
}

func TestReadCgroupFiguresV1(t *testing.T) {
	dir := t.TempDir()
	original := cgroupRoot
	cgroupRoot = dir
	t.Cleanup(func() { cgroupRoot = original })

	memDir := filepath.Join(dir, "memory")
	if err := os.MkdirAll(memDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeCgroupFile(t, memDir, "memory.limit_in_bytes", "1073741824\n")
	writeCgroupFile(t, memDir, "memory.max_usage_in_bytes", "536870912\n")
	writeCgroupFile(t, memDir, "memory.usage_in_bytes", "268435456\n")

	cg := readCgroupFigures()
	if cg.Limit != gib || cg.MaxUsage != gib/2 || cg.Usage != gib/4 {
		t.Errorf("v1 figures = %+v", cg)
	}
}

func TestReadCgroupFiguresMissingFiles(t *testing.T) {
	dir := t.TempDir()
	original := cgroupRoot
	cgroupRoot = dir
	t.Cleanup(func() { cgroupRoot = original })

	// A missing controller degrades to zeros, never an error.
	cg := readCgroupFigures()
	if cg.Limit != 0 || cg.MaxUsage != 0 || cg.Usage != 0 {
		t.Errorf("expected zero figures, got %+v", cg)
	}
}
