// file: internal/sysinfo/swap_linux.go
// version: 1.0.0
// guid: 79489889-c96c-45a6-8885-37a3bd55e21c

//go:build linux

package sysinfo

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Overridable for fixture tests.
var (
	procSwapsPath = "/proc/swaps"
	sysBlockPath  = "/sys/block"
)

type swapEntry struct {
	Name   string
	Type   string // "partition" or "file"
	SizeKB int64
	UsedKB int64
}

// swapDiagnosticPlatform inspects /proc/swaps and flags any swap device
// backed by rotational storage, which makes paging far more expensive
// than the SSD-backed case operators usually assume.
func swapDiagnosticPlatform() string {
	entries, err := readSwapEntries()
	if err != nil {
		return fmt.Sprintf("swap state unavailable: %v", err)
	}
	if len(entries) == 0 {
		return "no swap is configured"
	}

	var totalKB, usedKB int64
	var rotational []string
	for _, e := range entries {
		totalKB += e.SizeKB
		usedKB += e.UsedKB
		if e.Type == "partition" && isRotationalDevice(e.Name) {
			rotational = append(rotational, e.Name)
		}
	}

	if len(rotational) > 0 {
		if usedKB > 0 {
			return fmt.Sprintf("swapping is active on rotational storage (%s), %d KB in use; expect severe latency",
				strings.Join(rotational, ", "), usedKB)
		}
		return fmt.Sprintf("swap is configured on rotational storage (%s) but currently unused",
			strings.Join(rotational, ", "))
	}
	return fmt.Sprintf("swap in use: %d KB of %d KB across %d device(s), none rotational",
		usedKB, totalKB, len(entries))
}

func readSwapEntries() ([]swapEntry, error) {
	file, err := os.Open(procSwapsPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var entries []swapEntry
	scanner := bufio.NewScanner(file)
	first := true
	for scanner.Scan() {
		if first { // header row
			first = false
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		size, _ := strconv.ParseInt(fields[2], 10, 64)
		used, _ := strconv.ParseInt(fields[3], 10, 64)
		entries = append(entries, swapEntry{
			Name:   fields[0],
			Type:   fields[1],
			SizeKB: size,
			UsedKB: used,
		})
	}
	return entries, scanner.Err()
}

// isRotationalDevice checks the block layer's rotational flag for the
// disk backing a swap partition.
func isRotationalDevice(partition string) bool {
	disk := blockDeviceForPartition(partition)
	data, err := os.ReadFile(filepath.Join(sysBlockPath, disk, "queue", "rotational"))
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == "1"
}

// blockDeviceForPartition maps a partition device node to its parent
// disk: sda1 -> sda, nvme0n1p2 -> nvme0n1, mmcblk0p1 -> mmcblk0.
func blockDeviceForPartition(partition string) string {
	name := strings.TrimPrefix(partition, "/dev/")
	if i := strings.LastIndexByte(name, 'p'); i > 0 && i < len(name)-1 {
		if isDigits(name[i+1:]) && name[i-1] >= '0' && name[i-1] <= '9' {
			return name[:i]
		}
	}
	return strings.TrimRight(name, "0123456789")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
