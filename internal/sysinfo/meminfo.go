// file: internal/sysinfo/meminfo.go
// version: 1.0.0
// guid: f3e4fd8c-450f-4623-9b21-8b7f554d3383

package sysinfo

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// meminfoStats holds the fields of /proc/meminfo this package cares
// about, converted from the file's kB units to bytes.
type meminfoStats struct {
	MemTotal        int64
	MemFree         int64
	MemAvailable    int64
	SwapTotal       int64
	CommittedAS     int64
	hasMemAvailable bool
}

// parseMeminfo reads a /proc/meminfo-format stream ("Key:  value kB"
// lines) and extracts the fields used by the Linux probe.
func parseMeminfo(r io.Reader) (meminfoStats, error) {
	var stats meminfoStats
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "MemTotal:"):
			stats.MemTotal = parseKBLine(line)
		case strings.HasPrefix(line, "MemFree:"):
			stats.MemFree = parseKBLine(line)
		case strings.HasPrefix(line, "MemAvailable:"):
			stats.MemAvailable = parseKBLine(line)
			stats.hasMemAvailable = true
		case strings.HasPrefix(line, "SwapTotal:"):
			stats.SwapTotal = parseKBLine(line)
		case strings.HasPrefix(line, "Committed_AS:"):
			stats.CommittedAS = parseKBLine(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scanning meminfo: %w", err)
	}
	if stats.MemTotal == 0 {
		return stats, fmt.Errorf("meminfo missing MemTotal")
	}
	return stats, nil
}

// availableFromMeminfo picks the available-memory figure: MemAvailable
// when the kernel provides it, MemFree otherwise. Taking the max covers
// both cases because a missing MemAvailable parses as zero.
func availableFromMeminfo(stats meminfoStats) int64 {
	if stats.MemAvailable > stats.MemFree {
		return stats.MemAvailable
	}
	return stats.MemFree
}

// parseKBLine extracts the numeric value from a "Key:  value kB" line
// and scales it to bytes. Malformed lines yield zero.
func parseKBLine(line string) int64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	kb, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return kb * 1024
}

// scanStatusValue finds a single "Key:  value kB" entry in a
// /proc/<pid>/status-format stream and returns its value in bytes.
func scanStatusValue(r io.Reader, key string) (int64, bool) {
	prefix := key + ":"
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, prefix) {
			return parseKBLine(line), true
		}
	}
	return 0, false
}
