// file: cmd/root_test.go
// version: 2.0.0
// guid: 7eae8d0c-7fda-4f45-8f73-5d1e0c7c9f1a

package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/djordjedjukic/ravendb/internal/config"
	"github.com/djordjedjukic/ravendb/internal/memory"
	"github.com/djordjedjukic/ravendb/internal/sysinfo"
	"github.com/djordjedjukic/ravendb/internal/units"
)

func sampleSnapshotInfo() memory.MemoryInfo {
	return memory.MemoryInfo{
		MemoryFigures: sysinfo.MemoryFigures{
			AvailableMemory:        units.NewSize(4, units.Gigabytes),
			TotalPhysicalMemory:    units.NewSize(16, units.Gigabytes),
			InstalledMemory:        units.NewSize(16, units.Gigabytes),
			TotalCommittableMemory: units.NewSize(20, units.Gigabytes),
			CurrentCommitCharge:    units.NewSize(9, units.Gigabytes),
		},
		MemoryUsageRecords: memory.UsageExtremes{
			High: memory.IntervalExtremes{
				LastOneMinute:   units.NewSize(5, units.Gigabytes),
				LastFiveMinutes: units.NewSize(6, units.Gigabytes),
				SinceStartup:    units.NewSize(7, units.Gigabytes),
			},
			Low: memory.IntervalExtremes{
				LastOneMinute:   units.NewSize(3, units.Gigabytes),
				LastFiveMinutes: units.NewSize(2, units.Gigabytes),
				SinceStartup:    units.NewSize(1, units.Gigabytes),
			},
		},
	}
}

func TestPrintSnapshotText(t *testing.T) {
	var buf bytes.Buffer
	if err := printSnapshot(&buf, sampleSnapshotInfo(), "text", false); err != nil {
		t.Fatalf("printSnapshot failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Available:", "Total physical:", "Commit charge:", "High (1m / 5m / startup):"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "WARNING") {
		t.Error("did not expect fallback warning")
	}
}

func TestPrintSnapshotFallbackWarning(t *testing.T) {
	var buf bytes.Buffer
	if err := printSnapshot(&buf, sampleSnapshotInfo(), "text", true); err != nil {
		t.Fatalf("printSnapshot failed: %v", err)
	}
	if !strings.Contains(buf.String(), "WARNING") {
		t.Error("expected fallback warning in output")
	}
}

func TestPrintSnapshotJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printSnapshot(&buf, sampleSnapshotInfo(), "json", false); err != nil {
		t.Fatalf("printSnapshot failed: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if got["available_bytes"] != float64(4<<30) {
		t.Errorf("expected available_bytes %d, got %v", int64(4<<30), got["available_bytes"])
	}
	if got["fallback"] != false {
		t.Errorf("expected fallback false, got %v", got["fallback"])
	}
	records, ok := got["memory_usage_records"].(map[string]any)
	if !ok {
		t.Fatalf("expected memory_usage_records object, got %T", got["memory_usage_records"])
	}
	if records["high_one_minute"] == "" {
		t.Error("expected high_one_minute to be set")
	}
}

func TestPrintSnapshotYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := printSnapshot(&buf, sampleSnapshotInfo(), "yaml", false); err != nil {
		t.Fatalf("printSnapshot failed: %v", err)
	}

	var got map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if got["available_bytes"] != 4294967296 {
		t.Errorf("expected available_bytes 4294967296, got %v", got["available_bytes"])
	}
	if _, ok := got["memory_usage_records"]; !ok {
		t.Error("expected memory_usage_records in YAML output")
	}
}

func TestPrintSnapshotUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := printSnapshot(&buf, sampleSnapshotInfo(), "xml", false); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestRunMemtestValidation(t *testing.T) {
	if err := runMemtest(0, 1, 0.05, 0); err == nil {
		t.Fatal("expected error for non-positive size")
	}
	if err := runMemtest(8, 4, 1.5, 0); err == nil {
		t.Fatal("expected error for fraction above 1")
	}
	if err := runMemtest(8, 4, 0, 0); err == nil {
		t.Fatal("expected error for zero fraction")
	}
}

func TestRunMemtestSmallAllocation(t *testing.T) {
	if err := runMemtest(2, 1, 0.000001, 0); err != nil {
		t.Fatalf("runMemtest failed: %v", err)
	}
	// Chunk larger than the total clamps to a single chunk.
	if err := runMemtest(2, 64, 0.000001, 0); err != nil {
		t.Fatalf("runMemtest with oversized chunk failed: %v", err)
	}
	if err := runMemtest(1, 1, 0.000001, 10*time.Millisecond); err != nil {
		t.Fatalf("runMemtest with hold failed: %v", err)
	}
}

func TestInitConfigCreatesJournalDir(t *testing.T) {
	tempDir := t.TempDir()
	journalDir := filepath.Join(tempDir, "data", "journal")

	origCfgFile := cfgFile
	origJournal := journalPath
	origConfig := config.AppConfig
	defer func() {
		cfgFile = origCfgFile
		journalPath = origJournal
		config.AppConfig = origConfig
	}()

	viper.Reset()
	cfgFile = filepath.Join(tempDir, "config.yaml")
	journalPath = journalDir

	initConfig()

	if _, err := os.Stat(filepath.Dir(journalDir)); err != nil {
		t.Fatalf("expected journal parent directory to exist: %v", err)
	}
}

func TestInitConfigUsesHomeConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, ".memoryd.yaml")
	if err := os.WriteFile(configPath, []byte("port: 9191\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	origCfgFile := cfgFile
	origJournal := journalPath
	origConfig := config.AppConfig
	defer func() {
		cfgFile = origCfgFile
		journalPath = origJournal
		config.AppConfig = origConfig
	}()

	t.Setenv("HOME", tempDir)
	cfgFile = ""
	journalPath = ""

	viper.Reset()
	initConfig()

	if config.AppConfig.Port != 9191 {
		t.Fatalf("expected port 9191 from home config, got %d", config.AppConfig.Port)
	}
}

func TestCheckCommandBadFraction(t *testing.T) {
	origConfig := config.AppConfig
	defer func() {
		config.AppConfig = origConfig
	}()
	config.AppConfig.MinimumFreeFraction = 0.05

	if err := checkCmd.Flags().Set("fraction", "1.5"); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}
	defer checkCmd.Flags().Set("fraction", "0")

	if err := checkCmd.RunE(checkCmd, nil); err == nil {
		t.Fatal("expected error for out-of-range fraction")
	}
}

func TestCheckCommandAllowed(t *testing.T) {
	origConfig := config.AppConfig
	defer func() {
		config.AppConfig = origConfig
	}()
	config.AppConfig.MinimumFreeFraction = 0.05

	if err := checkCmd.Flags().Set("fraction", "0.000001"); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}
	defer checkCmd.Flags().Set("fraction", "0")

	if err := checkCmd.RunE(checkCmd, nil); err != nil {
		t.Fatalf("expected tiny fraction to be allowed, got %v", err)
	}
}

func TestSnapshotCommand(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	origStdout := os.Stdout
	os.Stdout = w

	if err := snapshotCmd.Flags().Set("format", "json"); err != nil {
		os.Stdout = origStdout
		t.Fatalf("failed to set flag: %v", err)
	}
	defer snapshotCmd.Flags().Set("format", "text")

	runErr := snapshotCmd.RunE(snapshotCmd, nil)
	_ = w.Close()
	os.Stdout = origStdout

	output, err := io.ReadAll(r)
	_ = r.Close()
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if runErr != nil {
		t.Fatalf("snapshotCmd failed: %v", runErr)
	}

	var got map[string]any
	if err := json.Unmarshal(output, &got); err != nil {
		t.Fatalf("snapshot output is not valid JSON: %v", err)
	}
	if _, ok := got["available_bytes"]; !ok {
		t.Error("expected available_bytes in snapshot output")
	}
}

func TestConfigShowCommand(t *testing.T) {
	origConfig := config.AppConfig
	defer func() {
		config.AppConfig = origConfig
	}()
	config.AppConfig = config.Config{
		Host:        "localhost",
		Port:        8080,
		JournalPath: "/data/journal",
		JournalType: "pebble",
	}

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	origStdout := os.Stdout
	os.Stdout = w

	runErr := configShowCmd.RunE(configShowCmd, nil)
	_ = w.Close()
	os.Stdout = origStdout

	output, err := io.ReadAll(r)
	_ = r.Close()
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if runErr != nil {
		t.Fatalf("configShowCmd failed: %v", runErr)
	}
	if !strings.Contains(string(output), "journal_type: pebble") {
		t.Fatalf("expected journal_type in output, got:\n%s", output)
	}
}

func TestConfigInitCommand(t *testing.T) {
	tempDir := t.TempDir()

	origCfgFile := cfgFile
	origConfig := config.AppConfig
	defer func() {
		cfgFile = origCfgFile
		config.AppConfig = origConfig
	}()

	cfgFile = filepath.Join(tempDir, "memoryd.yaml")
	config.AppConfig = config.Config{
		Host:        "localhost",
		Port:        8080,
		JournalPath: "/data/journal",
		JournalType: "pebble",
	}

	if err := configInitCmd.RunE(configInitCmd, nil); err != nil {
		t.Fatalf("configInitCmd failed: %v", err)
	}
	if _, err := os.Stat(cfgFile); err != nil {
		t.Fatalf("expected config file to be written: %v", err)
	}
}
