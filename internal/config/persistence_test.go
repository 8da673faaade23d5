// file: internal/config/persistence_test.go
// version: 2.0.0
// guid: 5e6f7a8b-9c0d-1e2f-3a4b-5c6d7e8f9a0b

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func resetConfigTestState() {
	viper.Reset()
	AppConfig = Config{}
}

func TestDefaultConfigFilePath(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)

	path, err := DefaultConfigFilePath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join(tempDir, ".memoryd.yaml")
	if path != want {
		t.Errorf("expected %q, got %q", want, path)
	}
}

func TestWriteEffective(t *testing.T) {
	resetConfigTestState()
	t.Cleanup(resetConfigTestState)

	AppConfig = Config{
		Host:                   "127.0.0.1",
		Port:                   9090,
		JournalPath:            "/data/journal",
		JournalType:            "pebble",
		JournalRetention:       72 * time.Hour,
		SampleInterval:         time.Second,
		LowMemoryThreshold:     0.10,
		LowMemoryCheckInterval: 5 * time.Second,
		MinimumFreeFraction:    0.05,
	}

	var buf bytes.Buffer
	if err := WriteEffective(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}

	if got["host"] != "127.0.0.1" {
		t.Errorf("expected host '127.0.0.1', got %v", got["host"])
	}
	if got["port"] != 9090 {
		t.Errorf("expected port 9090, got %v", got["port"])
	}
	if got["journal_retention"] != "72h0m0s" {
		t.Errorf("expected journal_retention '72h0m0s', got %v", got["journal_retention"])
	}
	if _, ok := got["auth_username"]; ok {
		t.Error("did not expect auth_username when credentials are unset")
	}
}

func TestWriteEffectiveIncludesCredentials(t *testing.T) {
	resetConfigTestState()
	t.Cleanup(resetConfigTestState)

	AppConfig = Config{
		Host:             "0.0.0.0",
		AuthUsername:     "admin",
		AuthPasswordHash: "$2a$10$abcdef",
	}

	var buf bytes.Buffer
	if err := WriteEffective(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if got["auth_username"] != "admin" {
		t.Errorf("expected auth_username 'admin', got %v", got["auth_username"])
	}
	if got["auth_password_hash"] != "$2a$10$abcdef" {
		t.Errorf("expected auth_password_hash to be written, got %v", got["auth_password_hash"])
	}
}

func TestSaveConfigToFile(t *testing.T) {
	resetConfigTestState()
	t.Cleanup(resetConfigTestState)

	AppConfig = Config{
		Host:                "localhost",
		Port:                8080,
		JournalPath:         "/data/journal",
		JournalType:         "pebble",
		JournalRetention:    48 * time.Hour,
		MinimumFreeFraction: 0.07,
	}

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := SaveConfigToFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected permissions 0600, got %o", perm)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}
	var got map[string]any
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("file is not valid YAML: %v", err)
	}
	if got["journal_type"] != "pebble" {
		t.Errorf("expected journal_type 'pebble', got %v", got["journal_type"])
	}
	if got["minimum_free_fraction"] != 0.07 {
		t.Errorf("expected minimum_free_fraction 0.07, got %v", got["minimum_free_fraction"])
	}
}

func TestSaveConfigToFileEmptyPath(t *testing.T) {
	if err := SaveConfigToFile(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestSavedConfigRoundTrip(t *testing.T) {
	resetConfigTestState()
	t.Cleanup(resetConfigTestState)

	AppConfig = Config{
		Host:                   "192.168.1.5",
		Port:                   9999,
		JournalPath:            "/var/lib/memoryd/journal",
		JournalType:            "sqlite",
		JournalRetention:       24 * time.Hour,
		SampleInterval:         2 * time.Second,
		LowMemoryThreshold:     0.15,
		LowMemoryCheckInterval: 10 * time.Second,
		MinimumFreeFraction:    0.08,
		RateLimitRPS:           5.0,
		RateLimitBurst:         10,
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := SaveConfigToFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A written file must read back to the same effective config.
	viper.Reset()
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("failed to read saved config: %v", err)
	}
	InitConfig()

	if AppConfig.Host != "192.168.1.5" {
		t.Errorf("expected host '192.168.1.5', got %q", AppConfig.Host)
	}
	if AppConfig.Port != 9999 {
		t.Errorf("expected port 9999, got %d", AppConfig.Port)
	}
	if AppConfig.JournalType != "sqlite" {
		t.Errorf("expected journal_type 'sqlite', got %q", AppConfig.JournalType)
	}
	if AppConfig.JournalRetention != 24*time.Hour {
		t.Errorf("expected retention 24h, got %s", AppConfig.JournalRetention)
	}
	if AppConfig.SampleInterval != 2*time.Second {
		t.Errorf("expected sample interval 2s, got %s", AppConfig.SampleInterval)
	}
	if AppConfig.MinimumFreeFraction != 0.08 {
		t.Errorf("expected minimum free fraction 0.08, got %v", AppConfig.MinimumFreeFraction)
	}
	if AppConfig.RateLimitBurst != 10 {
		t.Errorf("expected rate limit burst 10, got %d", AppConfig.RateLimitBurst)
	}
}
