// file: internal/config/persistence.go
// version: 2.0.0
// guid: 9c8d7e6f-5a4b-3c2d-1e0f-9a8b7c6d5e4f

package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFilePath returns the config file location used when no
// --config flag is given: .memoryd.yaml in the user's home directory.
func DefaultConfigFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".memoryd.yaml"), nil
}

// effectiveSettings renders AppConfig under the same keys the config
// file and environment use, so a saved file reads back unchanged.
func effectiveSettings() map[string]any {
	settings := map[string]any{
		"host":                            AppConfig.Host,
		"port":                            AppConfig.Port,
		"journal_path":                    AppConfig.JournalPath,
		"journal_type":                    AppConfig.JournalType,
		"enable_sqlite3_i_know_the_risks": AppConfig.EnableSQLite,
		"journal_retention":               AppConfig.JournalRetention.String(),
		"sample_interval":                 AppConfig.SampleInterval.String(),
		"low_memory_threshold":            AppConfig.LowMemoryThreshold,
		"low_memory_check_interval":       AppConfig.LowMemoryCheckInterval.String(),
		"minimum_free_fraction":           AppConfig.MinimumFreeFraction,
		"rate_limit_rps":                  AppConfig.RateLimitRPS,
		"rate_limit_burst":                AppConfig.RateLimitBurst,
	}

	// Only write credentials when they are set
	if AppConfig.AuthUsername != "" {
		settings["auth_username"] = AppConfig.AuthUsername
	}
	if AppConfig.AuthPasswordHash != "" {
		settings["auth_password_hash"] = AppConfig.AuthPasswordHash
	}

	return settings
}

// WriteEffective prints the effective configuration as YAML.
func WriteEffective(w io.Writer) error {
	data, err := yaml.Marshal(effectiveSettings())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// SaveConfigToFile writes the effective configuration to a YAML file.
// Credentials may be present, so the file is written with restrictive
// permissions.
func SaveConfigToFile(path string) error {
	if path == "" {
		return fmt.Errorf("cannot determine config file path")
	}

	data, err := yaml.Marshal(effectiveSettings())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Printf("Configuration saved to file: %s", path)
	return nil
}
