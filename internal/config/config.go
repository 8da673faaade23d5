// file: internal/config/config.go
// version: 1.2.0
// guid: 193a2fc2-1cb7-40e8-93ff-03f7cbef65d8

package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Host string
	Port int

	// Journal storage
	JournalPath  string
	JournalType  string // "pebble" (default) or "sqlite"
	EnableSQLite bool   // Must be true to use SQLite (safety flag)
	// JournalRetention bounds how far back pruning keeps events.
	JournalRetention time.Duration

	// SampleInterval is how often the server samples the monitor for
	// metrics, history, and the event stream.
	SampleInterval time.Duration

	// LowMemoryThreshold is the fraction of physical memory under which
	// the low-memory state is entered.
	LowMemoryThreshold     float64
	LowMemoryCheckInterval time.Duration

	// MinimumFreeFraction is the default safety margin for the
	// pre-allocation check.
	MinimumFreeFraction float64

	// Optional HTTP basic auth for admin routes. The password is a
	// bcrypt hash, never plaintext.
	AuthUsername     string
	AuthPasswordHash string

	// Per-client rate limiting for the HTTP API.
	RateLimitRPS   float64
	RateLimitBurst int
}

var AppConfig Config

// InitConfig initializes the application configuration
func InitConfig() {
	// Set defaults
	viper.SetDefault("host", "0.0.0.0")
	viper.SetDefault("port", 8080)
	viper.SetDefault("journal_path", "./data/journal")
	viper.SetDefault("journal_type", "pebble")
	viper.SetDefault("enable_sqlite3_i_know_the_risks", false)
	viper.SetDefault("journal_retention", "168h")
	viper.SetDefault("sample_interval", "1s")
	viper.SetDefault("low_memory_threshold", 0.10)
	viper.SetDefault("low_memory_check_interval", "5s")
	viper.SetDefault("minimum_free_fraction", 0.05)
	viper.SetDefault("rate_limit_rps", 10.0)
	viper.SetDefault("rate_limit_burst", 20)

	AppConfig = Config{
		Host:                   viper.GetString("host"),
		Port:                   viper.GetInt("port"),
		JournalPath:            viper.GetString("journal_path"),
		JournalType:            viper.GetString("journal_type"),
		EnableSQLite:           viper.GetBool("enable_sqlite3_i_know_the_risks"),
		JournalRetention:       viper.GetDuration("journal_retention"),
		SampleInterval:         viper.GetDuration("sample_interval"),
		LowMemoryThreshold:     viper.GetFloat64("low_memory_threshold"),
		LowMemoryCheckInterval: viper.GetDuration("low_memory_check_interval"),
		MinimumFreeFraction:    viper.GetFloat64("minimum_free_fraction"),
		AuthUsername:           viper.GetString("auth_username"),
		AuthPasswordHash:       viper.GetString("auth_password_hash"),
		RateLimitRPS:           viper.GetFloat64("rate_limit_rps"),
		RateLimitBurst:         viper.GetInt("rate_limit_burst"),
	}

	// Normalize journal type
	if AppConfig.JournalType == "sqlite3" {
		AppConfig.JournalType = "sqlite"
	}
	if AppConfig.JournalType == "" {
		AppConfig.JournalType = "pebble"
	}

	// Clamp nonsensical fractions back to the defaults.
	if AppConfig.MinimumFreeFraction < 0 || AppConfig.MinimumFreeFraction >= 1 {
		AppConfig.MinimumFreeFraction = 0.05
	}
	if AppConfig.LowMemoryThreshold <= 0 || AppConfig.LowMemoryThreshold >= 1 {
		AppConfig.LowMemoryThreshold = 0.10
	}
}
