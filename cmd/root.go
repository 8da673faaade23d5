// file: cmd/root.go
// version: 2.0.0
// guid: 6a7b8c9d-0e1f-2a3b-4c5d-6e7f8a9b0c1d

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/djordjedjukic/ravendb/internal/config"
	"github.com/djordjedjukic/ravendb/internal/journal"
	"github.com/djordjedjukic/ravendb/internal/memory"
	"github.com/djordjedjukic/ravendb/internal/realtime"
	"github.com/djordjedjukic/ravendb/internal/server"
)

var cfgFile string
var journalPath string
var journalType string
var enableSQLite bool

// Indirections so command tests can stub out the heavy pieces.
var (
	initializeJournal = journal.InitializeJournal
	closeJournal      = journal.CloseJournal
	newServer         = server.NewServer
	startServer       = (*server.Server).Start
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "memoryd",
	Short: "Monitor memory pressure and guard allocations against early OOM",
	Long: `Memoryd watches system memory, keeps a journal of pressure events,
and answers allocation checks so callers can fail gracefully instead of
being killed by the kernel out-of-memory handler.

Run "memoryd serve" for the long-running monitor with its HTTP API, or
use the one-shot subcommands to inspect a machine from the terminal.`,
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the memory monitor with its HTTP API",
	Long: `Start the long-running monitor: samples memory on an interval, fires
low-memory notifications, records events to the journal, and serves the
REST API, metrics and live event stream.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Initialize journal
		if err := initializeJournal(config.AppConfig.JournalType, config.AppConfig.JournalPath, config.AppConfig.EnableSQLite); err != nil {
			return fmt.Errorf("failed to initialize journal: %w", err)
		}
		defer closeJournal()

		fmt.Printf("Using journal: %s (%s)\n", config.AppConfig.JournalPath, config.AppConfig.JournalType)

		// Initialize real-time event hub
		realtime.InitializeEventHub()
		fmt.Println("Real-time event hub initialized")

		monitor := memory.NewMonitor()
		guard := memory.NewGuard(monitor, true)
		if guard.Enabled() {
			fmt.Println("Early out-of-memory guard enabled")
		} else {
			fmt.Println("Early out-of-memory guard disabled")
		}

		notifier := memory.NewNotifier(monitor, config.AppConfig.LowMemoryThreshold, config.AppConfig.LowMemoryCheckInterval)

		srv := newServer(server.Dependencies{
			Monitor:    monitor,
			Guard:      guard,
			Accountant: memory.NewAccountant(),
			Notifier:   notifier,
		})

		cfg := server.GetDefaultServerConfig()
		cfg.Host = config.AppConfig.Host
		cfg.Port = config.AppConfig.Port

		// Override with command line flags if provided
		if cmd.Flags().Changed("host") {
			cfg.Host = cmd.Flag("host").Value.String()
		}
		if cmd.Flags().Changed("port") {
			if p, err := cmd.Flags().GetInt("port"); err == nil {
				cfg.Port = p
			}
		}
		if rt := cmd.Flag("read-timeout").Value.String(); rt != "" {
			if d, err := time.ParseDuration(rt); err == nil {
				cfg.ReadTimeout = d
			}
		}
		if wt := cmd.Flag("write-timeout").Value.String(); wt != "" {
			if d, err := time.ParseDuration(wt); err == nil {
				cfg.WriteTimeout = d
			}
		}
		if it := cmd.Flag("idle-timeout").Value.String(); it != "" {
			if d, err := time.ParseDuration(it); err == nil {
				cfg.IdleTimeout = d
			}
		}

		fmt.Printf("Starting memoryd on %s:%d\n", cfg.Host, cfg.Port)
		return startServer(srv, cfg)
	},
}

// snapshotCmd represents the snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Print a one-shot snapshot of system memory figures",
	Long: `Read the current memory figures from the operating system and print
them once. Useful for scripts and quick inspection without the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		monitor := memory.NewMonitor()
		info := monitor.GetMemoryInfo()

		return printSnapshot(os.Stdout, info, format, monitor.Failed())
	},
}

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether an allocation would be allowed right now",
	Long: `Run the pre-allocation guard once against live memory figures. Exits
non-zero when the requested free fraction cannot be preserved, so the
command works as a gate in scripts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fraction, _ := cmd.Flags().GetFloat64("fraction")
		if fraction == 0 {
			fraction = config.AppConfig.MinimumFreeFraction
		}
		if fraction <= 0 || fraction >= 1 {
			return fmt.Errorf("fraction must be between 0 and 1 exclusive, got %v", fraction)
		}

		monitor := memory.NewMonitor()
		guard := memory.NewGuard(monitor, true)
		if !guard.Enabled() {
			fmt.Println("Guard is disabled on this platform; allocation would be allowed")
			return nil
		}

		if err := guard.CheckBeforeAllocation(fraction); err != nil {
			return err
		}

		info := monitor.GetMemoryInfo()
		fmt.Printf("Allocation allowed (keeping %.1f%% free)\n", fraction*100)
		fmt.Printf("- Available:     %s\n", info.AvailableMemory)
		fmt.Printf("- Commit charge: %s of %s\n", info.CurrentCommitCharge, info.TotalCommittableMemory)
		return nil
	},
}

// memtestCmd represents the memtest command
var memtestCmd = &cobra.Command{
	Use:   "memtest",
	Short: "Allocate memory in guarded chunks",
	Long: `Allocate and touch memory chunk by chunk, running the pre-allocation
guard before each chunk. Shows how far a host can be pushed before the
guard starts rejecting, without risking a kernel OOM kill.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sizeMB, _ := cmd.Flags().GetInt("size")
		chunkMB, _ := cmd.Flags().GetInt("chunk")
		fraction, _ := cmd.Flags().GetFloat64("fraction")
		hold, _ := cmd.Flags().GetDuration("hold")

		if fraction == 0 {
			fraction = config.AppConfig.MinimumFreeFraction
		}
		return runMemtest(sizeMB, chunkMB, fraction, hold)
	},
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or initialize the configuration file",
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		return config.WriteEffective(os.Stdout)
	},
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to a config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			p, err := config.DefaultConfigFilePath()
			if err != nil {
				return fmt.Errorf("failed to resolve config path: %w", err)
			}
			path = p
		}
		if err := config.SaveConfigToFile(path); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
		fmt.Printf("Wrote configuration to %s\n", path)
		return nil
	},
}

// snapshotDocument flattens memory figures into plain fields so both the
// JSON and YAML encoders can render them.
type snapshotDocument struct {
	Available          string           `json:"available" yaml:"available"`
	AvailableBytes     int64            `json:"available_bytes" yaml:"available_bytes"`
	TotalPhysical      string           `json:"total_physical" yaml:"total_physical"`
	TotalPhysicalBytes int64            `json:"total_physical_bytes" yaml:"total_physical_bytes"`
	Installed          string           `json:"installed" yaml:"installed"`
	InstalledBytes     int64            `json:"installed_bytes" yaml:"installed_bytes"`
	Committable        string           `json:"committable" yaml:"committable"`
	CommittableBytes   int64            `json:"committable_bytes" yaml:"committable_bytes"`
	CommitCharge       string           `json:"commit_charge" yaml:"commit_charge"`
	CommitChargeBytes  int64            `json:"commit_charge_bytes" yaml:"commit_charge_bytes"`
	Records            extremesDocument `json:"memory_usage_records" yaml:"memory_usage_records"`
	Fallback           bool             `json:"fallback" yaml:"fallback"`
	Timestamp          string           `json:"timestamp" yaml:"timestamp"`
}

// extremesDocument is the printable form of the high/low usage records.
type extremesDocument struct {
	HighOneMinute   string `json:"high_one_minute" yaml:"high_one_minute"`
	HighFiveMinutes string `json:"high_five_minutes" yaml:"high_five_minutes"`
	HighSinceStart  string `json:"high_since_startup" yaml:"high_since_startup"`
	LowOneMinute    string `json:"low_one_minute" yaml:"low_one_minute"`
	LowFiveMinutes  string `json:"low_five_minutes" yaml:"low_five_minutes"`
	LowSinceStart   string `json:"low_since_startup" yaml:"low_since_startup"`
}

func printSnapshot(w io.Writer, info memory.MemoryInfo, format string, fallback bool) error {
	doc := snapshotDocument{
		Available:          info.AvailableMemory.String(),
		AvailableBytes:     info.AvailableMemory.Bytes(),
		TotalPhysical:      info.TotalPhysicalMemory.String(),
		TotalPhysicalBytes: info.TotalPhysicalMemory.Bytes(),
		Installed:          info.InstalledMemory.String(),
		InstalledBytes:     info.InstalledMemory.Bytes(),
		Committable:        info.TotalCommittableMemory.String(),
		CommittableBytes:   info.TotalCommittableMemory.Bytes(),
		CommitCharge:       info.CurrentCommitCharge.String(),
		CommitChargeBytes:  info.CurrentCommitCharge.Bytes(),
		Records: extremesDocument{
			HighOneMinute:   info.MemoryUsageRecords.High.LastOneMinute.String(),
			HighFiveMinutes: info.MemoryUsageRecords.High.LastFiveMinutes.String(),
			HighSinceStart:  info.MemoryUsageRecords.High.SinceStartup.String(),
			LowOneMinute:    info.MemoryUsageRecords.Low.LastOneMinute.String(),
			LowFiveMinutes:  info.MemoryUsageRecords.Low.LastFiveMinutes.String(),
			LowSinceStart:   info.MemoryUsageRecords.Low.SinceStartup.String(),
		},
		Fallback:  fallback,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml":
		out, err := yaml.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to render snapshot: %w", err)
		}
		_, err = w.Write(out)
		return err
	case "text":
		fmt.Fprintf(w, "Available:      %s\n", doc.Available)
		fmt.Fprintf(w, "Total physical: %s\n", doc.TotalPhysical)
		fmt.Fprintf(w, "Installed:      %s\n", doc.Installed)
		fmt.Fprintf(w, "Committable:    %s\n", doc.Committable)
		fmt.Fprintf(w, "Commit charge:  %s\n", doc.CommitCharge)
		fmt.Fprintf(w, "High (1m / 5m / startup): %s / %s / %s\n",
			doc.Records.HighOneMinute, doc.Records.HighFiveMinutes, doc.Records.HighSinceStart)
		fmt.Fprintf(w, "Low  (1m / 5m / startup): %s / %s / %s\n",
			doc.Records.LowOneMinute, doc.Records.LowFiveMinutes, doc.Records.LowSinceStart)
		if fallback {
			fmt.Fprintln(w, "WARNING: live probe failed, figures are a conservative fallback")
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

func runMemtest(sizeMB, chunkMB int, fraction float64, hold time.Duration) error {
	if sizeMB <= 0 {
		return fmt.Errorf("size must be positive, got %d MB", sizeMB)
	}
	if chunkMB <= 0 || chunkMB > sizeMB {
		chunkMB = sizeMB
	}
	if fraction <= 0 || fraction >= 1 {
		return fmt.Errorf("fraction must be between 0 and 1 exclusive, got %v", fraction)
	}

	monitor := memory.NewMonitor()
	guard := memory.NewGuard(monitor, true)
	accountant := memory.NewAccountant()
	counter := accountant.RegisterCounter("memtest")
	defer counter.Unregister()

	chunks := (sizeMB + chunkMB - 1) / chunkMB
	fmt.Printf("Allocating %d MB in %d chunk(s) of up to %d MB\n", sizeMB, chunks, chunkMB)

	bar := progressbar.Default(int64(chunks))
	held := make([][]byte, 0, chunks)
	remaining := sizeMB

	for remaining > 0 {
		mb := chunkMB
		if mb > remaining {
			mb = remaining
		}

		if err := guard.CheckBeforeAllocation(fraction); err != nil {
			fmt.Println()
			return fmt.Errorf("stopped after %d MB: %w", sizeMB-remaining, err)
		}

		buf := make([]byte, mb*1024*1024)
		// Touch one byte per page so the allocation becomes resident
		for i := 0; i < len(buf); i += 4096 {
			buf[i] = 1
		}
		held = append(held, buf)
		counter.Add(int64(len(buf)))
		remaining -= mb
		bar.Add(1)
	}

	usage := accountant.Usage()
	fmt.Printf("Held %d MB (working set %s, unmanaged %s)\n", sizeMB, usage.WorkingSet, usage.UnmanagedAllocations)

	if hold > 0 {
		fmt.Printf("Holding allocation for %s...\n", hold)
		time.Sleep(hold)
	}

	runtime.KeepAlive(held)
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.memoryd.yaml)")
	rootCmd.PersistentFlags().StringVar(&journalPath, "journal", "./data/journal", "path to the event journal")
	rootCmd.PersistentFlags().StringVar(&journalType, "journal-type", "pebble", "journal type: pebble (default) or sqlite")
	rootCmd.PersistentFlags().BoolVar(&enableSQLite, "enable-sqlite3-i-know-the-risks", false, "enable SQLite3 journal (WARNING: cross-compilation issues, PebbleDB recommended)")

	viper.BindPFlag("journal_path", rootCmd.PersistentFlags().Lookup("journal"))
	viper.BindPFlag("journal_type", rootCmd.PersistentFlags().Lookup("journal-type"))
	viper.BindPFlag("enable_sqlite3_i_know_the_risks", rootCmd.PersistentFlags().Lookup("enable-sqlite3-i-know-the-risks"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(memtestCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	// Add serve command specific flags
	serveCmd.Flags().Int("port", 8080, "port to run the web server on")
	serveCmd.Flags().String("host", "", "host to bind the web server to (default from config)")
	serveCmd.Flags().String("read-timeout", "15s", "read timeout (e.g. 15s, 1m)")
	serveCmd.Flags().String("write-timeout", "0s", "write timeout (0 keeps event streams open)")
	serveCmd.Flags().String("idle-timeout", "60s", "idle timeout (e.g. 60s, 2m)")

	snapshotCmd.Flags().String("format", "text", "output format: text, json or yaml")

	checkCmd.Flags().Float64("fraction", 0, "free-memory fraction to require (default from config)")

	memtestCmd.Flags().Int("size", 256, "total amount to allocate in MB")
	memtestCmd.Flags().Int("chunk", 16, "chunk size in MB")
	memtestCmd.Flags().Float64("fraction", 0, "free-memory fraction to require before each chunk")
	memtestCmd.Flags().Duration("hold", 0, "how long to hold the allocation before exiting")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".memoryd")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}

	// Ensure the journal directory exists
	if journalPath != "" {
		dir := filepath.Dir(journalPath)
		if dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				fmt.Printf("Error creating journal directory: %v\n", err)
			}
		}
	}

	config.InitConfig()
}
