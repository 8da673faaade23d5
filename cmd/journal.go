// file: cmd/journal.go
// version: 2.0.0
// guid: c8f6a0d4-2a8b-48cf-9d08-02cc9915d9fc

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/pebble/v2"
	"github.com/spf13/cobra"

	"github.com/djordjedjukic/ravendb/internal/config"
	"github.com/djordjedjukic/ravendb/internal/journal"
)

var (
	journalCmd = &cobra.Command{
		Use:   "journal",
		Short: "Inspect and maintain the event journal",
		Long:  "Utilities for listing, summarizing and pruning recorded memory events.",
	}

	journalListCmd = &cobra.Command{
		Use:   "list",
		Short: "List recorded events, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			eventType, _ := cmd.Flags().GetString("type")
			since, _ := cmd.Flags().GetDuration("since")
			raw, _ := cmd.Flags().GetBool("raw")
			prefix, _ := cmd.Flags().GetString("prefix")

			if raw {
				if config.AppConfig.JournalType != "pebble" {
					return fmt.Errorf("raw inspection is only available for Pebble journals")
				}
				return runRawJournalDump(limit, prefix)
			}
			return runJournalList(limit, eventType, since)
		},
	}

	journalStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Summarize the journal by event type",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournalStats()
		},
	}

	journalPruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Delete events older than a retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			olderThan, _ := cmd.Flags().GetDuration("older-than")
			force, _ := cmd.Flags().GetBool("yes")
			return runJournalPrune(olderThan, force)
		},
	}
)

func init() {
	journalListCmd.Flags().Int("limit", 20, "Number of events to display")
	journalListCmd.Flags().String("type", "", "Only show events of this type")
	journalListCmd.Flags().Duration("since", 0, "Only show events newer than this age (e.g. 24h)")
	journalListCmd.Flags().String("prefix", "event:", "Key prefix to inspect when --raw is set")
	journalListCmd.Flags().Bool("raw", false, "Show raw Pebble key/value data (Pebble only)")

	journalPruneCmd.Flags().Duration("older-than", 168*time.Hour, "Delete events older than this")
	journalPruneCmd.Flags().Bool("yes", false, "Skip confirmation prompt")

	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalStatsCmd)
	journalCmd.AddCommand(journalPruneCmd)

	rootCmd.AddCommand(journalCmd)
}

func ensureJournalStore() (func(), error) {
	if err := initializeJournal(
		config.AppConfig.JournalType,
		config.AppConfig.JournalPath,
		config.AppConfig.EnableSQLite,
	); err != nil {
		return nil, fmt.Errorf("failed to initialize journal: %w", err)
	}

	cleanup := func() {
		closeJournal()
	}
	return cleanup, nil
}

func runJournalList(limit int, eventType string, since time.Duration) error {
	if limit <= 0 {
		return errors.New("limit must be positive")
	}

	closer, err := ensureJournalStore()
	if err != nil {
		return err
	}
	defer closer()

	opts := journal.ListOptions{
		Type:  eventType,
		Limit: limit,
	}
	if since > 0 {
		opts.Since = time.Now().Add(-since)
	}

	events, err := journal.GlobalJournal.List(opts)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}
	if len(events) == 0 {
		fmt.Println("No events found.")
		return nil
	}

	for i, ev := range events {
		fmt.Printf("%2d. [%s] %s\n", i+1, ev.Time.Format(time.RFC3339), ev.Type)
		fmt.Printf("    ID: %s\n", ev.ID)
		if ev.Details != "" {
			fmt.Printf("    Details: %s\n", ev.Details)
		}
		fmt.Printf("    Available: %s  Commit: %s of %s\n", ev.Available, ev.CommitCharge, ev.Committable)
		fmt.Println("---")
	}

	return nil
}

func runJournalStats() error {
	closer, err := ensureJournalStore()
	if err != nil {
		return err
	}
	defer closer()

	stats, err := journal.GlobalJournal.Stats()
	if err != nil {
		return fmt.Errorf("failed to read journal stats: %w", err)
	}

	fmt.Printf("Journal: %s (%s)\n", config.AppConfig.JournalPath, config.AppConfig.JournalType)
	fmt.Printf("Total events: %d\n", stats.Total)
	if stats.Oldest != nil {
		fmt.Printf("Oldest: %s\n", stats.Oldest.Format(time.RFC3339))
	}
	if stats.Newest != nil {
		fmt.Printf("Newest: %s\n", stats.Newest.Format(time.RFC3339))
	}

	if len(stats.ByType) > 0 {
		types := make([]string, 0, len(stats.ByType))
		for t := range stats.ByType {
			types = append(types, t)
		}
		sort.Strings(types)

		fmt.Println("By type:")
		for _, t := range types {
			fmt.Printf("  %-20s %d\n", t, stats.ByType[t])
		}
	}

	return nil
}

func runJournalPrune(olderThan time.Duration, force bool) error {
	if olderThan <= 0 {
		return errors.New("older-than must be positive")
	}

	closer, err := ensureJournalStore()
	if err != nil {
		return err
	}
	defer closer()

	cutoff := time.Now().Add(-olderThan)
	fmt.Printf("Pruning events recorded before %s\n", cutoff.Format(time.RFC3339))

	if !force {
		confirmed, err := promptYesNo(fmt.Sprintf("Delete events older than %s", olderThan))
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Aborted. No events deleted.")
			return nil
		}
	}

	pruned, err := journal.GlobalJournal.Prune(cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune journal: %w", err)
	}

	fmt.Printf("Pruned %d events.\n", pruned)
	return nil
}

func runRawJournalDump(limit int, prefix string) error {
	if limit <= 0 {
		return errors.New("limit must be positive")
	}

	db, err := pebble.Open(config.AppConfig.JournalPath, &pebble.Options{
		FormatMajorVersion: pebble.FormatNewest,
	})
	if err != nil {
		return fmt.Errorf("failed to open Pebble journal: %w", err)
	}
	defer db.Close()

	iterOpts := &pebble.IterOptions{}
	if prefix != "" {
		iterOpts.LowerBound = []byte(prefix)
		iterOpts.UpperBound = append([]byte(prefix), 0xFF)
	}

	iter, err := db.NewIter(iterOpts)
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	count := 0
	ok := iter.First()
	if prefix != "" {
		ok = iter.SeekGE([]byte(prefix))
	}

	for ; ok && iter.Valid(); ok = iter.Next() {
		fmt.Printf("Key: %s\n", string(iter.Key()))
		val := iter.Value()
		fmt.Printf("Value length: %d bytes\n", len(val))
		preview := truncateString(string(val), 500)
		fmt.Printf("Value preview: %s\n", preview)
		fmt.Println("---")

		count++
		if count >= limit {
			break
		}
	}

	if err := iter.Error(); err != nil {
		return fmt.Errorf("iterator error: %w", err)
	}

	if count == 0 {
		fmt.Println("No keys matched the requested prefix.")
	}

	return nil
}

func promptYesNo(action string) (bool, error) {
	fmt.Printf("%s? Type 'yes' to confirm: ", action)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "yes", nil
}

func truncateString(in string, max int) string {
	if len(in) <= max {
		return in
	}
	return in[:max] + "..."
}
