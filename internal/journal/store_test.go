// file: internal/journal/store_test.go
// version: 1.1.0
// guid: 65b23bac-29d5-4b0a-b3a1-52c28cb8b056

package journal

import (
	"os"
	"strings"
	"testing"

	ulid "github.com/oklog/ulid/v2"

	"github.com/djordjedjukic/ravendb/internal/memory"
	"github.com/djordjedjukic/ravendb/internal/sysinfo"
	"github.com/djordjedjukic/ravendb/internal/units"
)

func TestInitializeJournalSQLiteRequiresFlag(t *testing.T) {
	original := GlobalJournal
	defer func() { GlobalJournal = original }()

	err := InitializeJournal("sqlite", "/tmp/should-not-exist.db", false)
	if err == nil {
		t.Fatal("Expected error when SQLite is not enabled")
	}
	if !strings.Contains(err.Error(), "enable-sqlite3-i-know-the-risks") {
		t.Errorf("Error should mention the safety flag, got: %v", err)
	}
}

func TestInitializeJournalUnsupportedType(t *testing.T) {
	original := GlobalJournal
	defer func() { GlobalJournal = original }()

	err := InitializeJournal("cassandra", "/tmp/nope", false)
	if err == nil {
		t.Fatal("Expected error for unsupported journal type")
	}
	if !strings.Contains(err.Error(), "unsupported journal type") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestInitializeJournalPebbleDefault(t *testing.T) {
	original := GlobalJournal
	defer func() { GlobalJournal = original }()

	tmpdir := "/tmp/test_journal_" + ulid.Make().String()
	defer os.RemoveAll(tmpdir)

	// The empty type selects PebbleDB.
	if err := InitializeJournal("", tmpdir, false); err != nil {
		t.Fatalf("Failed to initialize default journal: %v", err)
	}
	if GlobalJournal == nil {
		t.Fatal("Expected GlobalJournal to be set")
	}
	if _, ok := GlobalJournal.(*PebbleStore); !ok {
		t.Errorf("Expected *PebbleStore, got %T", GlobalJournal)
	}
	if err := CloseJournal(); err != nil {
		t.Errorf("Failed to close journal: %v", err)
	}
}

func TestCloseJournalWithoutInit(t *testing.T) {
	original := GlobalJournal
	defer func() { GlobalJournal = original }()

	GlobalJournal = nil
	if err := CloseJournal(); err != nil {
		t.Errorf("CloseJournal on nil store should be a no-op, got: %v", err)
	}
}

func TestFromSnapshot(t *testing.T) {
	info := memory.MemoryInfo{
		MemoryFigures: sysinfo.MemoryFigures{
			AvailableMemory:        units.NewSize(2, units.Gigabytes),
			TotalPhysicalMemory:    units.NewSize(16, units.Gigabytes),
			TotalCommittableMemory: units.NewSize(24, units.Gigabytes),
			CurrentCommitCharge:    units.NewSize(12, units.Gigabytes),
		},
	}

	event := FromSnapshot(EventLowMemoryEnter, "below floor", info)

	if event.Type != EventLowMemoryEnter {
		t.Errorf("Expected type %s, got %s", EventLowMemoryEnter, event.Type)
	}
	if event.Details != "below floor" {
		t.Errorf("Details mismatch: %q", event.Details)
	}
	if event.Available != units.NewSize(2, units.Gigabytes) {
		t.Errorf("Available mismatch: %v", event.Available)
	}
	if event.TotalPhysical != units.NewSize(16, units.Gigabytes) {
		t.Errorf("TotalPhysical mismatch: %v", event.TotalPhysical)
	}
	if event.Committable != units.NewSize(24, units.Gigabytes) {
		t.Errorf("Committable mismatch: %v", event.Committable)
	}
	if event.CommitCharge != units.NewSize(12, units.Gigabytes) {
		t.Errorf("CommitCharge mismatch: %v", event.CommitCharge)
	}
	if event.ID != "" {
		t.Error("FromSnapshot should leave ID assignment to the store")
	}
}
