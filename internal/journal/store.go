// file: internal/journal/store.go
// version: 1.3.0
// guid: 841fb59f-d276-4c5d-960f-c0f2aa1aa1e4

package journal

import (
	"crypto/rand"
	"fmt"
	"time"

	ulid "github.com/oklog/ulid/v2"

	"github.com/djordjedjukic/ravendb/internal/memory"
	"github.com/djordjedjukic/ravendb/internal/units"
)

// Event types recorded by the journal.
const (
	EventMonitorStart   = "monitor.start"
	EventProbeFailure   = "probe.failure"
	EventGuardRejected  = "guard.rejected"
	EventLowMemoryEnter = "lowmem.enter"
	EventLowMemoryLeave = "lowmem.leave"
	EventOOMKill        = "oomkill.observed"
)

// Event is one journal entry. The ID is a ULID, so lexicographic order
// over IDs is chronological order over events.
type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Time    time.Time `json:"time"`
	Details string    `json:"details,omitempty"`

	// Memory figures captured at event time.
	Available     units.Size `json:"available_bytes"`
	TotalPhysical units.Size `json:"total_physical_bytes"`
	CommitCharge  units.Size `json:"commit_charge_bytes"`
	Committable   units.Size `json:"committable_bytes"`
}

// ListOptions filters List queries. Zero values mean "no filter".
type ListOptions struct {
	Type  string
	Since time.Time
	Limit int
}

// Stats summarizes the journal contents.
type Stats struct {
	Total  int            `json:"total"`
	ByType map[string]int `json:"by_type"`
	Oldest *time.Time     `json:"oldest,omitempty"`
	Newest *time.Time     `json:"newest,omitempty"`
}

// Store defines the interface for journal persistence
// This abstraction allows us to support both PebbleDB (default) and SQLite3 (opt-in)
type Store interface {
	// Append persists the event, assigning ID and Time when empty, and
	// returns the stored event.
	Append(event *Event) (*Event, error)
	// List returns events newest first.
	List(opts ListOptions) ([]Event, error)
	// Stats summarizes the stored events.
	Stats() (*Stats, error)
	// Prune deletes events older than the cutoff, returning how many.
	Prune(olderThan time.Time) (int, error)
	// Reset drops all events.
	Reset() error
	Close() error
}

// FromSnapshot builds an event carrying the snapshot's headline figures.
func FromSnapshot(eventType, details string, info memory.MemoryInfo) *Event {
	return &Event{
		Type:          eventType,
		Details:       details,
		Available:     info.AvailableMemory,
		TotalPhysical: info.TotalPhysicalMemory,
		CommitCharge:  info.CurrentCommitCharge,
		Committable:   info.TotalCommittableMemory,
	}
}

func newULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Global journal instance
var GlobalJournal Store

// InitializeJournal initializes the journal store based on configuration
func InitializeJournal(journalType, path string, enableSQLite bool) error {
	var err error

	switch journalType {
	case "sqlite", "sqlite3":
		if !enableSQLite {
			return fmt.Errorf("SQLite3 is not enabled. To use SQLite3, you must explicitly enable it with --enable-sqlite3-i-know-the-risks or set 'enable_sqlite3_i_know_the_risks: true' in your config file. PebbleDB is the recommended journal store for production use")
		}
		GlobalJournal, err = NewSQLiteStore(path)
		if err != nil {
			return fmt.Errorf("failed to initialize SQLite journal: %w", err)
		}
	case "pebble", "":
		// PebbleDB is the default
		GlobalJournal, err = NewPebbleStore(path)
		if err != nil {
			return fmt.Errorf("failed to initialize PebbleDB journal: %w", err)
		}
	default:
		return fmt.Errorf("unsupported journal type: %s (supported: pebble, sqlite)", journalType)
	}

	return nil
}

// CloseJournal closes the global journal
func CloseJournal() error {
	if GlobalJournal != nil {
		return GlobalJournal.Close()
	}
	return nil
}
