// file: internal/journal/pebble_store.go
// version: 1.4.0
// guid: d1298b9c-a0c3-4ade-af23-64632ad2d19a

package journal

import (
	"encoding/json"
	"fmt"
	"time"

	pebble "github.com/cockroachdb/pebble/v2"
)

// PebbleStore implements the Store interface using PebbleDB
//
// Key schema:
//
//	event:<ulid>        -> Event JSON
//	type:<type>:<ulid>  -> <ulid> (secondary index for filtered listing)
//
// ULIDs sort lexicographically in append order, so a forward scan over
// the event: prefix is oldest-first and a backward scan is newest-first.
type PebbleStore struct {
	db *pebble.DB
}

const (
	eventKeyPrefix = "event:"
	typeKeyPrefix  = "type:"
)

// NewPebbleStore creates a new PebbleDB-backed journal at the given path
func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{
		FormatMajorVersion: pebble.FormatNewest,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open PebbleDB at %s: %w", path, err)
	}
	return &PebbleStore{db: db}, nil
}

func eventKey(id string) []byte {
	return []byte(eventKeyPrefix + id)
}

func typeKey(eventType, id string) []byte {
	return []byte(typeKeyPrefix + eventType + ":" + id)
}

// prefixUpperBound returns the exclusive upper bound for a prefix scan.
func prefixUpperBound(prefix string) []byte {
	return append([]byte(prefix), 0xFF)
}

// Append persists the event, assigning ID and Time when empty.
func (p *PebbleStore) Append(event *Event) (*Event, error) {
	if event.ID == "" {
		id, err := newULID()
		if err != nil {
			return nil, fmt.Errorf("failed to generate event ID: %w", err)
		}
		event.ID = id
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	batch := p.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(eventKey(event.ID), data, nil); err != nil {
		return nil, err
	}
	if err := batch.Set(typeKey(event.Type, event.ID), []byte(event.ID), nil); err != nil {
		return nil, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return nil, fmt.Errorf("failed to commit event: %w", err)
	}
	return event, nil
}

// getEvent loads and unmarshals a single event by ID.
func (p *PebbleStore) getEvent(id string) (*Event, error) {
	value, closer, err := p.db.Get(eventKey(id))
	if err == pebble.ErrNotFound {
		return nil, fmt.Errorf("event not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	data := make([]byte, len(value))
	copy(data, value)
	closer.Close()

	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event %s: %w", id, err)
	}
	return &event, nil
}

// List returns events newest first, honoring the type, since and limit
// filters in opts.
func (p *PebbleStore) List(opts ListOptions) ([]Event, error) {
	if opts.Type != "" {
		return p.listByType(opts)
	}

	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(eventKeyPrefix),
		UpperBound: prefixUpperBound(eventKeyPrefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var events []Event
	for iter.Last(); iter.Valid(); iter.Prev() {
		var event Event
		if err := json.Unmarshal(iter.Value(), &event); err != nil {
			continue
		}
		if !opts.Since.IsZero() && event.Time.Before(opts.Since) {
			continue
		}
		events = append(events, event)
		if opts.Limit > 0 && len(events) >= opts.Limit {
			break
		}
	}
	return events, nil
}

func (p *PebbleStore) listByType(opts ListOptions) ([]Event, error) {
	prefix := typeKeyPrefix + opts.Type + ":"
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var events []Event
	for iter.Last(); iter.Valid(); iter.Prev() {
		event, err := p.getEvent(string(iter.Value()))
		if err != nil {
			continue
		}
		if !opts.Since.IsZero() && event.Time.Before(opts.Since) {
			continue
		}
		events = append(events, *event)
		if opts.Limit > 0 && len(events) >= opts.Limit {
			break
		}
	}
	return events, nil
}

// Stats summarizes the stored events.
func (p *PebbleStore) Stats() (*Stats, error) {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(eventKeyPrefix),
		UpperBound: prefixUpperBound(eventKeyPrefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	stats := &Stats{ByType: make(map[string]int)}
	for iter.First(); iter.Valid(); iter.Next() {
		var event Event
		if err := json.Unmarshal(iter.Value(), &event); err != nil {
			continue
		}
		stats.Total++
		stats.ByType[event.Type]++
		t := event.Time
		if stats.Oldest == nil {
			stats.Oldest = &t
		}
		newest := t
		stats.Newest = &newest
	}
	return stats, nil
}

// Prune deletes events older than the cutoff, returning how many.
func (p *PebbleStore) Prune(olderThan time.Time) (int, error) {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(eventKeyPrefix),
		UpperBound: prefixUpperBound(eventKeyPrefix),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	batch := p.db.NewBatch()
	defer batch.Close()

	pruned := 0
	for iter.First(); iter.Valid(); iter.Next() {
		var event Event
		if err := json.Unmarshal(iter.Value(), &event); err != nil {
			continue
		}
		if !event.Time.Before(olderThan) {
			continue
		}
		if err := batch.Delete(eventKey(event.ID), nil); err != nil {
			return 0, err
		}
		if err := batch.Delete(typeKey(event.Type, event.ID), nil); err != nil {
			return 0, err
		}
		pruned++
	}
	if pruned == 0 {
		return 0, nil
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	return pruned, nil
}

// Reset drops all events and their type index entries.
func (p *PebbleStore) Reset() error {
	batch := p.db.NewBatch()
	defer batch.Close()

	for _, prefix := range []string{eventKeyPrefix, typeKeyPrefix} {
		iter, err := p.db.NewIter(&pebble.IterOptions{
			LowerBound: []byte(prefix),
			UpperBound: prefixUpperBound(prefix),
		})
		if err != nil {
			return err
		}
		for iter.First(); iter.Valid(); iter.Next() {
			key := make([]byte, len(iter.Key()))
			copy(key, iter.Key())
			if err := batch.Delete(key, nil); err != nil {
				iter.Close()
				return err
			}
		}
		if err := iter.Close(); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

// Close closes the underlying PebbleDB instance
func (p *PebbleStore) Close() error {
	return p.db.Close()
}
