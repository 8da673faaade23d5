// file: internal/journal/mock.go
// version: 1.1.0
// guid: f4ee69a0-11ce-48ad-b595-f78c50320664

package journal

import (
	"sync"
	"time"
)

// MockStore is a simple mock implementation for testing consumers of the
// journal. When a Func field is nil the corresponding method falls back
// to an in-memory slice of events.
type MockStore struct {
	mu     sync.Mutex
	events []Event

	AppendFunc func(event *Event) (*Event, error)
	ListFunc   func(opts ListOptions) ([]Event, error)
	StatsFunc  func() (*Stats, error)
	PruneFunc  func(olderThan time.Time) (int, error)
	ResetFunc  func() error
	CloseFunc  func() error
}

// Appended returns a copy of the events recorded by the fallback Append.
func (m *MockStore) Appended() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MockStore) Append(event *Event) (*Event, error) {
	if m.AppendFunc != nil {
		return m.AppendFunc(event)
	}
	if event.ID == "" {
		id, err := newULID()
		if err != nil {
			return nil, err
		}
		event.ID = id
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	m.mu.Lock()
	m.events = append(m.events, *event)
	m.mu.Unlock()
	return event, nil
}

func (m *MockStore) List(opts ListOptions) ([]Event, error) {
	if m.ListFunc != nil {
		return m.ListFunc(opts)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var events []Event
	for i := len(m.events) - 1; i >= 0; i-- {
		event := m.events[i]
		if opts.Type != "" && event.Type != opts.Type {
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

func (m *MockStore) Stats() (*Stats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &Stats{ByType: make(map[string]int)}
	for i := range m.events {
		event := &m.events[i]
		stats.Total++
		stats.ByType[event.Type]++
		t := event.Time
		if stats.Oldest == nil || t.Before(*stats.Oldest) {
			oldest := t
			stats.Oldest = &oldest
		}
		if stats.Newest == nil || t.After(*stats.Newest) {
			newest := t
			stats.Newest = &newest
		}
	}
	return stats, nil
}

func (m *MockStore) Prune(olderThan time.Time) (int, error) {
	if m.PruneFunc != nil {
		return m.PruneFunc(olderThan)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	pruned := 0
	for _, event := range m.events {
		if event.Time.Before(olderThan) {
			pruned++
			continue
		}
		kept = append(kept, event)
	}
	m.events = kept
	return pruned, nil
}

func (m *MockStore) Reset() error {
	if m.ResetFunc != nil {
		return m.ResetFunc()
	}
	m.mu.Lock()
	m.events = nil
	m.mu.Unlock()
	return nil
}

func (m *MockStore) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
