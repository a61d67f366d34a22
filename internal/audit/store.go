// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eduanalytics/auditus/internal/metrics"
)

// DefaultCapacity bounds the store when no explicit capacity is configured.
const DefaultCapacity = 10000

// Sink receives a copy of every accepted event after it has been stored.
// Consume is called outside the store lock and must not block; slow sinks
// are expected to buffer and drop internally (see the forward package).
type Sink interface {
	Consume(e Event)
}

// Store is the bounded, append-ordered, in-memory audit event collection.
// Events are held most-recent-first. A single lock guards the collection:
// Append holds the write lock for insert+evict, readers copy a snapshot
// under the read lock and release before scanning.
type Store struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
	sinks    []Sink

	// now is the ingestion clock, swappable in tests.
	now func() time.Time
}

// NewStore creates a store bounded to capacity events. Non-positive values
// fall back to DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		events:   make([]Event, 0, capacity),
		capacity: capacity,
		now:      time.Now,
	}
}

// AddSink registers a fan-out target for accepted events. Sinks should be
// registered before producers start appending.
func (s *Store) AddSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// Append validates e, assigns its ID and ingestion timestamp, and inserts it
// at the front of the collection. If the store exceeds its capacity the oldest
// events are evicted from the tail. Eviction raises no error: bounded memory
// is chosen over completeness, and callers must not treat a successful append
// as a durability guarantee. Append fails only with ErrInvalidEvent, in which
// case nothing is stored.
//
// The event's ID and Timestamp fields are written back to e so callers can
// reference the stored record.
func (s *Store) Append(e *Event) error {
	if err := e.Validate(); err != nil {
		metrics.EventsRejectedTotal.Inc()
		return err
	}

	s.mu.Lock()
	ts := s.now().UTC()
	e.ID = newEventID(ts)
	e.Timestamp = ts

	// Insert at the front, shifting in place to reuse the backing array.
	s.events = append(s.events, Event{})
	copy(s.events[1:], s.events)
	s.events[0] = *e

	evicted := 0
	if len(s.events) > s.capacity {
		evicted = len(s.events) - s.capacity
		s.events = s.events[:s.capacity]
	}
	size := len(s.events)
	sinks := s.sinks
	stored := s.events[0]
	s.mu.Unlock()

	metrics.RecordAppend(string(stored.Category), string(stored.Severity), size)
	metrics.RecordEviction(evicted)

	for _, sink := range sinks {
		sink.Consume(stored)
	}
	return nil
}

// Len returns the number of events currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Capacity returns the configured bound.
func (s *Store) Capacity() int {
	return s.capacity
}

// Snapshot returns a copy of the current contents, most-recent-first. The
// Details maps are shared with the store and must be treated as read-only.
func (s *Store) Snapshot() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make([]Event, len(s.events))
	copy(snap, s.events)
	return snap
}

// Query evaluates every non-pagination predicate of f against a snapshot,
// returning the paginated slice and the total size of the full match set.
// Pagination never affects the total: an offset beyond the match set yields
// an empty slice with the correct total. An empty filter returns the whole
// snapshot, bounded only by the store's own capacity.
func (s *Store) Query(f Filter) ([]Event, int) {
	snap := s.Snapshot()

	matched := make([]Event, 0, len(snap))
	for i := range snap {
		if f.matches(&snap[i]) {
			matched = append(matched, snap[i])
		}
	}
	total := len(matched)
	return paginate(matched, f.Offset, f.Limit), total
}

// Prune removes events older than daysToKeep days and returns the number
// removed. This is the explicit retention operation behind the DELETE
// endpoint; it is the only way besides eviction that an event is destroyed.
func (s *Store) Prune(daysToKeep int) int {
	cutoff := s.now().UTC().Add(-time.Duration(daysToKeep) * 24 * time.Hour)

	s.mu.Lock()
	kept := s.events[:0]
	for i := range s.events {
		if s.events[i].Timestamp.After(cutoff) {
			kept = append(kept, s.events[i])
		}
	}
	removed := len(s.events) - len(kept)
	s.events = kept
	size := len(s.events)
	s.mu.Unlock()

	metrics.RecordPrune(removed, size)
	return removed
}

// paginate applies offset then limit to events, touching only the returned
// slice. Zero limit means unlimited.
func paginate(events []Event, offset, limit int) []Event {
	if offset > 0 {
		if offset >= len(events) {
			return []Event{}
		}
		events = events[offset:]
	}
	if limit > 0 && limit < len(events) {
		events = events[:limit]
	}
	return events
}

// newEventID returns an identifier unique within the store's lifetime. The
// embedded timestamp makes IDs distinguishable in logs but they are not
// orderable by value.
func newEventID(ts time.Time) string {
	return fmt.Sprintf("audit_%d_%s", ts.UnixMilli(), uuid.NewString()[:8])
}
