// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

package audit

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock drives the store's ingestion timestamps in tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestStore(capacity int) (*Store, *fakeClock) {
	s := NewStore(capacity)
	clock := newFakeClock()
	s.now = clock.Now
	return s, clock
}

func validEvent(userID, action string) *Event {
	return &Event{
		Actor: Actor{
			UserID:    userID,
			UserEmail: userID + "@school.edu",
			UserRole:  "teacher",
		},
		Action:   action,
		Resource: "students",
		Severity: SeverityLow,
		Category: CategoryDataAccess,
		Success:  true,
	}
}

func TestStore_AppendAssignsIDAndTimestamp(t *testing.T) {
	s, clock := newTestStore(10)

	e := validEvent("alice", "read")
	if err := s.Append(e); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	if e.ID == "" {
		t.Error("expected append to assign an ID")
	}
	if !e.Timestamp.Equal(clock.Now().UTC()) {
		t.Errorf("expected ingestion timestamp %v, got %v", clock.Now().UTC(), e.Timestamp)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 event, got %d", s.Len())
	}
}

func TestStore_AppendRejectsIncompleteEvents(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Event)
	}{
		{"missing user id", func(e *Event) { e.Actor.UserID = "" }},
		{"missing user email", func(e *Event) { e.Actor.UserEmail = "" }},
		{"missing user role", func(e *Event) { e.Actor.UserRole = "" }},
		{"missing action", func(e *Event) { e.Action = "" }},
		{"missing resource", func(e *Event) { e.Resource = "" }},
		{"unknown category", func(e *Event) { e.Category = "telemetry" }},
		{"unknown severity", func(e *Event) { e.Severity = "urgent" }},
		{"empty category", func(e *Event) { e.Category = "" }},
		{"empty severity", func(e *Event) { e.Severity = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(10)
			e := validEvent("alice", "read")
			tt.mutate(e)

			err := s.Append(e)
			if !errors.Is(err, ErrInvalidEvent) {
				t.Fatalf("expected ErrInvalidEvent, got %v", err)
			}
			if s.Len() != 0 {
				t.Errorf("rejected event must not be stored, store has %d", s.Len())
			}
		})
	}
}

func TestStore_AppendAcceptsMissingOptionalFields(t *testing.T) {
	s, _ := newTestStore(10)

	e := validEvent("alice", "read")
	e.ResourceID = ""
	e.Details = nil

	if err := s.Append(e); err != nil {
		t.Fatalf("optional fields must never cause rejection: %v", err)
	}
}

func TestStore_OrderIsMostRecentFirst(t *testing.T) {
	s, clock := newTestStore(10)

	for i := 0; i < 5; i++ {
		clock.Advance(time.Minute)
		if err := s.Append(validEvent("alice", fmt.Sprintf("action-%d", i))); err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}

	snap := s.Snapshot()
	if snap[0].Action != "action-4" {
		t.Errorf("expected newest event first, got %s", snap[0].Action)
	}
	if snap[len(snap)-1].Action != "action-0" {
		t.Errorf("expected oldest event last, got %s", snap[len(snap)-1].Action)
	}
	for i := 1; i < len(snap); i++ {
		if snap[i].Timestamp.After(snap[i-1].Timestamp) {
			t.Errorf("snapshot not ordered at index %d", i)
		}
	}
}

func TestStore_CapacityEvictsOldest(t *testing.T) {
	const capacity = 50
	const appends = 130
	s, clock := newTestStore(capacity)

	for i := 0; i < appends; i++ {
		clock.Advance(time.Second)
		if err := s.Append(validEvent("alice", fmt.Sprintf("action-%d", i))); err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}

	if s.Len() != capacity {
		t.Fatalf("store must hold exactly its capacity: want %d, got %d", capacity, s.Len())
	}

	// The survivors must be the most recent C appends, newest first.
	snap := s.Snapshot()
	for i, e := range snap {
		want := fmt.Sprintf("action-%d", appends-1-i)
		if e.Action != want {
			t.Fatalf("position %d: want %s, got %s", i, want, e.Action)
		}
	}
}

func TestStore_EvictionIsSilent(t *testing.T) {
	s, _ := newTestStore(2)

	for i := 0; i < 5; i++ {
		if err := s.Append(validEvent("alice", "read")); err != nil {
			t.Fatalf("append over capacity must not error: %v", err)
		}
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 events after eviction, got %d", s.Len())
	}
}

func TestStore_IDsAreUnique(t *testing.T) {
	s, _ := newTestStore(1000)

	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		e := validEvent("alice", "read")
		if err := s.Append(e); err != nil {
			t.Fatalf("append failed: %v", err)
		}
		if seen[e.ID] {
			t.Fatalf("duplicate id %s at append %d", e.ID, i)
		}
		seen[e.ID] = true
	}
}

func TestStore_ConcurrentAppendsAndReads(t *testing.T) {
	s := NewStore(200)

	const writers = 8
	const perWriter = 100

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_ = s.Append(validEvent(fmt.Sprintf("user-%d", w), "read"))
			}
		}(w)
	}

	// Concurrent readers must only ever observe consistent snapshots.
	var rg sync.WaitGroup
	for r := 0; r < 4; r++ {
		rg.Add(1)
		go func() {
			defer rg.Done()
			for i := 0; i < 50; i++ {
				snap := s.Snapshot()
				if len(snap) > 200 {
					t.Errorf("snapshot exceeds capacity: %d", len(snap))
					return
				}
				for j := range snap {
					if snap[j].ID == "" {
						t.Error("observed partially inserted event")
						return
					}
				}
				_, _ = s.Query(Filter{UserID: "user-1"})
				_ = s.Statistics(TimeframeDay)
			}
		}()
	}

	wg.Wait()
	rg.Wait()

	if s.Len() != 200 {
		t.Errorf("expected store at capacity 200, got %d", s.Len())
	}

	seen := make(map[string]bool)
	for _, e := range s.Snapshot() {
		if seen[e.ID] {
			t.Fatalf("duplicate id under concurrency: %s", e.ID)
		}
		seen[e.ID] = true
	}
}

func TestStore_Prune(t *testing.T) {
	s, clock := newTestStore(100)

	// Two old events, then two fresh ones 40 days later.
	if err := s.Append(validEvent("alice", "stale-1")); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(validEvent("alice", "stale-2")); err != nil {
		t.Fatal(err)
	}
	clock.Advance(40 * 24 * time.Hour)
	if err := s.Append(validEvent("bob", "fresh-1")); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(validEvent("bob", "fresh-2")); err != nil {
		t.Fatal(err)
	}

	removed := s.Prune(30)
	if removed != 2 {
		t.Errorf("expected 2 events pruned, got %d", removed)
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 events kept, got %d", s.Len())
	}
	for _, e := range s.Snapshot() {
		if e.Actor.UserID != "bob" {
			t.Errorf("pruning kept stale event %s", e.Action)
		}
	}
}

type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureSink) Consume(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func TestStore_SinkReceivesStoredCopy(t *testing.T) {
	s, _ := newTestStore(10)
	sink := &captureSink{}
	s.AddSink(sink)

	if err := s.Append(validEvent("alice", "read")); err != nil {
		t.Fatal(err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.events) != 1 {
		t.Fatalf("expected 1 fanned-out event, got %d", len(sink.events))
	}
	if sink.events[0].ID == "" || sink.events[0].Timestamp.IsZero() {
		t.Error("sink must receive the event after ID/timestamp assignment")
	}
}
