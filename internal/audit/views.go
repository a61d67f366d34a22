// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

package audit

// Derived security views over the store. These are fixed-shape queries used
// by the risk dashboard endpoints; they scan a snapshot like every other
// reader.

// FailedLogins returns the failed authentication login attempts inside the
// trailing window, most-recent-first.
func (s *Store) FailedLogins(tf Timeframe) []Event {
	windowStart := s.now().UTC().Add(-tf.Duration())
	snap := s.Snapshot()

	matched := make([]Event, 0)
	for i := range snap {
		e := &snap[i]
		if e.Category == CategoryAuthentication &&
			e.Action == "login" &&
			!e.Success &&
			!e.Timestamp.Before(windowStart) {
			matched = append(matched, *e)
		}
	}
	return matched
}

// SuspiciousActivities returns events warranting review: critical severity,
// security category, or failed authorization. High severity alone does not
// qualify; a high-severity delete is routine data modification.
func (s *Store) SuspiciousActivities() []Event {
	snap := s.Snapshot()

	matched := make([]Event, 0)
	for i := range snap {
		e := &snap[i]
		if e.Severity == SeverityCritical ||
			e.Category == CategorySecurity ||
			(e.Category == CategoryAuthorization && !e.Success) {
			matched = append(matched, *e)
		}
	}
	return matched
}

// UserEvents returns the most recent events for one user, capped at limit
// (default 100 when non-positive).
func (s *Store) UserEvents(userID string, limit int) []Event {
	if limit <= 0 {
		limit = 100
	}
	events, _ := s.Query(Filter{UserID: userID, Limit: limit})
	return events
}
