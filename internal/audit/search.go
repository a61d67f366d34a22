// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

package audit

import (
	"strings"

	"github.com/goccy/go-json"
)

// Search applies f (with its pagination fields ignored) and retains only the
// events where query matches, case-insensitively, any of: the action, the
// resource, the actor's email, the details endpoint field, or the JSON
// serialization of the whole details bag. Search results are not separately
// paginated; the caller gets the full match set.
func (s *Store) Search(query string, f Filter) []Event {
	events, _ := s.Query(f.WithoutPagination())

	term := strings.ToLower(query)
	matched := make([]Event, 0, len(events))
	for i := range events {
		if eventMatches(&events[i], term) {
			matched = append(matched, events[i])
		}
	}
	return matched
}

func eventMatches(e *Event, term string) bool {
	if strings.Contains(strings.ToLower(e.Action), term) ||
		strings.Contains(strings.ToLower(e.Resource), term) ||
		strings.Contains(strings.ToLower(e.Actor.UserEmail), term) {
		return true
	}
	if endpoint, ok := e.Details["endpoint"].(string); ok {
		if strings.Contains(strings.ToLower(endpoint), term) {
			return true
		}
	}
	if len(e.Details) > 0 {
		// Details is opaque; the serialized form is the search surface.
		if raw, err := json.Marshal(e.Details); err == nil {
			if strings.Contains(strings.ToLower(string(raw)), term) {
				return true
			}
		}
	}
	return false
}
