// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

package audit

import "time"

// Filter selects events for query, search, and export. Every field is
// optional; set fields combine with AND semantics. Date bounds are inclusive
// and compared against the ingestion timestamp. Limit and Offset paginate the
// result and never affect the reported total.
type Filter struct {
	UserID   string
	Action   string
	Resource string
	Category Category
	Severity Severity

	// Success filters on the outcome flag; nil means no outcome filter.
	Success *bool

	StartDate *time.Time
	EndDate   *time.Time

	Limit  int
	Offset int
}

// WithoutPagination returns a copy of f with Limit and Offset cleared.
// Search and export operate on the full match set.
func (f Filter) WithoutPagination() Filter {
	f.Limit = 0
	f.Offset = 0
	return f
}

// matches reports whether e satisfies every set predicate.
func (f *Filter) matches(e *Event) bool {
	if f.UserID != "" && e.Actor.UserID != f.UserID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.Resource != "" && e.Resource != f.Resource {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.Severity != "" && e.Severity != f.Severity {
		return false
	}
	if f.Success != nil && e.Success != *f.Success {
		return false
	}
	if f.StartDate != nil && e.Timestamp.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && e.Timestamp.After(*f.EndDate) {
		return false
	}
	return true
}
