// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

package api

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/eduanalytics/auditus/internal/audit"
)

// dateLayouts are accepted for startDate/endDate, tried in order.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// parseFilter builds an audit.Filter from query parameters. The event
// action filter is read from actionFilter because the bare action
// param selects the operation. Malformed numeric, boolean, or date
// values wrap audit.ErrInvalidFilter so the handler can answer 400
// instead of silently ignoring the input.
func parseFilter(q url.Values) (audit.Filter, error) {
	f := audit.Filter{
		UserID:   q.Get("userId"),
		Action:   q.Get("actionFilter"),
		Resource: q.Get("resource"),
		Category: audit.Category(q.Get("category")),
		Severity: audit.Severity(q.Get("severity")),
	}

	if raw := q.Get("success"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return f, fmt.Errorf("%w: success must be a boolean, got %q", audit.ErrInvalidFilter, raw)
		}
		f.Success = &v
	}

	if raw := q.Get("startDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return f, fmt.Errorf("%w: startDate: %v", audit.ErrInvalidFilter, err)
		}
		f.StartDate = &t
	}
	if raw := q.Get("endDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return f, fmt.Errorf("%w: endDate: %v", audit.ErrInvalidFilter, err)
		}
		f.EndDate = &t
	}

	var err error
	if f.Limit, err = parseNonNegativeInt(q.Get("limit"), "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = parseNonNegativeInt(q.Get("offset"), "offset"); err != nil {
		return f, err
	}
	return f, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a date", raw)
}

func parseNonNegativeInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", audit.ErrInvalidFilter, name, raw)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative, got %d", audit.ErrInvalidFilter, name, v)
	}
	return v, nil
}
