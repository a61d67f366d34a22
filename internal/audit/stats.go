// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

package audit

import "time"

// Timeframe is a trailing window bounding statistics to recent activity.
type Timeframe string

const (
	TimeframeDay   Timeframe = "day"
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
)

// Duration returns the trailing window length. Unknown values fall back to a
// day, matching the lenient handling at the HTTP boundary.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case TimeframeWeek:
		return 7 * 24 * time.Hour
	case TimeframeMonth:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// SuccessCounts splits a windowed event count by the outcome flag.
type SuccessCounts struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
}

// Stats is a one-pass rollup over the events inside a trailing window.
// Grouping maps omit absent keys rather than carrying zero entries. The
// hourly distribution buckets by the UTC hour of the ingestion timestamp so
// results reproduce across deployment timezones.
type Stats struct {
	Total              int            `json:"total"`
	ByCategory         map[string]int `json:"byCategory"`
	BySeverity         map[string]int `json:"bySeverity"`
	BySuccess          SuccessCounts  `json:"bySuccess"`
	ByUser             map[string]int `json:"byUser"`
	TopActions         map[string]int `json:"topActions"`
	HourlyDistribution [24]int        `json:"hourlyDistribution"`
}

// Statistics computes a Stats rollup for events with a timestamp at or after
// now-timeframe. The scan runs on a snapshot, off the store lock.
func (s *Store) Statistics(tf Timeframe) Stats {
	windowStart := s.now().UTC().Add(-tf.Duration())
	snap := s.Snapshot()

	stats := Stats{
		ByCategory: make(map[string]int),
		BySeverity: make(map[string]int),
		ByUser:     make(map[string]int),
		TopActions: make(map[string]int),
	}

	for i := range snap {
		e := &snap[i]
		if e.Timestamp.Before(windowStart) {
			continue
		}

		stats.Total++
		stats.ByCategory[string(e.Category)]++
		stats.BySeverity[string(e.Severity)]++
		if e.Success {
			stats.BySuccess.Success++
		} else {
			stats.BySuccess.Failure++
		}
		stats.ByUser[e.Actor.UserID]++
		stats.TopActions[e.Action]++
		stats.HourlyDistribution[e.Timestamp.UTC().Hour()]++
	}

	return stats
}
