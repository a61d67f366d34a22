// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

package audit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Format selects the export serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ErrUnsupportedFormat is returned for export formats other than json or csv.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat normalizes a format string, defaulting empty to JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}

// Extension returns the export filename extension.
func (f Format) Extension() string {
	if f == FormatCSV {
		return "csv"
	}
	return "json"
}

// csvHeader lists the ten fixed CSV columns. Details is deliberately omitted:
// it is unbounded and nested, and unsafe to flatten into a tabular row.
var csvHeader = []string{
	"timestamp", "userId", "userEmail", "userRole", "action",
	"resource", "resourceId", "severity", "category", "success",
}

// Export serializes the full filtered set (pagination fields of f are
// ignored). JSON output is a pretty-printed array of complete event records,
// details included. CSV output flattens each event to the ten fixed columns,
// rendering an absent resourceId as the empty string.
//
// CSV fields are joined naively with commas and are NOT escaped: a value
// containing a comma corrupts its row. This reproduces the legacy export
// byte-for-byte for downstream consumers that already parse it; see the
// export tests, which pin the defect down explicitly.
func (s *Store) Export(format Format, f Filter) ([]byte, error) {
	events, _ := s.Query(f.WithoutPagination())

	switch format {
	case FormatCSV:
		return exportCSV(events), nil
	case FormatJSON:
		return json.MarshalIndent(events, "", "  ")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func exportCSV(events []Event) []byte {
	var b strings.Builder
	b.WriteString(strings.Join(csvHeader, ","))
	for i := range events {
		e := &events[i]
		row := []string{
			e.Timestamp.UTC().Format(time.RFC3339),
			e.Actor.UserID,
			e.Actor.UserEmail,
			e.Actor.UserRole,
			e.Action,
			e.Resource,
			e.ResourceID,
			string(e.Severity),
			string(e.Category),
			strconv.FormatBool(e.Success),
		}
		b.WriteByte('\n')
		b.WriteString(strings.Join(row, ","))
	}
	return []byte(b.String())
}
