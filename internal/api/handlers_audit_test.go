// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/eduanalytics/auditus/internal/audit"
	"github.com/eduanalytics/auditus/internal/config"
)

func newTestHandler(t *testing.T) (*Handler, *audit.Store) {
	t.Helper()
	store := audit.NewStore(1000)
	cfg := &config.Config{Audit: config.AuditConfig{Capacity: 1000, RetentionDays: 30}}
	return NewHandler(store, cfg), store
}

// seedEvent appends one valid event with the given identity and action.
func seedEvent(t *testing.T, store *audit.Store, userID, action string, success bool) {
	t.Helper()
	err := store.Append(&audit.Event{
		Actor: audit.Actor{
			UserID:    userID,
			UserEmail: userID + "@school.edu",
			UserRole:  "teacher",
		},
		Action:   action,
		Resource: "students",
		Severity: audit.SeverityLow,
		Category: audit.CategoryDataAccess,
		Success:  success,
	})
	if err != nil {
		t.Fatalf("seed append: %v", err)
	}
}

// doGet runs one GET request through the handler's dispatch.
func doGet(t *testing.T, h *Handler, query string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit?"+query, nil)
	rec := httptest.NewRecorder()
	h.GetAudit(rec, req)
	return rec
}

// decodeBody unmarshals a JSON response body into a generic map.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestGetAudit_InvalidAction(t *testing.T) {
	h, _ := newTestHandler(t)

	for _, query := range []string{"", "action=", "action=bogus", "action=EVENTS"} {
		rec := doGet(t, h, query)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("query %q: status = %d, want 400", query, rec.Code)
		}
		body := decodeBody(t, rec)
		if body["success"] != false {
			t.Errorf("query %q: success = %v, want false", query, body["success"])
		}
		if body["error"] != "Invalid action parameter" {
			t.Errorf("query %q: error = %v", query, body["error"])
		}
	}
}

func TestGetAudit_Events(t *testing.T) {
	h, store := newTestHandler(t)
	for i := 0; i < 5; i++ {
		seedEvent(t, store, "alice", "read", true)
	}

	rec := doGet(t, h, "action=events")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}

	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Fatalf("success = %v", body["success"])
	}
	data := body["data"].(map[string]any)
	if data["total"] != float64(5) {
		t.Errorf("total = %v, want 5", data["total"])
	}
	if data["hasMore"] != false {
		t.Errorf("hasMore = %v, want false", data["hasMore"])
	}
	if events := data["events"].([]any); len(events) != 5 {
		t.Errorf("len(events) = %d, want 5", len(events))
	}
}

func TestGetAudit_Events_HasMore(t *testing.T) {
	h, store := newTestHandler(t)
	for i := 0; i < 10; i++ {
		seedEvent(t, store, "alice", "read", true)
	}

	tests := []struct {
		name       string
		query      string
		wantEvents int
		wantMore   bool
	}{
		{"no pagination", "action=events", 10, false},
		{"limit only first page", "action=events&limit=3", 3, false},
		{"offset only", "action=events&offset=4", 6, false},
		{"middle page", "action=events&limit=3&offset=3", 3, true},
		{"last partial page", "action=events&limit=3&offset=9", 1, false},
		{"offset beyond set", "action=events&limit=3&offset=50", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doGet(t, h, tt.query)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			data := decodeBody(t, rec)["data"].(map[string]any)
			if data["total"] != float64(10) {
				t.Errorf("total = %v, want 10", data["total"])
			}
			if got := len(data["events"].([]any)); got != tt.wantEvents {
				t.Errorf("len(events) = %d, want %d", got, tt.wantEvents)
			}
			if data["hasMore"] != tt.wantMore {
				t.Errorf("hasMore = %v, want %v", data["hasMore"], tt.wantMore)
			}
		})
	}
}

func TestGetAudit_Events_Filters(t *testing.T) {
	h, store := newTestHandler(t)
	seedEvent(t, store, "alice", "read", true)
	seedEvent(t, store, "alice", "update", true)
	seedEvent(t, store, "bob", "read", false)

	rec := doGet(t, h, "action=events&userId=alice")
	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["total"] != float64(2) {
		t.Errorf("userId filter total = %v, want 2", data["total"])
	}

	// The dispatch parameter is action, so the event-action filter rides
	// under its own name.
	rec = doGet(t, h, "action=events&actionFilter=update")
	data = decodeBody(t, rec)["data"].(map[string]any)
	if data["total"] != float64(1) {
		t.Errorf("actionFilter total = %v, want 1", data["total"])
	}

	rec = doGet(t, h, "action=events&success=false")
	data = decodeBody(t, rec)["data"].(map[string]any)
	if data["total"] != float64(1) {
		t.Errorf("success filter total = %v, want 1", data["total"])
	}
}

func TestGetAudit_Events_MalformedFilter(t *testing.T) {
	h, _ := newTestHandler(t)

	queries := []string{
		"action=events&success=maybe",
		"action=events&limit=abc",
		"action=events&limit=-1",
		"action=events&offset=-2",
		"action=events&startDate=not-a-date",
		"action=events&endDate=31/12/2026",
	}
	for _, query := range queries {
		rec := doGet(t, h, query)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("query %q: status = %d, want 400", query, rec.Code)
		}
		if body := decodeBody(t, rec); body["success"] != false {
			t.Errorf("query %q: success = %v, want false", query, body["success"])
		}
	}
}

func TestGetAudit_Statistics(t *testing.T) {
	h, store := newTestHandler(t)
	seedEvent(t, store, "alice", "read", true)
	seedEvent(t, store, "bob", "read", false)

	rec := doGet(t, h, "action=statistics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["timeframe"] != "day" {
		t.Errorf("default timeframe = %v, want day", body["timeframe"])
	}
	data := body["data"].(map[string]any)
	if data["total"] != float64(2) {
		t.Errorf("total = %v, want 2", data["total"])
	}

	rec = doGet(t, h, "action=statistics&timeframe=week")
	if body := decodeBody(t, rec); body["timeframe"] != "week" {
		t.Errorf("timeframe = %v, want week", body["timeframe"])
	}
}

func TestGetAudit_Search(t *testing.T) {
	h, store := newTestHandler(t)
	seedEvent(t, store, "alice", "export_grades", true)
	seedEvent(t, store, "bob", "read", true)

	rec := doGet(t, h, "action=search&query=grade")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["query"] != "grade" {
		t.Errorf("query echo = %v", data["query"])
	}
	if data["total"] != float64(1) {
		t.Errorf("total = %v, want 1", data["total"])
	}
}

func TestGetAudit_Search_MissingQuery(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doGet(t, h, "action=search")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "Query parameter is required" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestGetAudit_Export(t *testing.T) {
	h, store := newTestHandler(t)
	seedEvent(t, store, "alice", "read", true)
	h.now = func() time.Time {
		return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	}

	t.Run("json", func(t *testing.T) {
		rec := doGet(t, h, "action=export&format=json")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		want := `attachment; filename="audit_logs_2026-03-14.json"`
		if cd := rec.Header().Get("Content-Disposition"); cd != want {
			t.Errorf("Content-Disposition = %q, want %q", cd, want)
		}
		if cc := rec.Header().Get("Cache-Control"); cc != "no-cache" {
			t.Errorf("Cache-Control = %q", cc)
		}
		var events []audit.Event
		if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
			t.Fatalf("export body is not a JSON array: %v", err)
		}
		if len(events) != 1 {
			t.Errorf("len(events) = %d, want 1", len(events))
		}
	})

	t.Run("csv", func(t *testing.T) {
		rec := doGet(t, h, "action=export&format=csv")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
			t.Errorf("Content-Type = %q", ct)
		}
		want := `attachment; filename="audit_logs_2026-03-14.csv"`
		if cd := rec.Header().Get("Content-Disposition"); cd != want {
			t.Errorf("Content-Disposition = %q, want %q", cd, want)
		}
		if !strings.HasPrefix(rec.Body.String(), "timestamp,userId,") {
			t.Errorf("csv body = %q", rec.Body.String())
		}
	})

	t.Run("format defaults to json", func(t *testing.T) {
		rec := doGet(t, h, "action=export")
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
	})

	t.Run("unsupported format", func(t *testing.T) {
		rec := doGet(t, h, "action=export&format=xml")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestGetAudit_FailedLogins(t *testing.T) {
	h, store := newTestHandler(t)
	if err := store.Append(&audit.Event{
		Actor:    audit.Actor{UserID: "mallory", UserEmail: "m@school.edu", UserRole: "student"},
		Action:   "login",
		Resource: "auth",
		Severity: audit.SeverityHigh,
		Category: audit.CategoryAuthentication,
		Success:  false,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	seedEvent(t, store, "alice", "read", true)

	rec := doGet(t, h, "action=failed-logins")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["count"] != float64(1) {
		t.Errorf("count = %v, want 1", body["count"])
	}
	if body["timeframe"] != "day" {
		t.Errorf("timeframe = %v, want day", body["timeframe"])
	}
	if events := body["data"].([]any); len(events) != 1 {
		t.Errorf("len(data) = %d, want 1", len(events))
	}
}

func TestGetAudit_Suspicious(t *testing.T) {
	h, store := newTestHandler(t)
	if err := store.Append(&audit.Event{
		Actor:    audit.Actor{UserID: "mallory", UserEmail: "m@school.edu", UserRole: "student"},
		Action:   "bulk_download",
		Resource: "students",
		Severity: audit.SeverityCritical,
		Category: audit.CategoryDataAccess,
		Success:  true,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	seedEvent(t, store, "alice", "read", true)

	rec := doGet(t, h, "action=suspicious")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["count"] != float64(1) {
		t.Errorf("count = %v, want 1", body["count"])
	}
	if body["success"] != true {
		t.Errorf("success = %v", body["success"])
	}
}

func TestGetAudit_UserEvents(t *testing.T) {
	h, store := newTestHandler(t)
	seedEvent(t, store, "alice", "read", true)
	seedEvent(t, store, "alice", "update", true)
	seedEvent(t, store, "bob", "read", true)

	rec := doGet(t, h, "action=user-events&userId=alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["userId"] != "alice" {
		t.Errorf("userId = %v", data["userId"])
	}
	if data["total"] != float64(2) {
		t.Errorf("total = %v, want 2", data["total"])
	}

	rec = doGet(t, h, "action=user-events")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing userId: status = %d, want 400", rec.Code)
	}
}

func TestPostAudit(t *testing.T) {
	h, store := newTestHandler(t)

	body := `{"action":"sync","userId":"svc-1","userEmail":"svc@district.org","userRole":"service","resource":"rosters","details":{"rows":42}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/audit", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.PostAudit(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	if resp["message"] != "Audit event logged successfully" {
		t.Errorf("message = %v", resp["message"])
	}

	snap := store.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("stored %d events, want 1", len(snap))
	}
	got := snap[0]
	if got.Severity != audit.SeverityMedium {
		t.Errorf("severity = %q, want medium", got.Severity)
	}
	if got.Category != audit.CategorySystem {
		t.Errorf("category = %q, want system", got.Category)
	}
	if !got.Success {
		t.Error("ingested event should be marked successful")
	}
	if got.Details["rows"] != float64(42) {
		t.Errorf("details = %v", got.Details)
	}
}

func TestPostAudit_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"malformed json", `{"action":`},
		{"missing action", `{"userId":"u","userEmail":"u@x.org","userRole":"svc","resource":"r"}`},
		{"missing userId", `{"action":"a","userEmail":"u@x.org","userRole":"svc","resource":"r"}`},
		{"missing resource", `{"action":"a","userId":"u","userEmail":"u@x.org","userRole":"svc"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, store := newTestHandler(t)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/audit", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.PostAudit(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if body := decodeBody(t, rec); body["error"] != "Missing required fields" {
				t.Errorf("error = %v", body["error"])
			}
			if store.Len() != 0 {
				t.Errorf("store holds %d events, want 0", store.Len())
			}
		})
	}
}

func TestDeleteAudit(t *testing.T) {
	h, store := newTestHandler(t)
	seedEvent(t, store, "alice", "read", true)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/audit?daysToKeep=5", nil)
	rec := httptest.NewRecorder()
	h.DeleteAudit(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := decodeBody(t, rec); body["message"] != "Cleared audit events older than 5 days" {
		t.Errorf("message = %v", body["message"])
	}
	// Fresh events survive the prune.
	if store.Len() != 1 {
		t.Errorf("store holds %d events, want 1", store.Len())
	}
}

func TestDeleteAudit_DefaultRetention(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/audit", nil)
	rec := httptest.NewRecorder()
	h.DeleteAudit(rec, req)

	if body := decodeBody(t, rec); body["message"] != "Cleared audit events older than 30 days" {
		t.Errorf("message = %v", body["message"])
	}
}

func TestDeleteAudit_InvalidDays(t *testing.T) {
	h, _ := newTestHandler(t)

	for _, raw := range []string{"abc", "0", "-3", "1.5"} {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/audit?daysToKeep="+raw, nil)
		rec := httptest.NewRecorder()
		h.DeleteAudit(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("daysToKeep=%q: status = %d, want 400", raw, rec.Code)
		}
	}
}
