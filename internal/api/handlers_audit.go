// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/eduanalytics/auditus/internal/audit"
	"github.com/eduanalytics/auditus/internal/config"
	"github.com/eduanalytics/auditus/internal/logging"
)

// Handler carries the dependencies for the audit endpoint family. One
// handler serves the whole /api/v1/audit surface; GET requests dispatch on
// the action query parameter.
type Handler struct {
	store         *audit.Store
	validate      *validator.Validate
	retentionDays int

	// exportHandler serves action=export, optionally wrapped with a
	// stricter rate limit via SetExportGuard.
	exportHandler http.Handler

	// now is swapped in tests to pin the export filename date.
	now func() time.Time

	startTime time.Time
}

// NewHandler wires the audit store into the HTTP surface. The configured
// retention window is the default for DELETE requests without daysToKeep.
func NewHandler(store *audit.Store, cfg *config.Config) *Handler {
	h := &Handler{
		store:         store,
		validate:      validator.New(),
		retentionDays: cfg.Audit.RetentionDays,
		now:           time.Now,
		startTime:     time.Now(),
	}
	h.exportHandler = http.HandlerFunc(h.handleExport)
	return h
}

// SetExportGuard wraps the export action with an extra middleware. Exports
// serialize the full filtered set, so the router rate limits them more
// strictly than other reads.
func (h *Handler) SetExportGuard(mw func(http.Handler) http.Handler) {
	h.exportHandler = mw(http.HandlerFunc(h.handleExport))
}

// dataResponse wraps a successful read.
type dataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// timeframeResponse echoes the trailing window a rollup was computed over.
type timeframeResponse struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data"`
	Timeframe string `json:"timeframe"`
}

type countResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
	Count   int  `json:"count"`
}

type timeframeCountResponse struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data"`
	Timeframe string `json:"timeframe"`
	Count     int    `json:"count"`
}

// eventPage is the data payload for action=events.
type eventPage struct {
	Events  []audit.Event `json:"events"`
	Total   int           `json:"total"`
	HasMore bool          `json:"hasMore"`
}

// searchResult is the data payload for action=search.
type searchResult struct {
	Events []audit.Event `json:"events"`
	Query  string        `json:"query"`
	Total  int           `json:"total"`
}

// userTrail is the data payload for action=user-events.
type userTrail struct {
	Events []audit.Event `json:"events"`
	UserID string        `json:"userId"`
	Total  int           `json:"total"`
}

// GetAudit dispatches read operations on the action query parameter. An
// unknown or missing action is a client error, never a fallthrough.
func (h *Handler) GetAudit(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("action") {
	case "events":
		h.handleEvents(w, r)
	case "statistics":
		h.handleStatistics(w, r)
	case "search":
		h.handleSearch(w, r)
	case "export":
		h.exportHandler.ServeHTTP(w, r)
	case "failed-logins":
		h.handleFailedLogins(w, r)
	case "suspicious":
		h.handleSuspicious(w, r)
	case "user-events":
		h.handleUserEvents(w, r)
	default:
		writeError(w, r, http.StatusBadRequest, msgInvalidAction)
	}
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	events, total := h.store.Query(f)

	// hasMore is only meaningful on an explicitly paginated request; an
	// unpaginated or first-page query always reports false, matching the
	// consumers that already depend on it.
	hasMore := false
	if f.Limit > 0 && f.Offset > 0 {
		hasMore = f.Offset+len(events) < total
	}

	writeJSON(w, r, http.StatusOK, dataResponse{
		Success: true,
		Data:    eventPage{Events: events, Total: total, HasMore: hasMore},
	})
}

func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	tf := timeframeParam(r)
	writeJSON(w, r, http.StatusOK, timeframeResponse{
		Success:   true,
		Data:      h.store.Statistics(tf),
		Timeframe: string(tf),
	})
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, r, http.StatusBadRequest, msgMissingQuery)
		return
	}

	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	events := h.store.Search(query, f)
	writeJSON(w, r, http.StatusOK, dataResponse{
		Success: true,
		Data:    searchResult{Events: events, Query: query, Total: len(events)},
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := audit.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	data, err := h.store.Export(format, f)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("format", string(format)).Msg("audit export failed")
		writeError(w, r, http.StatusInternalServerError, msgInternalError)
		return
	}

	filename := fmt.Sprintf("audit_logs_%s.%s", h.now().UTC().Format("2006-01-02"), format.Extension())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to write export body")
	}
}

func (h *Handler) handleFailedLogins(w http.ResponseWriter, r *http.Request) {
	tf := timeframeParam(r)
	events := h.store.FailedLogins(tf)
	writeJSON(w, r, http.StatusOK, timeframeCountResponse{
		Success:   true,
		Data:      events,
		Timeframe: string(tf),
		Count:     len(events),
	})
}

func (h *Handler) handleSuspicious(w http.ResponseWriter, r *http.Request) {
	events := h.store.SuspiciousActivities()
	writeJSON(w, r, http.StatusOK, countResponse{
		Success: true,
		Data:    events,
		Count:   len(events),
	})
}

func (h *Handler) handleUserEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("userId")
	if userID == "" {
		writeError(w, r, http.StatusBadRequest, "userId parameter is required")
		return
	}
	limit, err := parseNonNegativeInt(q.Get("limit"), "limit")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	events := h.store.UserEvents(userID, limit)
	writeJSON(w, r, http.StatusOK, dataResponse{
		Success: true,
		Data:    userTrail{Events: events, UserID: userID, Total: len(events)},
	})
}

// ingestRequest is the POST body for manual event ingestion. Validation
// mirrors the store's required fields; severity, category, and outcome are
// fixed server-side so external producers cannot inflate their own urgency.
type ingestRequest struct {
	Action     string        `json:"action" validate:"required"`
	UserID     string        `json:"userId" validate:"required"`
	UserEmail  string        `json:"userEmail" validate:"required"`
	UserRole   string        `json:"userRole" validate:"required"`
	Resource   string        `json:"resource" validate:"required"`
	ResourceID string        `json:"resourceId"`
	Details    audit.Details `json:"details"`
}

// PostAudit ingests a single event from an external producer. Ingested
// events are always recorded as medium-severity system events with a
// successful outcome.
func (h *Handler) PostAudit(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgMissingFields)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgMissingFields)
		return
	}

	event := &audit.Event{
		Actor: audit.Actor{
			UserID:    req.UserID,
			UserEmail: req.UserEmail,
			UserRole:  req.UserRole,
		},
		Action:     req.Action,
		Resource:   req.Resource,
		ResourceID: req.ResourceID,
		Details:    req.Details,
		Severity:   audit.SeverityMedium,
		Category:   audit.CategorySystem,
		Success:    true,
	}
	if err := h.store.Append(event); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to append ingested audit event")
		writeError(w, r, http.StatusInternalServerError, msgAppendFailed)
		return
	}

	writeMessage(w, r, "Audit event logged successfully")
}

// DeleteAudit prunes events older than daysToKeep, defaulting to the
// configured retention window.
func (h *Handler) DeleteAudit(w http.ResponseWriter, r *http.Request) {
	days := h.retentionDays
	if raw := r.URL.Query().Get("daysToKeep"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("daysToKeep must be a positive integer, got %q", raw))
			return
		}
		days = v
	}

	removed := h.store.Prune(days)
	logging.Ctx(r.Context()).Info().Int("days_to_keep", days).Int("removed", removed).Msg("pruned audit events")
	writeMessage(w, r, fmt.Sprintf("Cleared audit events older than %d days", days))
}

// timeframeParam reads the trailing-window selector, defaulting to a day.
func timeframeParam(r *http.Request) audit.Timeframe {
	tf := audit.Timeframe(r.URL.Query().Get("timeframe"))
	if tf == "" {
		tf = audit.TimeframeDay
	}
	return tf
}
