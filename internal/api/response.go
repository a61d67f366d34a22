// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

// Package api exposes the audit trail over HTTP. A single endpoint family
// under /api/v1/audit dispatches GET requests on the action query parameter
// and accepts POST appends and DELETE retention pruning. Every JSON response
// carries a top-level success flag; failures carry a flat error string and
// never leak internal state.
package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/eduanalytics/auditus/internal/logging"
)

// errorResponse is the wire shape for every failed request.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// messageResponse is the wire shape for write operations that return a
// human-readable confirmation instead of data.
type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Client-facing error strings. Internal causes are logged server-side only.
const (
	msgInvalidAction   = "Invalid action parameter"
	msgMissingQuery    = "Query parameter is required"
	msgMissingFields   = "Missing required fields"
	msgInternalError   = "Internal server error"
	msgAppendFailed    = "Failed to log audit event"
	msgPruneFailed     = "Failed to clear audit events"
	msgMethodNotAllow  = "Method not allowed"
	msgTooManyRequests = "Too many requests"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, errorResponse{Success: false, Error: message})
}

func writeMessage(w http.ResponseWriter, r *http.Request, message string) {
	writeJSON(w, r, http.StatusOK, messageResponse{Success: true, Message: message})
}
