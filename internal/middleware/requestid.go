// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

// Package middleware holds the HTTP middleware stack: request IDs, metrics,
// and the audit instrumentation hook that records a trail entry for every
// completed request.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/eduanalytics/auditus/internal/logging"
)

// RequestID tags each request with a unique ID, propagated through the
// response header, the request context, and every log line written under it.
// An ID supplied by an upstream proxy via X-Request-ID is kept.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
