// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

package middleware

import (
	"bytes"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/eduanalytics/auditus/internal/audit"
	"github.com/eduanalytics/auditus/internal/auth"
	"github.com/eduanalytics/auditus/internal/logging"
)

// maxCapturedBody bounds request/response body capture so a large payload
// cannot bloat the event store.
const maxCapturedBody = 64 << 10

// AuditOptions tunes what an instrumented route records.
type AuditOptions struct {
	// Severity overrides the default policy (low for successful requests,
	// high for failed ones).
	Severity audit.Severity

	// Category overrides the default data_access classification.
	Category audit.Category

	// LogRequestBody captures the request body into the event details,
	// truncated to maxCapturedBody.
	LogRequestBody bool

	// LogResponseBody captures the response body into the event details,
	// truncated to maxCapturedBody.
	LogResponseBody bool
}

// AuditHook is the response-lifecycle instrumentation: it captures request
// context before the handler runs, the outcome after it completes, and
// appends exactly one event per request. A failing append never fails the
// instrumented request; it is logged at a limited rate and dropped.
type AuditHook struct {
	recorder *audit.Recorder

	// warnLimit throttles append-failure logs so a rejected-event storm
	// cannot flood the log.
	warnLimit *rate.Limiter
}

// NewAuditHook builds the hook around a recorder.
func NewAuditHook(recorder *audit.Recorder) *AuditHook {
	return &AuditHook{
		recorder:  recorder,
		warnLimit: rate.NewLimiter(rate.Every(10*time.Second), 1),
	}
}

// Instrument returns middleware that records one audit event for every
// request hitting the wrapped handler, named by action and resource.
func (h *AuditHook) Instrument(action, resource string, opts AuditOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			var requestBody []byte
			if opts.LogRequestBody && r.Body != nil {
				requestBody, r.Body = teeBody(r.Body)
			}

			wrapper := &captureResponseWriter{
				statusResponseWriter: statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK},
				capture:              opts.LogResponseBody,
			}

			next.ServeHTTP(wrapper, r)

			h.record(r, wrapper, action, resource, opts, requestBody, time.Since(start))
		})
	}
}

func (h *AuditHook) record(r *http.Request, wrapper *captureResponseWriter, action, resource string, opts AuditOptions, requestBody []byte, duration time.Duration) {
	success := wrapper.statusCode >= 200 && wrapper.statusCode < 400

	severity := opts.Severity
	if severity == "" {
		severity = audit.SeverityLow
		if !success {
			severity = audit.SeverityHigh
		}
	}
	category := opts.Category
	if category == "" {
		category = audit.CategoryDataAccess
	}

	details := audit.Details{
		"method":         r.Method,
		"endpoint":       r.URL.RequestURI(),
		"ipAddress":      clientIP(r),
		"userAgent":      r.UserAgent(),
		"responseStatus": wrapper.statusCode,
		"duration":       duration.Milliseconds(),
	}
	if opts.LogRequestBody && len(requestBody) > 0 {
		details["requestBody"] = string(requestBody)
	}
	if opts.LogResponseBody && wrapper.body.Len() > 0 {
		details["responseBody"] = wrapper.body.String()
	}

	err := h.recorder.Record(&audit.Event{
		Actor:    auth.ActorFromContext(r.Context()),
		Action:   action,
		Resource: resource,
		Details:  details,
		Severity: severity,
		Category: category,
		Success:  success,
	})
	if err != nil && h.warnLimit.Allow() {
		logging.Ctx(r.Context()).Warn().Err(err).
			Str("action", action).
			Str("resource", resource).
			Msg("failed to record audit event for request")
	}
}

// teeBody reads up to maxCapturedBody from rc and returns the captured
// prefix plus a reader that replays the full body for the handler.
func teeBody(rc io.ReadCloser) ([]byte, io.ReadCloser) {
	captured := make([]byte, maxCapturedBody)
	n, _ := io.ReadFull(rc, captured)
	captured = captured[:n]
	return captured, struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(captured), rc), rc}
}

// captureResponseWriter optionally buffers the response body alongside the
// status code.
type captureResponseWriter struct {
	statusResponseWriter
	capture bool
	body    bytes.Buffer
}

func (rw *captureResponseWriter) Write(b []byte) (int, error) {
	if rw.capture && rw.body.Len() < maxCapturedBody {
		remain := maxCapturedBody - rw.body.Len()
		if remain > len(b) {
			remain = len(b)
		}
		rw.body.Write(b[:remain])
	}
	return rw.statusResponseWriter.Write(b)
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the
// connection's remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
