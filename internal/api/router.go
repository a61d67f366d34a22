// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

package api

import (
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eduanalytics/auditus/internal/audit"
	"github.com/eduanalytics/auditus/internal/auth"
	"github.com/eduanalytics/auditus/internal/logging"
	"github.com/eduanalytics/auditus/internal/middleware"
)

// Router assembles the middleware stack and routes for the service.
type Router struct {
	handler  *Handler
	chiMW    *ChiMiddleware
	resolver *auth.Resolver
	hook     *middleware.AuditHook
}

// NewRouter creates a router. The hook is optional; when present the
// retention DELETE is itself recorded in the trail.
func NewRouter(handler *Handler, chiMW *ChiMiddleware, resolver *auth.Resolver, hook *middleware.AuditHook) *Router {
	return &Router{handler: handler, chiMW: chiMW, resolver: resolver, hook: hook}
}

// Setup configures all routes and returns the root handler.
func (rt *Router) Setup() http.Handler {
	rt.handler.SetExportGuard(rt.chiMW.RateLimitExport())

	r := chi.NewRouter()

	// Global stack. CORS sits here so OPTIONS preflight reaches it for
	// every route.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(recoverer)
	r.Use(rt.chiMW.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, msgMethodNotAllow)
	})

	r.With(rt.chiMW.RateLimitHealth()).Get("/health", rt.handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	// Canonical mount plus the legacy path older producers still call.
	r.Route("/api/v1/audit", rt.mountAudit)
	r.Route("/audit", rt.mountAudit)

	return r
}

func (rt *Router) mountAudit(r chi.Router) {
	r.Use(APISecurityHeaders())
	r.Use(middleware.PrometheusMetrics)
	r.Use(rt.resolver.Middleware)

	r.With(rt.chiMW.RateLimit()).Get("/", rt.handler.GetAudit)
	r.With(rt.chiMW.RateLimitWrite()).Post("/", rt.handler.PostAudit)

	// Pruning destroys records, so the prune itself goes into the trail.
	del := []func(http.Handler) http.Handler{rt.chiMW.RateLimitWrite()}
	if rt.hook != nil {
		del = append(del, rt.hook.Instrument("clear_audit_logs", "audit_logs", middleware.AuditOptions{
			Severity: audit.SeverityHigh,
			Category: audit.CategorySystem,
		}))
	}
	r.With(del...).Delete("/", rt.handler.DeleteAudit)
}

// recoverer converts handler panics into a generic 500 response. The cause
// and stack stay server-side.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logging.Ctx(r.Context()).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("handler panic")
			writeError(w, r, http.StatusInternalServerError, msgInternalError)
		}()
		next.ServeHTTP(w, r)
	})
}
