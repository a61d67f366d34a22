// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

// Package main is the entry point for the Auditus server.
//
// Auditus keeps a bounded in-memory audit trail for the EduAnalytics
// platform and serves it over a single HTTP endpoint family: filtered
// queries, windowed statistics, substring search, JSON/CSV export, security
// views, manual ingestion, and retention pruning.
//
// Startup order:
//
//  1. Configuration: Koanf v2 layered loading (defaults, config.yaml, env)
//  2. Logging: zerolog global logger per LOG_* settings
//  3. Store: bounded most-recent-first event store
//  4. Auth: JWT principal resolution (AUTH_MODE=jwt) or anonymous mode
//  5. Forwarder: optional webhook sink behind a circuit breaker
//  6. HTTP: chi router with CORS, rate limits, and Prometheus metrics
//  7. Supervision: suture tree running the server, the retention loop, and
//     the forwarder
//
// The server shuts down gracefully on SIGINT and SIGTERM: the listener
// drains in-flight requests within SHUTDOWN_TIMEOUT and the forwarder
// flushes its buffer.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/eduanalytics/auditus/internal/api"
	"github.com/eduanalytics/auditus/internal/audit"
	"github.com/eduanalytics/auditus/internal/auth"
	"github.com/eduanalytics/auditus/internal/config"
	"github.com/eduanalytics/auditus/internal/forward"
	"github.com/eduanalytics/auditus/internal/logging"
	"github.com/eduanalytics/auditus/internal/middleware"
	"github.com/eduanalytics/auditus/internal/supervisor"
	"github.com/eduanalytics/auditus/internal/supervisor/services"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Int("capacity", cfg.Audit.Capacity).
		Int("retention_days", cfg.Audit.RetentionDays).
		Msg("starting auditus")

	store := audit.NewStore(cfg.Audit.Capacity)
	recorder := audit.NewRecorder(store)

	// Principal resolution. In none mode every request is anonymous; only
	// acceptable outside production.
	var resolver *auth.Resolver
	if cfg.Security.AuthMode == "jwt" {
		jwtManager, err := auth.NewJWTManager(&cfg.Security)
		if err != nil {
			return err
		}
		resolver = auth.NewResolver(jwtManager)
	} else {
		logging.Warn().Msg("AUTH_MODE=none, all events attribute to the anonymous actor")
		resolver = auth.NewResolver(nil)
	}

	var forwarder *forward.Forwarder
	if cfg.Audit.Forward.Enabled {
		forwarder = forward.New(cfg.Audit.Forward)
		store.AddSink(forwarder)
		logging.Info().Str("url", cfg.Audit.Forward.URL).Msg("event forwarding enabled")
	}

	handler := api.NewHandler(store, cfg)
	chiMW := api.NewChiMiddlewareFromConfig(&cfg.Security)
	hook := middleware.NewAuditHook(recorder)
	router := api.NewRouter(handler, chiMW, resolver, hook)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(services.NewHTTPService(server, cfg.Server.ShutdownTimeout))
	if cfg.Audit.CleanupInterval > 0 {
		tree.AddPipelineService(services.NewRetentionService(
			store, recorder, cfg.Audit.RetentionDays, cfg.Audit.CleanupInterval))
	}
	if forwarder != nil {
		tree.AddPipelineService(services.NewForwardService(forwarder))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info().Msg("shutdown complete")
	return nil
}
