// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/eduanalytics/auditus/internal/audit"
	"github.com/eduanalytics/auditus/internal/logging"
)

// Pruner removes events older than the retention cutoff and reports how
// many were dropped. Satisfied by *audit.Store.
type Pruner interface {
	Prune(daysToKeep int) int
}

// trailRecorder is the slice of *audit.Recorder the loop uses to put its own
// prunes into the trail.
type trailRecorder interface {
	SystemEvent(action string, details audit.Details) error
}

// RetentionService prunes the store on a fixed interval. Each prune that
// removes events is itself recorded as a system event, so the trail shows
// when and why records disappeared.
type RetentionService struct {
	pruner   Pruner
	recorder trailRecorder
	days     int
	interval time.Duration
}

// NewRetentionService creates the cleanup loop. The recorder may be nil;
// prunes then go unrecorded but still happen.
func NewRetentionService(pruner Pruner, recorder trailRecorder, days int, interval time.Duration) *RetentionService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &RetentionService{pruner: pruner, recorder: recorder, days: days, interval: interval}
}

// Serve implements suture.Service.
func (s *RetentionService) Serve(ctx context.Context) error {
	log := logging.WithComponent("retention")
	log.Info().Int("days_to_keep", s.days).Dur("interval", s.interval).Msg("retention cleanup started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(log)
		}
	}
}

func (s *RetentionService) runOnce(log zerolog.Logger) {
	removed := s.pruner.Prune(s.days)
	if removed == 0 {
		log.Debug().Int("days_to_keep", s.days).Msg("retention sweep removed nothing")
		return
	}

	log.Info().Int("removed", removed).Int("days_to_keep", s.days).Msg("retention sweep pruned events")
	if s.recorder == nil {
		return
	}
	if err := s.recorder.SystemEvent("retention_prune", audit.Details{
		"removed":    removed,
		"daysToKeep": s.days,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to record retention prune")
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *RetentionService) String() string {
	return "retention-cleanup"
}
