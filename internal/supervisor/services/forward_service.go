// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

package services

import (
	"context"

	"github.com/eduanalytics/auditus/internal/forward"
)

// ForwardService runs the webhook forwarder's delivery loop under
// supervision. The forwarder keeps its buffered channel across restarts, so
// a crash in the loop does not lose already-buffered events.
type ForwardService struct {
	forwarder *forward.Forwarder
}

// NewForwardService wraps a forwarder as a supervised service.
func NewForwardService(f *forward.Forwarder) *ForwardService {
	return &ForwardService{forwarder: f}
}

// Serve implements suture.Service.
func (s *ForwardService) Serve(ctx context.Context) error {
	return s.forwarder.Run(ctx)
}

// String implements fmt.Stringer for supervisor logs.
func (s *ForwardService) String() string {
	return s.forwarder.String()
}
