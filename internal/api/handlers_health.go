// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

package api

import (
	"net/http"
	"time"
)

// healthStatus is the /health payload. The store is in-process memory, so a
// responsive process is a healthy one; the counters exist for dashboards.
type healthStatus struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
	Events        int    `json:"events"`
	Capacity      int    `json:"capacity"`
}

// Health reports liveness plus store occupancy.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, dataResponse{
		Success: true,
		Data: healthStatus{
			Status:        "ok",
			UptimeSeconds: int64(time.Since(h.startTime) / time.Second),
			Events:        h.store.Len(),
			Capacity:      h.store.Capacity(),
		},
	})
}
