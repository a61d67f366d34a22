// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

// Package forward mirrors accepted audit events to an external webhook
// collector. Delivery is best-effort: events are buffered in memory, sent by
// a single background worker, and dropped (with a counter and a rate-limited
// warning) when the buffer is full, the collector is failing, or the process
// shuts down. The local store remains the source of truth.
package forward

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/eduanalytics/auditus/internal/audit"
	"github.com/eduanalytics/auditus/internal/config"
	"github.com/eduanalytics/auditus/internal/logging"
	"github.com/eduanalytics/auditus/internal/metrics"
)

const breakerName = "audit-forwarder"

// Forwarder is an audit.Sink that ships events to a webhook collector.
type Forwarder struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[struct{}]

	ch   chan audit.Event
	done chan struct{}

	closeOnce sync.Once
	warnLimit *rate.Limiter
}

// New builds a forwarder from config. Call Run to start delivery and Close
// to drain and stop.
func New(cfg config.ForwardConfig) *Forwarder {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("forwarder circuit breaker state changed")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &Forwarder{
		url:       cfg.URL,
		client:    &http.Client{Timeout: cfg.Timeout},
		breaker:   breaker,
		ch:        make(chan audit.Event, cfg.BufferSize),
		done:      make(chan struct{}),
		warnLimit: rate.NewLimiter(rate.Every(10*time.Second), 1),
	}
}

// Consume implements audit.Sink. It never blocks: when the buffer is full
// the event is dropped and counted.
func (f *Forwarder) Consume(e audit.Event) {
	select {
	case f.ch <- e:
	default:
		f.drop("buffer_full", nil)
	}
}

// Run delivers buffered events until ctx is cancelled, then drains what is
// already buffered and returns. It is the suture service body for the
// forwarder.
func (f *Forwarder) Run(ctx context.Context) error {
	for {
		select {
		case e := <-f.ch:
			f.send(ctx, e)
		case <-ctx.Done():
			f.drain()
			return ctx.Err()
		case <-f.done:
			f.drain()
			return nil
		}
	}
}

// Close stops Run after the buffer is drained.
func (f *Forwarder) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}

// String names the service in supervisor logs.
func (f *Forwarder) String() string {
	return "audit-forwarder"
}

// drain attempts a final delivery pass over whatever is buffered, with a
// short overall deadline so shutdown cannot hang on a dead collector.
func (f *Forwarder) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case e := <-f.ch:
			f.send(ctx, e)
		default:
			return
		}
	}
}

func (f *Forwarder) send(ctx context.Context, e audit.Event) {
	_, err := f.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, f.post(ctx, e)
	})
	if err == nil {
		metrics.ForwarderSentTotal.Inc()
		return
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		f.drop("breaker_open", err)
		return
	}
	f.drop("send_failed", err)
}

func (f *Forwarder) post(ctx context.Context, e audit.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", e.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("collector returned status %d", resp.StatusCode)
	}
	return nil
}

func (f *Forwarder) drop(reason string, err error) {
	metrics.ForwarderDroppedTotal.WithLabelValues(reason).Inc()
	if f.warnLimit.Allow() {
		logging.Warn().Err(err).Str("reason", reason).Msg("dropping audit event from forwarder")
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
