// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

// Package audit implements the process-wide audit event store and its
// query/aggregation engine.
//
// The store is a capacity-bounded, append-ordered, in-memory record of every
// security and data-relevant action in the platform. Producers append through
// the Recorder profiles (or the HTTP ingestion endpoint); consumers read
// through filtered queries, free-text search, time-windowed statistics, and
// bulk export.
//
// # Ordering and eviction
//
// Events are held most-recent-first. When an append pushes the store past its
// configured capacity (default 10000), the oldest events are evicted from the
// tail. Eviction is silent and by design: the store trades completeness for
// bounded memory. Operators can observe eviction through the
// audit_events_evicted_total metric and through statistics totals dropping
// unexpectedly. An evicted event is unrecoverable.
//
// # Concurrency
//
// A single RWMutex guards the ordered collection. Append is the only mutator
// and holds the write lock for the duration of insert+evict, so readers see
// either the pre-append or post-append state, never a partially inserted
// record. Readers copy a snapshot under the read lock and release before
// filtering or aggregating, which bounds lock hold time and keeps long scans
// from blocking writers. No I/O happens under the lock; sink fan-out runs on
// data already copied out.
//
// # Statistics
//
// The hourly distribution buckets events by the UTC hour of their timestamp.
// UTC was chosen over local time so statistics reproduce identically across
// deployment timezones.
//
// # Durability
//
// There is none. Events live in process memory only and are lost on restart;
// running multiple instances yields independent, non-merged audit trails.
// Both are documented limitations, not bugs. The optional forward package
// can mirror events to an external collector on a best-effort basis.
package audit
