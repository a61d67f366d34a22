// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

package audit

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Severity ranks the urgency of an audit event, independent of its category.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the defined severity levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Category is the coarse classification of an event's domain.
type Category string

const (
	CategoryAuthentication   Category = "authentication"
	CategoryAuthorization    Category = "authorization"
	CategoryDataAccess       Category = "data_access"
	CategoryDataModification Category = "data_modification"
	CategorySystem           Category = "system"
	CategorySecurity         Category = "security"
)

// Valid reports whether c is one of the defined categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryAuthentication, CategoryAuthorization, CategoryDataAccess,
		CategoryDataModification, CategorySystem, CategorySecurity:
		return true
	}
	return false
}

// Categories lists every defined category, for enumeration endpoints.
func Categories() []Category {
	return []Category{
		CategoryAuthentication,
		CategoryAuthorization,
		CategoryDataAccess,
		CategoryDataModification,
		CategorySystem,
		CategorySecurity,
	}
}

// Severities lists every defined severity level, lowest first.
func Severities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}

// Actor identifies who performed an action.
type Actor struct {
	// UserID is the platform user identifier. "system" marks internally
	// generated events; "anonymous" marks requests with no authenticated
	// caller.
	UserID string `json:"userId"`

	// UserEmail is the actor's email address at the time of the event.
	UserEmail string `json:"userEmail"`

	// UserRole is the actor's role at the time of the event.
	UserRole string `json:"userRole"`
}

// SystemActor returns the fixed identity attached to internally generated
// events.
func SystemActor() Actor {
	return Actor{
		UserID:    "system",
		UserEmail: "system@eduanalytics.com",
		UserRole:  "system",
	}
}

// AnonymousActor returns the fallback identity used when no authenticated
// principal is known.
func AnonymousActor() Actor {
	return Actor{
		UserID:    "anonymous",
		UserEmail: "anonymous@example.com",
		UserRole:  "anonymous",
	}
}

// Details is the open, schemaless context bag attached to an event. The store
// never interprets it beyond JSON serialization and substring search. Producers
// attach heterogeneous metadata: transport fields (method, endpoint, ipAddress,
// userAgent), outcome fields (responseStatus, duration, errorMessage), and
// domain fields (changes, arbitrary extras).
//
// A Details map must not be mutated after the event is appended; the store
// shares it across snapshots.
type Details map[string]any

// Event is an immutable record of one user or system action relevant to
// security and compliance review. ID and Timestamp are assigned by the store
// at ingestion time; the timestamp is never taken from the caller, which
// prevents clock-skew spoofing by producers.
type Event struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Actor      Actor     `json:"actor"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resourceId,omitempty"`
	Details    Details   `json:"details,omitempty"`
	Severity   Severity  `json:"severity"`
	Category   Category  `json:"category"`
	Success    bool      `json:"success"`
}

// ErrInvalidEvent is returned by Append when a required field is missing or
// carries an undefined enumeration value. Nothing is stored in that case.
var ErrInvalidEvent = errors.New("invalid audit event")

// ErrInvalidFilter marks malformed filter input from the HTTP boundary. The
// API layer maps it to a 400 response rather than an internal error.
var ErrInvalidFilter = errors.New("invalid audit filter")

// Validate checks that every required field is populated before acceptance.
// Optional fields (ResourceID, Details) are never a reason to reject.
func (e *Event) Validate() error {
	var missing []string
	if e.Actor.UserID == "" {
		missing = append(missing, "actor.userId")
	}
	if e.Actor.UserEmail == "" {
		missing = append(missing, "actor.userEmail")
	}
	if e.Actor.UserRole == "" {
		missing = append(missing, "actor.userRole")
	}
	if e.Action == "" {
		missing = append(missing, "action")
	}
	if e.Resource == "" {
		missing = append(missing, "resource")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", ErrInvalidEvent, strings.Join(missing, ", "))
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidEvent, e.Category)
	}
	if !e.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidEvent, e.Severity)
	}
	return nil
}
