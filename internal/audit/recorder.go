// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

package audit

// Recorder exposes the standard append profiles used by producers. Each
// profile fixes category and severity policy for one kind of call site;
// they are policy over Append, not separate mechanisms.
type Recorder struct {
	store *Store
}

// NewRecorder wraps store with the standard append profiles.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store}
}

// Store returns the underlying event store.
func (r *Recorder) Store() *Store {
	return r.store
}

// Record appends a fully specified event. Producers that don't fit one of
// the profiles below use this directly.
func (r *Recorder) Record(e *Event) error {
	return r.store.Append(e)
}

// Authentication records a login/logout style attempt. Successful attempts
// are low severity; failures are high.
func (r *Recorder) Authentication(actor Actor, action string, success bool, details Details) error {
	severity := SeverityLow
	if !success {
		severity = SeverityHigh
	}
	return r.store.Append(&Event{
		Actor:    actor,
		Action:   action,
		Resource: "authentication",
		Details:  details,
		Severity: severity,
		Category: CategoryAuthentication,
		Success:  success,
	})
}

// DataAccess records a read of a resource instance. Reads are always low
// severity and always successful; failed reads surface as authorization
// failures or security events instead.
func (r *Recorder) DataAccess(actor Actor, resource, resourceID string, details Details) error {
	return r.store.Append(&Event{
		Actor:      actor,
		Action:     "read",
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
		Severity:   SeverityLow,
		Category:   CategoryDataAccess,
		Success:    true,
	})
}

// DataModification records a write. Deletes are high severity, every other
// write is medium. The field-level changes ride in the details bag.
func (r *Recorder) DataModification(actor Actor, action, resource, resourceID string, changes any, details Details) error {
	severity := SeverityMedium
	if action == "delete" {
		severity = SeverityHigh
	}
	merged := make(Details, len(details)+1)
	for k, v := range details {
		merged[k] = v
	}
	if changes != nil {
		merged["changes"] = changes
	}
	return r.store.Append(&Event{
		Actor:      actor,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    merged,
		Severity:   severity,
		Category:   CategoryDataModification,
		Success:    true,
	})
}

// AuthorizationFailure records a denied access attempt: high severity,
// never successful.
func (r *Recorder) AuthorizationFailure(actor Actor, resource, action string, details Details) error {
	return r.store.Append(&Event{
		Actor:    actor,
		Action:   action,
		Resource: resource,
		Details:  details,
		Severity: SeverityHigh,
		Category: CategoryAuthorization,
		Success:  false,
	})
}

// SecurityEvent records a security incident: critical severity, never
// successful, fixed to the security resource.
func (r *Recorder) SecurityEvent(actor Actor, action string, details Details) error {
	return r.store.Append(&Event{
		Actor:    actor,
		Action:   action,
		Resource: "security",
		Details:  details,
		Severity: SeverityCritical,
		Category: CategorySecurity,
		Success:  false,
	})
}

// SystemEvent records an internally generated action under the fixed system
// identity: medium severity, always successful.
func (r *Recorder) SystemEvent(action string, details Details) error {
	return r.store.Append(&Event{
		Actor:    SystemActor(),
		Action:   action,
		Resource: "system",
		Details:  details,
		Severity: SeverityMedium,
		Category: CategorySystem,
		Success:  true,
	})
}
