// Package events defines the lifecycle event model and the sink contract.
// Sinks are fire-and-forget: the engine never blocks a sweep or a sync on
// event delivery.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies what happened.
type Type string

const (
	// TypeRecordIngested fires when a new record enters the sensory layer.
	TypeRecordIngested Type = "record.ingested"

	// TypeRecordPromoted fires when a sweep moves a record up a layer.
	TypeRecordPromoted Type = "record.promoted"

	// TypeRecordEvicted fires when capacity pressure removes a record.
	TypeRecordEvicted Type = "record.evicted"

	// TypeRecordExpired fires when a sweep deletes a record past its TTL.
	TypeRecordExpired Type = "record.expired"

	// TypeSweepCompleted fires once per finished consolidation sweep.
	TypeSweepCompleted Type = "sweep.completed"

	// TypeConflictResolved fires when sync merges a conflicting snapshot.
	TypeConflictResolved Type = "sync.conflict.resolved"

	// TypeReflectionSynthesized fires when synthesis creates a new
	// reflective record.
	TypeReflectionSynthesized Type = "reflection.synthesized"
)

// Event is a single lifecycle notification.
type Event struct {
	// ID is a unique event identifier.
	ID string `json:"id"`

	Type     Type   `json:"type"`
	TenantID string `json:"tenant_id"`

	// RecordID is set for record-scoped events, empty for sweep-scoped.
	RecordID string `json:"record_id,omitempty"`

	Timestamp time.Time `json:"timestamp"`

	// Fields carries event-specific details (layers, counts, peers).
	Fields map[string]any `json:"fields,omitempty"`
}

// New builds an event with a fresh UUID and the current time.
func New(t Type, tenantID, recordID string, fields map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		TenantID:  tenantID,
		RecordID:  recordID,
		Timestamp: time.Now().UTC(),
		Fields:    fields,
	}
}
