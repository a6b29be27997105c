// Package layers implements the memory lifecycle: ingest into the sensory
// layer, consolidation sweeps that decay, expire, promote, and evict, and
// synthesis of reflective records from long-term clusters.
package layers

import (
	"time"

	"github.com/papercomputeco/engram/pkg/record"
)

// Policy governs one layer's retention behavior.
type Policy struct {
	// Capacity is the per-tenant record ceiling; 0 means unbounded.
	Capacity int

	// TTL is applied to records entering the layer; 0 means none.
	TTL time.Duration

	// DecayRate is the base strength decay per second.
	DecayRate float64

	// StrengthFloor deletes records that decay below it; 0 disables.
	StrengthFloor float64

	// PromotionThreshold is the minimum importance for promotion out of
	// this layer.
	PromotionThreshold float64

	// MinAccessCount is the minimum retrievals in this layer before
	// promotion.
	MinAccessCount int

	// MinDwell is how long a record must sit in this layer before it is
	// eligible to promote.
	MinDwell time.Duration
}

// Policies maps each layer to its policy.
type Policies map[record.Layer]Policy

// DefaultPolicies returns the standard lifecycle tuning. Sensory is a
// small, fast-decaying buffer; working holds the active set; long-term
// and reflective decay slowly and never promote.
func DefaultPolicies() Policies {
	return Policies{
		record.LayerSensory: {
			Capacity:           100,
			TTL:                24 * time.Hour,
			DecayRate:          1.0 / (6 * 3600), // ~63% loss over 6h untouched
			StrengthFloor:      0.05,
			PromotionThreshold: 0.3,
			MinAccessCount:     0,
			MinDwell:           0,
		},
		record.LayerWorking: {
			Capacity:           500,
			TTL:                7 * 24 * time.Hour,
			DecayRate:          1.0 / (3 * 24 * 3600),
			StrengthFloor:      0.02,
			PromotionThreshold: 0.6,
			MinAccessCount:     2,
			MinDwell:           10 * time.Minute,
		},
		record.LayerLongTerm: {
			Capacity:  5000,
			DecayRate: 1.0 / (90 * 24 * 3600),
		},
		record.LayerReflective: {
			Capacity:  10000,
			DecayRate: 1.0 / (365 * 24 * 3600),
		},
	}
}

// promotable reports whether a record meets this layer's promotion gate
// at the given time.
func (p Policy) promotable(rec *record.MemoryRecord, now time.Time) bool {
	if rec.Importance < p.PromotionThreshold {
		return false
	}
	if rec.AccessCount < p.MinAccessCount {
		return false
	}
	if now.Sub(rec.EnteredLayerAt) < p.MinDwell {
		return false
	}
	return true
}
