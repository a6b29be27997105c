// Package record defines the memory record model shared by every layer of
// the engine.
//
// A MemoryRecord is the atomic unit: it is created in the sensory layer,
// promoted through working and long-term storage by consolidation sweeps,
// and may seed derived reflective records. The identifier is a ULID and is
// immutable for the lifetime of the record, across layers and across nodes;
// sync correlates snapshots by it.
package record

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// MemoryRecord is a single tenant-scoped memory.
type MemoryRecord struct {
	// ID is the globally unique, immutable identifier (ULID, time-sortable).
	ID string `json:"id"`

	// TenantID scopes every operation; records never cross tenants.
	TenantID string `json:"tenant_id"`

	// Content is the text payload.
	Content string `json:"content"`

	// Embedding is the optional vector representation of Content.
	Embedding []float32 `json:"embedding,omitempty"`

	// Layer is the retention class the record currently belongs to.
	Layer Layer `json:"layer"`

	// Type is a free-form memory type (e.g. "episodic", "semantic").
	Type string `json:"type,omitempty"`

	// Tags are free-form labels used by the graph strategy and synthesis.
	Tags []string `json:"tags,omitempty"`

	// Importance is the intrinsic value of the content, clamped to [0,1].
	Importance float64 `json:"importance"`

	// Strength decays over time and is clamped to [0,1]. New records start
	// at 1.0.
	Strength float64 `json:"strength"`

	// AccessCount counts retrievals since the record entered its current
	// layer. Promotion resets it.
	AccessCount int `json:"access_count"`

	CreatedAt      time.Time  `json:"created_at"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`

	// EnteredLayerAt marks when the record arrived in its current layer.
	// Dwell time for promotion eligibility is measured from here.
	EnteredLayerAt time.Time `json:"entered_layer_at"`

	// ExpiresAt is the computed expiry, never earlier than CreatedAt.
	// Nil means no TTL.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// Source identifies where the memory came from.
	Source string `json:"source,omitempty"`

	// Project is an optional grouping key.
	Project string `json:"project,omitempty"`

	// LastModified is the sync-relevant modification timestamp.
	LastModified time.Time `json:"last_modified"`

	// ContentHash is deterministic over (content, layer) and is used for
	// tenant-level dedup and sync conflict detection.
	ContentHash string `json:"content_hash"`

	// Version is the per-node version counter, bumped on every update.
	Version int64 `json:"version"`

	// NodeID identifies the node that last wrote the record.
	NodeID string `json:"node_id,omitempty"`
}

// New creates a record in the sensory layer with a fresh ULID, full
// strength, and a computed content hash. The caller supplies tenant,
// content, and importance; everything temporal is derived from now.
func New(tenantID, content string, importance float64, now time.Time) *MemoryRecord {
	r := &MemoryRecord{
		ID:             ulid.Make().String(),
		TenantID:       tenantID,
		Content:        content,
		Layer:          LayerSensory,
		Importance:     importance,
		Strength:       1.0,
		CreatedAt:      now,
		EnteredLayerAt: now,
		LastModified:   now,
	}
	r.ContentHash = r.ComputeContentHash()
	return r
}

// ComputeContentHash returns the deterministic SHA-256 hash of the record's
// content and layer. Identical content in the same layer hashes identically,
// which is what tenant-level dedup keys on.
func (r *MemoryRecord) ComputeContentHash() string {
	// A fixed-field struct marshals with stable key order, so the digest is
	// reproducible across nodes.
	data, err := json.Marshal(struct {
		Content string `json:"content"`
		Layer   string `json:"layer"`
	}{
		Content: r.Content,
		Layer:   r.Layer.String(),
	})
	if err != nil {
		panic("failed to marshal hash input: " + err.Error())
	}

	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SetTTL computes ExpiresAt from the given TTL. Expiry is clamped so it is
// never earlier than CreatedAt.
func (r *MemoryRecord) SetTTL(ttl time.Duration) {
	exp := r.CreatedAt.Add(ttl)
	if exp.Before(r.CreatedAt) {
		exp = r.CreatedAt
	}
	r.ExpiresAt = &exp
}

// Expired reports whether the record's TTL has elapsed at the given time.
func (r *MemoryRecord) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// Touch records an access: bumps the counter and the last-accessed
// timestamp.
func (r *MemoryRecord) Touch(now time.Time) {
	r.AccessCount++
	r.LastAccessedAt = &now
}

// MoveToLayer transitions the record into the target layer, rehashing the
// content (the hash covers the layer) and resetting the per-layer access
// counter and dwell clock.
func (r *MemoryRecord) MoveToLayer(target Layer, now time.Time) {
	r.Layer = target
	r.AccessCount = 0
	r.EnteredLayerAt = now
	r.LastModified = now
	r.Version++
	r.ContentHash = r.ComputeContentHash()
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (r *MemoryRecord) Clone() *MemoryRecord {
	cp := *r
	if r.Embedding != nil {
		cp.Embedding = make([]float32, len(r.Embedding))
		copy(cp.Embedding, r.Embedding)
	}
	if r.Tags != nil {
		cp.Tags = make([]string, len(r.Tags))
		copy(cp.Tags, r.Tags)
	}
	if r.LastAccessedAt != nil {
		t := *r.LastAccessedAt
		cp.LastAccessedAt = &t
	}
	if r.ExpiresAt != nil {
		t := *r.ExpiresAt
		cp.ExpiresAt = &t
	}
	return &cp
}

// Validate checks the invariants that must hold before a record reaches
// storage. It returns a ValidationError naming the first violated field.
func (r *MemoryRecord) Validate() error {
	if r.ID == "" {
		return ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if r.TenantID == "" {
		return ValidationError{Field: "tenant_id", Reason: "must not be empty"}
	}
	if r.Content == "" {
		return ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if !r.Layer.Valid() {
		return ValidationError{Field: "layer", Reason: "unknown layer"}
	}
	if r.Importance < 0 || r.Importance > 1 {
		return ValidationError{Field: "importance", Reason: "must be in [0,1]"}
	}
	if r.Strength < 0 || r.Strength > 1 {
		return ValidationError{Field: "strength", Reason: "must be in [0,1]"}
	}
	if r.ExpiresAt != nil && r.ExpiresAt.Before(r.CreatedAt) {
		return ValidationError{Field: "expires_at", Reason: "must not precede created_at"}
	}
	return nil
}
