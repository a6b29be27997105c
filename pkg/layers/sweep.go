package layers

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/events"
	"github.com/papercomputeco/engram/pkg/record"
	"github.com/papercomputeco/engram/pkg/scoring"
	"github.com/papercomputeco/engram/pkg/storage"
)

// SweepSummary reports what one consolidation sweep did.
type SweepSummary struct {
	TenantID   string    `json:"tenant_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Scanned  int `json:"scanned"`
	Decayed  int `json:"decayed"`
	Expired  int `json:"expired"`
	Promoted int `json:"promoted"`
	Evicted  int `json:"evicted"`
}

// Sweep runs one consolidation pass for a tenant: decay strengths, delete
// expired records, promote eligible ones, then enforce layer capacities.
// Sweeps for the same tenant are serialized; sweeps for different tenants
// run concurrently.
func (m *Manager) Sweep(ctx context.Context, tenantID string) (*SweepSummary, error) {
	lock := m.sweepLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	now := m.now()
	summary := &SweepSummary{TenantID: tenantID, StartedAt: now}

	recs, err := m.store.List(ctx, tenantID, storage.Criteria{})
	if err != nil {
		return nil, err
	}
	summary.Scanned = len(recs)

	survivors := make([]*record.MemoryRecord, 0, len(recs))
	for _, rec := range recs {
		kept, err := m.decayAndExpire(ctx, rec, now, summary)
		if err != nil {
			return nil, err
		}
		if kept != nil {
			survivors = append(survivors, kept)
		}
	}

	for _, rec := range survivors {
		if err := m.maybePromote(ctx, rec, now, summary); err != nil {
			return nil, err
		}
	}

	for _, layer := range record.Layers {
		if err := m.enforceCapacity(ctx, tenantID, layer, summary); err != nil {
			return nil, err
		}
	}

	if summary.Decayed+summary.Expired+summary.Promoted+summary.Evicted > 0 {
		m.invalidate(tenantID)
	}

	summary.FinishedAt = m.now()
	m.publish(ctx, events.New(events.TypeSweepCompleted, tenantID, "", map[string]any{
		"scanned":  summary.Scanned,
		"decayed":  summary.Decayed,
		"expired":  summary.Expired,
		"promoted": summary.Promoted,
		"evicted":  summary.Evicted,
	}))

	m.logger.Debug("sweep completed",
		zap.String("tenant", tenantID),
		zap.Int("scanned", summary.Scanned),
		zap.Int("expired", summary.Expired),
		zap.Int("promoted", summary.Promoted),
		zap.Int("evicted", summary.Evicted))

	return summary, nil
}

// decayAndExpire recomputes a record's strength from its full elapsed
// time (so repeated sweeps at the same instant are idempotent) and
// deletes it when its TTL has passed or its strength fell through the
// layer floor. Returns the surviving record, or nil when deleted.
func (m *Manager) decayAndExpire(ctx context.Context, stale *record.MemoryRecord, now time.Time, summary *SweepSummary) (*record.MemoryRecord, error) {
	lock := m.recordLock(stale.TenantID, stale.ID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := m.store.Get(ctx, stale.TenantID, stale.ID)
	if err != nil {
		if _, ok := err.(storage.NotFoundError); ok {
			return nil, nil
		}
		return nil, err
	}

	if rec.Expired(now) {
		if err := m.removeLocked(ctx, rec); err != nil {
			return nil, err
		}
		summary.Expired++
		m.publish(ctx, events.New(events.TypeRecordExpired, rec.TenantID, rec.ID, map[string]any{
			"layer": rec.Layer.String(),
		}))
		return nil, nil
	}

	policy := m.policies[rec.Layer]

	ref := rec.EnteredLayerAt
	if rec.LastAccessedAt != nil && rec.LastAccessedAt.After(ref) {
		ref = *rec.LastAccessedAt
	}
	strength := scoring.Decay(1.0, now.Sub(ref), policy.DecayRate, rec.AccessCount)

	if policy.StrengthFloor > 0 && strength < policy.StrengthFloor {
		if err := m.removeLocked(ctx, rec); err != nil {
			return nil, err
		}
		summary.Expired++
		m.publish(ctx, events.New(events.TypeRecordExpired, rec.TenantID, rec.ID, map[string]any{
			"layer":  rec.Layer.String(),
			"reason": "strength_floor",
		}))
		return nil, nil
	}

	if strength != rec.Strength {
		rec.Strength = strength
		rec.LastModified = now
		if err := m.store.Update(ctx, rec); err != nil {
			return nil, err
		}
		summary.Decayed++
	}
	return rec, nil
}

// maybePromote moves a record up one layer when it passes the promotion
// gate. Promotion resets the dwell clock and applies the target layer's
// TTL.
func (m *Manager) maybePromote(ctx context.Context, stale *record.MemoryRecord, now time.Time, summary *SweepSummary) error {
	next, ok := stale.Layer.Next()
	if !ok {
		return nil
	}
	if !m.policies[stale.Layer].promotable(stale, now) {
		return nil
	}

	lock := m.recordLock(stale.TenantID, stale.ID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := m.store.Get(ctx, stale.TenantID, stale.ID)
	if err != nil {
		if _, ok := err.(storage.NotFoundError); ok {
			return nil
		}
		return err
	}

	from := rec.Layer
	rec.MoveToLayer(next, now)
	rec.Strength = 1.0

	if ttl := m.policies[next].TTL; ttl > 0 {
		exp := now.Add(ttl)
		rec.ExpiresAt = &exp
	} else {
		rec.ExpiresAt = nil
	}

	if err := m.store.Update(ctx, rec); err != nil {
		return err
	}

	summary.Promoted++
	m.publish(ctx, events.New(events.TypeRecordPromoted, rec.TenantID, rec.ID, map[string]any{
		"from": from.String(),
		"to":   next.String(),
	}))
	return nil
}

// enforceCapacity evicts the least valuable records until the layer fits
// its ceiling. Victims are picked by lowest importance, then fewest
// accesses, then oldest creation time, so the ordering is deterministic.
func (m *Manager) enforceCapacity(ctx context.Context, tenantID string, layer record.Layer, summary *SweepSummary) error {
	policy := m.policies[layer]
	if policy.Capacity <= 0 {
		return nil
	}

	recs, err := m.store.List(ctx, tenantID, storage.Criteria{Layer: &layer})
	if err != nil {
		return err
	}
	overflow := len(recs) - policy.Capacity
	if overflow <= 0 {
		return nil
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Importance != recs[j].Importance {
			return recs[i].Importance < recs[j].Importance
		}
		if recs[i].AccessCount != recs[j].AccessCount {
			return recs[i].AccessCount < recs[j].AccessCount
		}
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.Before(recs[j].CreatedAt)
		}
		return recs[i].ID < recs[j].ID
	})

	for _, victim := range recs[:overflow] {
		lock := m.recordLock(victim.TenantID, victim.ID)
		lock.Lock()
		err := m.removeLocked(ctx, victim)
		lock.Unlock()
		if err != nil {
			if _, ok := err.(storage.NotFoundError); ok {
				continue
			}
			return err
		}

		summary.Evicted++
		m.publish(ctx, events.New(events.TypeRecordEvicted, victim.TenantID, victim.ID, map[string]any{
			"layer":      victim.Layer.String(),
			"importance": victim.Importance,
		}))
	}
	return nil
}

// removeLocked deletes a record from storage and the index. The caller
// holds the record's stripe lock.
func (m *Manager) removeLocked(ctx context.Context, rec *record.MemoryRecord) error {
	if err := m.store.Delete(ctx, rec.TenantID, rec.ID); err != nil {
		return err
	}
	if err := m.index.Delete(ctx, rec.TenantID, rec.ID); err != nil {
		m.logger.Warn("failed to remove record from vector index",
			zap.String("tenant", rec.TenantID),
			zap.String("id", rec.ID),
			zap.Error(err))
	}
	return nil
}
