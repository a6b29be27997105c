package layers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/events"
	"github.com/papercomputeco/engram/pkg/record"
	"github.com/papercomputeco/engram/pkg/scoring"
	"github.com/papercomputeco/engram/pkg/storage"
)

const (
	// MinClusterSize is how many long-term records must share a tag
	// before synthesis considers them a theme.
	MinClusterSize = 3

	// clusterSimilarityFloor drops cluster members whose embedding sits
	// too far from the cluster centroid.
	clusterSimilarityFloor = 0.3

	// memberExcerptLen bounds how much of each member's content the
	// synthesized record quotes.
	memberExcerptLen = 80
)

// SynthesisSummary reports what one synthesis pass produced.
type SynthesisSummary struct {
	TenantID string `json:"tenant_id"`
	Clusters int    `json:"clusters"`
	Created  int    `json:"created"`
}

// Synthesize scans a tenant's long-term layer for clusters of records
// sharing a tag and condenses each cluster into a new reflective record.
// Source records are left in place; reflective records are always new
// entities. Re-running over an unchanged cluster is a no-op because the
// synthesized content hashes identically.
func (m *Manager) Synthesize(ctx context.Context, tenantID string) (*SynthesisSummary, error) {
	lock := m.sweepLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	now := m.now()
	summary := &SynthesisSummary{TenantID: tenantID}

	layer := record.LayerLongTerm
	recs, err := m.store.List(ctx, tenantID, storage.Criteria{Layer: &layer})
	if err != nil {
		return nil, err
	}

	byTag := make(map[string][]*record.MemoryRecord)
	for _, rec := range recs {
		for _, tag := range rec.Tags {
			byTag[tag] = append(byTag[tag], rec)
		}
	}

	// Walk tags in a fixed order so synthesis output is deterministic.
	tags := lo.Keys(byTag)
	sort.Strings(tags)

	for _, tag := range tags {
		members := coherentMembers(byTag[tag])
		if len(members) < MinClusterSize {
			continue
		}
		summary.Clusters++

		created, err := m.synthesizeCluster(ctx, tenantID, tag, members, now)
		if err != nil {
			return nil, err
		}
		if created {
			summary.Created++
		}
	}

	if summary.Created > 0 {
		m.invalidate(tenantID)
	}

	m.logger.Debug("synthesis completed",
		zap.String("tenant", tenantID),
		zap.Int("clusters", summary.Clusters),
		zap.Int("created", summary.Created))

	return summary, nil
}

// coherentMembers filters a tag group down to records whose embeddings
// agree with the group centroid. Records without embeddings are kept;
// tags alone are enough signal for them.
func coherentMembers(members []*record.MemoryRecord) []*record.MemoryRecord {
	centroid := embeddingCentroid(members)
	if centroid == nil {
		return members
	}
	return lo.Filter(members, func(rec *record.MemoryRecord, _ int) bool {
		if len(rec.Embedding) == 0 {
			return true
		}
		return scoring.Cosine(rec.Embedding, centroid) >= clusterSimilarityFloor
	})
}

// synthesizeCluster creates one reflective record for a tag cluster.
// Returns false when an identical synthesis already exists.
func (m *Manager) synthesizeCluster(ctx context.Context, tenantID, tag string, members []*record.MemoryRecord, now time.Time) (bool, error) {
	content := synthesisContent(tag, members)

	rec := record.New(tenantID, content, 0, now)
	rec.MoveToLayer(record.LayerReflective, now)

	// Same cluster, same content, same hash: already synthesized.
	if _, err := m.store.FindByContentHash(ctx, tenantID, rec.ContentHash); err == nil {
		return false, nil
	}

	best := lo.MaxBy(members, func(a, b *record.MemoryRecord) bool {
		return a.Importance > b.Importance
	})
	rec.Importance = best.Importance
	rec.Type = "reflective"
	rec.Source = "synthesis"
	rec.NodeID = m.nodeID
	rec.Tags = lo.Uniq(lo.FlatMap(members, func(r *record.MemoryRecord, _ int) []string {
		return r.Tags
	}))
	sort.Strings(rec.Tags)
	rec.Embedding = embeddingCentroid(members)

	if err := m.store.Insert(ctx, rec); err != nil {
		return false, err
	}
	if len(rec.Embedding) > 0 {
		if err := m.index.Upsert(ctx, tenantID, rec.ID, rec.Embedding); err != nil {
			m.logger.Warn("failed to index synthesized record",
				zap.String("tenant", tenantID),
				zap.String("id", rec.ID),
				zap.Error(err))
		}
	}

	m.publish(ctx, events.New(events.TypeReflectionSynthesized, tenantID, rec.ID, map[string]any{
		"tag":     tag,
		"members": len(members),
	}))
	return true, nil
}

// synthesisContent builds the deterministic text of a reflective record:
// a header naming the theme, then one excerpt per member in creation
// order.
func synthesisContent(tag string, members []*record.MemoryRecord) string {
	sorted := make([]*record.MemoryRecord, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Reflection on %q across %d memories:", tag, len(sorted))
	for _, rec := range sorted {
		excerpt := rec.Content
		if len(excerpt) > memberExcerptLen {
			// Back off to a rune boundary so the cut never leaves a
			// partial UTF-8 sequence in the synthesized content.
			cut := memberExcerptLen
			for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
				cut--
			}
			excerpt = excerpt[:cut]
		}
		b.WriteString("\n- ")
		b.WriteString(excerpt)
	}
	return b.String()
}

// embeddingCentroid averages member embeddings; nil when no member
// carries one. Mixed dimensionalities skip the odd ones out.
func embeddingCentroid(members []*record.MemoryRecord) []float32 {
	var dims int
	for _, rec := range members {
		if len(rec.Embedding) > 0 {
			dims = len(rec.Embedding)
			break
		}
	}
	if dims == 0 {
		return nil
	}

	sum := make([]float64, dims)
	count := 0
	for _, rec := range members {
		if len(rec.Embedding) != dims {
			continue
		}
		for i, v := range rec.Embedding {
			sum[i] += float64(v)
		}
		count++
	}
	if count == 0 {
		return nil
	}

	out := make([]float32, dims)
	for i := range sum {
		out[i] = float32(sum[i] / float64(count))
	}
	return out
}
