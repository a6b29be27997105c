package peersync

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/events"
	"github.com/papercomputeco/engram/pkg/record"
)

// Applier is the local write path sync merges through. The layer manager
// implements it, so merged records land with the same storage and index
// consistency as local writes.
type Applier interface {
	Snapshot(ctx context.Context, tenantID string, since time.Time) ([]*record.MemoryRecord, error)
	ApplyRemote(ctx context.Context, rec *record.MemoryRecord) error
}

// MergeSummary reports what one sync exchange changed.
type MergeSummary struct {
	TenantID string `json:"tenant_id"`
	PeerID   string `json:"peer_id"`

	Added     int `json:"added"`
	Resolved  int `json:"resolved"`
	Unchanged int `json:"unchanged"`
	LocalOnly int `json:"local_only"`
}

// Syncer exchanges encrypted record batches with peers. Exchanges with
// the same peer are serialized; different peers proceed concurrently.
type Syncer struct {
	applier  Applier
	cipher   *Cipher
	resolver Resolver
	sink     events.Sink
	logger   *zap.Logger

	peers sync.Map // peerID -> *sync.Mutex
}

// NewSyncer wires a syncer. sink may be nil when conflict events are not
// wanted.
func NewSyncer(applier Applier, cipher *Cipher, resolver Resolver, sink events.Sink, logger *zap.Logger) *Syncer {
	if resolver == nil {
		resolver = NewResolver(StrategyLastWriteWins)
	}
	return &Syncer{
		applier:  applier,
		cipher:   cipher,
		resolver: resolver,
		sink:     sink,
		logger:   logger,
	}
}

// Export seals a tenant's snapshot (records modified after since; zero
// time means everything) for transmission to a peer.
func (s *Syncer) Export(ctx context.Context, tenantID string, since time.Time) ([]byte, error) {
	recs, err := s.applier.Snapshot(ctx, tenantID, since)
	if err != nil {
		return nil, err
	}
	return s.cipher.EncryptBatch(recs)
}

// Merge decrypts a peer's payload and folds it into local state: new
// records are inserted, conflicting ones go through the resolver, and
// local-only records are left alone. The payload is rejected wholesale
// when authentication fails.
func (s *Syncer) Merge(ctx context.Context, tenantID, peerID string, payload []byte) (*MergeSummary, error) {
	lock := s.peerLock(peerID)
	lock.Lock()
	defer lock.Unlock()

	remote, err := s.cipher.DecryptBatch(payload)
	if err != nil {
		return nil, err
	}

	local, err := s.applier.Snapshot(ctx, tenantID, time.Time{})
	if err != nil {
		return nil, err
	}

	diff := Compute(local, remote)
	summary := &MergeSummary{
		TenantID:  tenantID,
		PeerID:    peerID,
		Unchanged: diff.Unchanged,
		LocalOnly: len(diff.LocalOnly),
	}

	for _, rec := range diff.Added {
		if rec.TenantID != tenantID {
			s.logger.Warn("skipping cross-tenant record in sync payload",
				zap.String("peer", peerID),
				zap.String("id", rec.ID))
			continue
		}
		if err := s.applier.ApplyRemote(ctx, rec); err != nil {
			return nil, err
		}
		summary.Added++
	}

	for _, pair := range diff.Modified {
		merged := s.resolver.Resolve(pair)
		if err := s.applier.ApplyRemote(ctx, merged); err != nil {
			return nil, err
		}
		summary.Resolved++
		s.publishConflict(ctx, tenantID, peerID, pair, merged)
	}

	s.logger.Debug("sync merge completed",
		zap.String("tenant", tenantID),
		zap.String("peer", peerID),
		zap.Int("added", summary.Added),
		zap.Int("resolved", summary.Resolved),
		zap.Int("unchanged", summary.Unchanged))

	return summary, nil
}

func (s *Syncer) publishConflict(ctx context.Context, tenantID, peerID string, pair Pair, merged *record.MemoryRecord) {
	if s.sink == nil {
		return
	}
	event := events.New(events.TypeConflictResolved, tenantID, merged.ID, map[string]any{
		"peer":           peerID,
		"local_version":  pair.Local.Version,
		"remote_version": pair.Remote.Version,
		"winner_node":    merged.NodeID,
	})
	if err := s.sink.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish conflict event", zap.Error(err))
	}
}

func (s *Syncer) peerLock(peerID string) *sync.Mutex {
	lock, _ := s.peers.LoadOrStore(peerID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
