package layers

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/events"
	"github.com/papercomputeco/engram/pkg/record"
	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/vector"
	"github.com/papercomputeco/engram/pkg/worker"
)

const lockStripes = 64

// Invalidator is notified after any write that changes what a tenant's
// searches can see, so result caches drop their stale entries.
type Invalidator interface {
	Invalidate(tenantID string)
}

// Manager owns the memory lifecycle. It is the single write path: ingest,
// sweeps, synthesis, and sync merges all go through it so storage and the
// vector index stay consistent.
type Manager struct {
	store       storage.Driver
	index       vector.Driver
	embedder    embeddings.Embedder
	sink        events.Sink
	pool        *worker.Pool
	invalidator Invalidator
	policies    Policies
	logger      *zap.Logger
	nodeID      string
	now         func() time.Time

	// sweeps serializes consolidation per tenant.
	sweeps sync.Map // tenantID -> *sync.Mutex

	// locks stripes per-record mutations (touch, merge) so two writers
	// never interleave a read-modify-write on the same record.
	locks [lockStripes]sync.Mutex
}

// ManagerConfig wires the manager's collaborators. Store, Index, Sink,
// and Logger are required; Embedder and Pool are optional (records are
// simply left unembedded, and async work runs inline).
type ManagerConfig struct {
	Store    storage.Driver
	Index    vector.Driver
	Embedder embeddings.Embedder
	Sink     events.Sink
	Pool     *worker.Pool
	Policies Policies
	NodeID   string
	Logger   *zap.Logger

	// Invalidator, when set, is told about every write so search result
	// caches never outlive the data they were computed from.
	Invalidator Invalidator

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewManager creates a Manager from its configuration.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Store == nil {
		return nil, record.ValidationError{Field: "store", Reason: "is required"}
	}
	if cfg.Index == nil {
		return nil, record.ValidationError{Field: "index", Reason: "is required"}
	}
	if cfg.Sink == nil {
		return nil, record.ValidationError{Field: "sink", Reason: "is required"}
	}
	if cfg.Logger == nil {
		return nil, record.ValidationError{Field: "logger", Reason: "is required"}
	}
	if cfg.Policies == nil {
		cfg.Policies = DefaultPolicies()
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Manager{
		store:       cfg.Store,
		index:       cfg.Index,
		embedder:    cfg.Embedder,
		sink:        cfg.Sink,
		pool:        cfg.Pool,
		invalidator: cfg.Invalidator,
		policies:    cfg.Policies,
		logger:      cfg.Logger,
		nodeID:      cfg.NodeID,
		now:         cfg.Now,
	}, nil
}

// IngestRequest describes a new memory.
type IngestRequest struct {
	TenantID   string
	Content    string
	Importance float64
	Type       string
	Tags       []string
	Source     string
	Project    string

	// TTL overrides the sensory layer's default when positive.
	TTL time.Duration
}

// Ingest creates a record in the sensory layer. Identical unexpired
// content for the same tenant is rejected with a ConflictError naming the
// surviving record; an expired duplicate that the sweep hasn't collected
// yet is replaced. Embedding and indexing run asynchronously when a pool
// is configured.
func (m *Manager) Ingest(ctx context.Context, req IngestRequest) (*record.MemoryRecord, error) {
	now := m.now()
	rec := record.New(req.TenantID, req.Content, req.Importance, now)
	rec.Type = req.Type
	rec.Tags = lo.Uniq(req.Tags)
	rec.Source = req.Source
	rec.Project = req.Project
	rec.NodeID = m.nodeID

	policy := m.policies[record.LayerSensory]
	switch {
	case req.TTL > 0:
		rec.SetTTL(req.TTL)
	case policy.TTL > 0:
		rec.SetTTL(policy.TTL)
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}

	if err := m.insertUnique(ctx, rec, now); err != nil {
		return nil, err
	}
	m.invalidate(req.TenantID)

	m.runAsync(func(taskCtx context.Context) {
		m.embedAndIndex(taskCtx, rec.Clone())
		m.publish(taskCtx, events.New(events.TypeRecordIngested, rec.TenantID, rec.ID, map[string]any{
			"layer": rec.Layer.String(),
		}))
	})

	return rec.Clone(), nil
}

// insertUnique holds a content-hash stripe lock across the duplicate
// lookup and the insert, so two concurrent ingests of identical content
// cannot both pass the check. An expired duplicate that outlived its TTL
// but hasn't been swept yet is cleared instead of blocking the insert.
func (m *Manager) insertUnique(ctx context.Context, rec *record.MemoryRecord, now time.Time) error {
	lock := m.recordLock(rec.TenantID, rec.ContentHash)
	lock.Lock()
	defer lock.Unlock()

	if existing, err := m.store.FindByContentHash(ctx, rec.TenantID, rec.ContentHash); err == nil {
		if !existing.Expired(now) {
			return ConflictError{
				TenantID:    rec.TenantID,
				ExistingID:  existing.ID,
				ContentHash: rec.ContentHash,
			}
		}
		if err := m.Delete(ctx, rec.TenantID, existing.ID); err != nil {
			return err
		}
	}

	return m.store.Insert(ctx, rec)
}

// Get returns a record and, when touch is set, registers the access.
// Touches feed the promotion gate, so retrieval itself strengthens a
// memory.
func (m *Manager) Get(ctx context.Context, tenantID, id string, touch bool) (*record.MemoryRecord, error) {
	if !touch {
		return m.store.Get(ctx, tenantID, id)
	}

	lock := m.recordLock(tenantID, id)
	lock.Lock()
	defer lock.Unlock()

	rec, err := m.store.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	rec.Touch(m.now())
	if err := m.store.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes a record from storage and the vector index.
func (m *Manager) Delete(ctx context.Context, tenantID, id string) error {
	if err := m.store.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	if err := m.index.Delete(ctx, tenantID, id); err != nil {
		m.logger.Warn("failed to remove record from vector index",
			zap.String("tenant", tenantID),
			zap.String("id", id),
			zap.Error(err))
	}
	m.invalidate(tenantID)
	return nil
}

// Snapshot lists a tenant's records modified after since (zero time means
// everything). Sync diffing builds its views from this.
func (m *Manager) Snapshot(ctx context.Context, tenantID string, since time.Time) ([]*record.MemoryRecord, error) {
	return m.store.List(ctx, tenantID, storage.Criteria{ModifiedSince: since})
}

// ApplyRemote upserts a record that arrived from a peer. The record is
// written as-is (sync conflict resolution has already run) and reindexed
// when it carries an embedding.
func (m *Manager) ApplyRemote(ctx context.Context, rec *record.MemoryRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	lock := m.recordLock(rec.TenantID, rec.ID)
	lock.Lock()
	defer lock.Unlock()

	_, err := m.store.Get(ctx, rec.TenantID, rec.ID)
	switch err.(type) {
	case nil:
		if err := m.store.Update(ctx, rec); err != nil {
			return err
		}
	case storage.NotFoundError:
		if err := m.store.Insert(ctx, rec); err != nil {
			return err
		}
	default:
		return err
	}

	if len(rec.Embedding) > 0 {
		if err := m.index.Upsert(ctx, rec.TenantID, rec.ID, rec.Embedding); err != nil {
			m.logger.Warn("failed to index merged record",
				zap.String("tenant", rec.TenantID),
				zap.String("id", rec.ID),
				zap.Error(err))
		}
	}
	m.invalidate(rec.TenantID)
	return nil
}

// Close stops the async pool and closes the event sink. The storage and
// vector drivers are owned by the caller.
func (m *Manager) Close() error {
	if m.pool != nil {
		m.pool.Stop()
	}
	return m.sink.Close()
}

func (m *Manager) embedAndIndex(ctx context.Context, rec *record.MemoryRecord) {
	if m.embedder == nil {
		return
	}

	emb, err := m.embedder.Embed(ctx, rec.Content)
	if err != nil {
		m.logger.Warn("failed to embed record",
			zap.String("tenant", rec.TenantID),
			zap.String("id", rec.ID),
			zap.Error(err))
		return
	}

	if err := m.index.Upsert(ctx, rec.TenantID, rec.ID, emb); err != nil {
		m.logger.Warn("failed to index record",
			zap.String("tenant", rec.TenantID),
			zap.String("id", rec.ID),
			zap.Error(err))
		return
	}

	lock := m.recordLock(rec.TenantID, rec.ID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read before writing the embedding; a sweep may have moved the
	// record while the embedder ran.
	current, err := m.store.Get(ctx, rec.TenantID, rec.ID)
	if err != nil {
		return
	}
	current.Embedding = emb
	if err := m.store.Update(ctx, current); err != nil {
		m.logger.Warn("failed to persist embedding",
			zap.String("tenant", rec.TenantID),
			zap.String("id", rec.ID),
			zap.Error(err))
	}
	m.invalidate(rec.TenantID)
}

func (m *Manager) runAsync(task worker.Task) {
	if m.pool != nil && m.pool.Submit(task) {
		return
	}
	task(context.Background())
}

func (m *Manager) publish(ctx context.Context, event events.Event) {
	if err := m.sink.Publish(ctx, event); err != nil {
		m.logger.Warn("failed to publish event",
			zap.String("type", string(event.Type)),
			zap.Error(err))
	}
}

func (m *Manager) invalidate(tenantID string) {
	if m.invalidator != nil {
		m.invalidator.Invalidate(tenantID)
	}
}

func (m *Manager) recordLock(tenantID, id string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(tenantID))
	h.Write([]byte{0})
	h.Write([]byte(id))
	return &m.locks[h.Sum32()%lockStripes]
}

func (m *Manager) sweepLock(tenantID string) *sync.Mutex {
	lock, _ := m.sweeps.LoadOrStore(tenantID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
