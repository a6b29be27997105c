// Package chromem backs the vector index with chromem-go, one collection
// per tenant. Embeddings are always supplied by the caller, so the
// collection's embedding function is a guard that rejects accidental
// internal embedding.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"sync"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/papercomputeco/engram/pkg/vector"
)

// Driver is a chromem-go backed vector index.
type Driver struct {
	db *chromemgo.DB

	mu          sync.RWMutex
	collections map[string]*chromemgo.Collection
}

// New creates an in-process, non-persistent index.
func New() *Driver {
	return &Driver{
		db:          chromemgo.NewDB(),
		collections: make(map[string]*chromemgo.Collection),
	}
}

// NewPersistent creates an index persisted under path.
func NewPersistent(path string) (*Driver, error) {
	db, err := chromemgo.NewPersistentDB(path, false)
	if err != nil {
		return nil, vector.IndexError{Op: "open", Err: err}
	}
	return &Driver{
		db:          db,
		collections: make(map[string]*chromemgo.Collection),
	}, nil
}

// rejectEmbedding is installed as the collection embedding function: every
// document must arrive with a precomputed embedding.
func rejectEmbedding(_ context.Context, _ string) ([]float32, error) {
	return nil, errors.New("documents must carry precomputed embeddings")
}

func (d *Driver) collection(tenantID string) (*chromemgo.Collection, error) {
	d.mu.RLock()
	c, ok := d.collections[tenantID]
	d.mu.RUnlock()
	if ok {
		return c, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	// Re-check under the write lock; another goroutine may have created it.
	if c, ok := d.collections[tenantID]; ok {
		return c, nil
	}

	c, err := d.db.GetOrCreateCollection(collectionName(tenantID), nil, rejectEmbedding)
	if err != nil {
		return nil, vector.IndexError{Op: "create_collection", Err: err}
	}
	d.collections[tenantID] = c
	return c, nil
}

func collectionName(tenantID string) string {
	return fmt.Sprintf("memories-%s", tenantID)
}

func (d *Driver) Upsert(ctx context.Context, tenantID, id string, embedding []float32) error {
	c, err := d.collection(tenantID)
	if err != nil {
		return err
	}

	err = c.AddDocument(ctx, chromemgo.Document{
		ID:        id,
		Embedding: embedding,
		// chromem requires non-empty content; the ID is enough since
		// record state lives in storage.
		Content: id,
	})
	if err != nil {
		return vector.IndexError{Op: "upsert", Err: err}
	}
	return nil
}

func (d *Driver) Query(ctx context.Context, tenantID string, embedding []float32, limit int) ([]vector.Result, error) {
	c, err := d.collection(tenantID)
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults beyond the collection size.
	count := c.Count()
	if count == 0 {
		return []vector.Result{}, nil
	}
	if limit <= 0 || limit > count {
		limit = count
	}

	hits, err := c.QueryEmbedding(ctx, embedding, limit, nil, nil)
	if err != nil {
		return nil, vector.IndexError{Op: "query", Err: err}
	}

	results := make([]vector.Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, vector.Result{
			ID:    hit.ID,
			Score: float64(hit.Similarity),
		})
	}
	return results, nil
}

func (d *Driver) Delete(ctx context.Context, tenantID, id string) error {
	c, err := d.collection(tenantID)
	if err != nil {
		return err
	}

	if err := c.Delete(ctx, nil, nil, id); err != nil {
		return vector.IndexError{Op: "delete", Err: err}
	}
	return nil
}

func (d *Driver) Count(_ context.Context, tenantID string) (int, error) {
	c, err := d.collection(tenantID)
	if err != nil {
		return 0, err
	}
	return c.Count(), nil
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.collections = make(map[string]*chromemgo.Collection)
	return nil
}
