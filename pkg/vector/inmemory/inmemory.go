// Package inmemory is a brute-force vector index. Linear scan with exact
// cosine similarity; fine for the working sets a single node holds.
package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/papercomputeco/engram/pkg/scoring"
	"github.com/papercomputeco/engram/pkg/vector"
)

// Driver holds embeddings in nested maps keyed by tenant and ID. The
// first upsert fixes a tenant's dimensionality; vectors of any other
// width are rejected with a DimensionError rather than scored.
type Driver struct {
	mu      sync.RWMutex
	tenants map[string]map[string][]float32
	dims    map[string]int
}

// New creates an empty index.
func New() *Driver {
	return &Driver{
		tenants: make(map[string]map[string][]float32),
		dims:    make(map[string]int),
	}
}

func (d *Driver) Upsert(_ context.Context, tenantID, id string, embedding []float32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if want, ok := d.dims[tenantID]; ok && want != len(embedding) {
		return vector.DimensionError{Want: want, Got: len(embedding)}
	}

	tenant, ok := d.tenants[tenantID]
	if !ok {
		tenant = make(map[string][]float32)
		d.tenants[tenantID] = tenant
	}

	cp := make([]float32, len(embedding))
	copy(cp, embedding)
	tenant[id] = cp
	d.dims[tenantID] = len(embedding)
	return nil
}

func (d *Driver) Query(_ context.Context, tenantID string, embedding []float32, limit int) ([]vector.Result, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if want, ok := d.dims[tenantID]; ok && want != len(embedding) {
		return nil, vector.DimensionError{Want: want, Got: len(embedding)}
	}

	tenant := d.tenants[tenantID]
	results := make([]vector.Result, 0, len(tenant))
	for id, emb := range tenant {
		results = append(results, vector.Result{
			ID:    id,
			Score: scoring.Cosine(embedding, emb),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (d *Driver) Delete(_ context.Context, tenantID, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.tenants[tenantID], id)
	if len(d.tenants[tenantID]) == 0 {
		delete(d.tenants, tenantID)
		delete(d.dims, tenantID)
	}
	return nil
}

func (d *Driver) Count(_ context.Context, tenantID string) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.tenants[tenantID]), nil
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tenants = make(map[string]map[string][]float32)
	d.dims = make(map[string]int)
	return nil
}
