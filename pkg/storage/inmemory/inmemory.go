// Package inmemory provides a map-backed storage driver. It is the
// default for tests and single-process deployments; everything is lost on
// restart.
package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/papercomputeco/engram/pkg/record"
	"github.com/papercomputeco/engram/pkg/storage"
)

// Driver stores records in nested maps keyed by tenant and record ID.
type Driver struct {
	mu      sync.RWMutex
	tenants map[string]map[string]*record.MemoryRecord
}

// New creates an empty in-memory driver.
func New() *Driver {
	return &Driver{
		tenants: make(map[string]map[string]*record.MemoryRecord),
	}
}

func (d *Driver) Insert(_ context.Context, rec *record.MemoryRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	tenant, ok := d.tenants[rec.TenantID]
	if !ok {
		tenant = make(map[string]*record.MemoryRecord)
		d.tenants[rec.TenantID] = tenant
	}

	if _, exists := tenant[rec.ID]; exists {
		return storage.AlreadyExistsError{TenantID: rec.TenantID, ID: rec.ID}
	}

	tenant[rec.ID] = rec.Clone()
	return nil
}

func (d *Driver) Get(_ context.Context, tenantID, id string) (*record.MemoryRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.tenants[tenantID][id]
	if !ok {
		return nil, storage.NotFoundError{TenantID: tenantID, ID: id}
	}
	return rec.Clone(), nil
}

func (d *Driver) List(_ context.Context, tenantID string, c storage.Criteria) ([]*record.MemoryRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*record.MemoryRecord
	for _, rec := range d.tenants[tenantID] {
		if matches(rec, c) {
			out = append(out, rec.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if c.Limit > 0 && len(out) > c.Limit {
		out = out[:c.Limit]
	}
	return out, nil
}

func (d *Driver) Update(_ context.Context, rec *record.MemoryRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	tenant, ok := d.tenants[rec.TenantID]
	if !ok {
		return storage.NotFoundError{TenantID: rec.TenantID, ID: rec.ID}
	}
	if _, exists := tenant[rec.ID]; !exists {
		return storage.NotFoundError{TenantID: rec.TenantID, ID: rec.ID}
	}

	tenant[rec.ID] = rec.Clone()
	return nil
}

func (d *Driver) Delete(_ context.Context, tenantID, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tenant, ok := d.tenants[tenantID]
	if !ok {
		return storage.NotFoundError{TenantID: tenantID, ID: id}
	}
	if _, exists := tenant[id]; !exists {
		return storage.NotFoundError{TenantID: tenantID, ID: id}
	}

	delete(tenant, id)
	return nil
}

func (d *Driver) CountByLayer(_ context.Context, tenantID string, layer record.Layer) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	count := 0
	for _, rec := range d.tenants[tenantID] {
		if rec.Layer == layer {
			count++
		}
	}
	return count, nil
}

func (d *Driver) FindByContentHash(_ context.Context, tenantID, hash string) (*record.MemoryRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, rec := range d.tenants[tenantID] {
		if rec.ContentHash == hash {
			return rec.Clone(), nil
		}
	}
	return nil, storage.NotFoundError{TenantID: tenantID, ID: hash}
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tenants = make(map[string]map[string]*record.MemoryRecord)
	return nil
}

func matches(rec *record.MemoryRecord, c storage.Criteria) bool {
	if c.Layer != nil && rec.Layer != *c.Layer {
		return false
	}
	if c.Project != "" && rec.Project != c.Project {
		return false
	}
	if rec.Importance < c.MinImportance {
		return false
	}
	if !c.ModifiedSince.IsZero() && !rec.LastModified.After(c.ModifiedSince) {
		return false
	}
	for _, want := range c.Tags {
		found := false
		for _, tag := range rec.Tags {
			if tag == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
