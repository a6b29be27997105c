// Package retry decorates a storage driver with exponential backoff.
// Reads are always retried; writes are retried too because every write in
// the contract is idempotent by key (Insert collisions surface as
// AlreadyExistsError, which is not retried).
package retry

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"

	"github.com/papercomputeco/engram/pkg/record"
	"github.com/papercomputeco/engram/pkg/storage"
)

// DefaultMaxRetries bounds attempts per operation.
const DefaultMaxRetries = 3

// Driver wraps an inner storage driver with retry semantics.
type Driver struct {
	inner      storage.Driver
	maxRetries uint64
}

// New wraps inner with up to maxRetries retries per operation. Zero falls
// back to DefaultMaxRetries.
func New(inner storage.Driver, maxRetries uint64) *Driver {
	if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Driver{inner: inner, maxRetries: maxRetries}
}

// retryable reports whether an error is a transient backend failure.
// Semantic misses (not found, already exists, validation) never retry.
func retryable(err error) bool {
	var se storage.StorageError
	return errors.As(err, &se)
}

func (d *Driver) do(ctx context.Context, op func() error) error {
	operation := func() error {
		err := op()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), d.maxRetries),
		ctx,
	)
	return backoff.Retry(operation, b)
}

func (d *Driver) Insert(ctx context.Context, rec *record.MemoryRecord) error {
	return d.do(ctx, func() error { return d.inner.Insert(ctx, rec) })
}

func (d *Driver) Get(ctx context.Context, tenantID, id string) (*record.MemoryRecord, error) {
	var out *record.MemoryRecord
	err := d.do(ctx, func() error {
		var err error
		out, err = d.inner.Get(ctx, tenantID, id)
		return err
	})
	return out, err
}

func (d *Driver) List(ctx context.Context, tenantID string, c storage.Criteria) ([]*record.MemoryRecord, error) {
	var out []*record.MemoryRecord
	err := d.do(ctx, func() error {
		var err error
		out, err = d.inner.List(ctx, tenantID, c)
		return err
	})
	return out, err
}

func (d *Driver) Update(ctx context.Context, rec *record.MemoryRecord) error {
	return d.do(ctx, func() error { return d.inner.Update(ctx, rec) })
}

func (d *Driver) Delete(ctx context.Context, tenantID, id string) error {
	return d.do(ctx, func() error { return d.inner.Delete(ctx, tenantID, id) })
}

func (d *Driver) CountByLayer(ctx context.Context, tenantID string, layer record.Layer) (int, error) {
	var out int
	err := d.do(ctx, func() error {
		var err error
		out, err = d.inner.CountByLayer(ctx, tenantID, layer)
		return err
	})
	return out, err
}

func (d *Driver) FindByContentHash(ctx context.Context, tenantID, hash string) (*record.MemoryRecord, error) {
	var out *record.MemoryRecord
	err := d.do(ctx, func() error {
		var err error
		out, err = d.inner.FindByContentHash(ctx, tenantID, hash)
		return err
	})
	return out, err
}

func (d *Driver) Close() error {
	return d.inner.Close()
}
