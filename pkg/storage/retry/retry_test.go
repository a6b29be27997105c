package retry_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/record"
	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/storage/inmemory"
	"github.com/papercomputeco/engram/pkg/storage/retry"
)

// flakyDriver fails the first failures calls to Get with a StorageError,
// then delegates to a real in-memory driver.
type flakyDriver struct {
	*inmemory.Driver
	failures int
	calls    int
}

func (f *flakyDriver) Get(ctx context.Context, tenantID, id string) (*record.MemoryRecord, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, storage.StorageError{Op: "get", Err: errors.New("transient backend failure")}
	}
	return f.Driver.Get(ctx, tenantID, id)
}

var _ = Describe("Driver", func() {
	var (
		ctx   context.Context
		now   time.Time
		inner *flakyDriver
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		inner = &flakyDriver{Driver: inmemory.New()}
	})

	It("retries transient failures until the backend recovers", func() {
		rec := record.New("t1", "resilient", 0.5, now)
		Expect(inner.Insert(ctx, rec)).To(Succeed())

		inner.failures = 2
		wrapped := retry.New(inner, 3)

		got, err := wrapped.Get(ctx, "t1", rec.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(rec.ID))
		Expect(inner.calls).To(Equal(3))
	})

	It("gives up after the retry budget", func() {
		inner.failures = 100
		wrapped := retry.New(inner, 2)

		_, err := wrapped.Get(ctx, "t1", "anything")
		Expect(err).To(HaveOccurred())
		Expect(inner.calls).To(Equal(3)) // initial attempt + 2 retries
	})

	It("does not retry semantic misses", func() {
		wrapped := retry.New(inner, 3)

		_, err := wrapped.Get(ctx, "t1", "missing")
		var nf storage.NotFoundError
		Expect(err).To(BeAssignableToTypeOf(nf))
		Expect(inner.calls).To(Equal(1))
	})

	It("does not retry insert collisions", func() {
		rec := record.New("t1", "once", 0.5, now)
		wrapped := retry.New(inner, 3)
		Expect(wrapped.Insert(ctx, rec)).To(Succeed())

		err := wrapped.Insert(ctx, rec)
		var exists storage.AlreadyExistsError
		Expect(err).To(BeAssignableToTypeOf(exists))
	})
})
