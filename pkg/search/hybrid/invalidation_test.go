package hybrid_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/layers"
	"github.com/papercomputeco/engram/pkg/search"
	"github.com/papercomputeco/engram/pkg/search/hybrid"
	storageinmemory "github.com/papercomputeco/engram/pkg/storage/inmemory"
	"github.com/papercomputeco/engram/pkg/utils/test"
	vectorinmemory "github.com/papercomputeco/engram/pkg/vector/inmemory"
)

// These specs wire the cache into the layer manager the way the binary
// does, so a cached result set never outlives the records behind it.
var _ = Describe("write invalidation", func() {
	var (
		ctx     context.Context
		store   *storageinmemory.Driver
		cache   *hybrid.Cache
		engine  *hybrid.Engine
		manager *layers.Manager
		clock   time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = storageinmemory.New()
		index := vectorinmemory.New()
		clock = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		var err error
		cache, err = hybrid.NewCache(128, time.Minute)
		Expect(err).NotTo(HaveOccurred())

		manager, err = layers.NewManager(layers.ManagerConfig{
			Store:       store,
			Index:       index,
			Sink:        test.NewCapturingSink(),
			Invalidator: cache,
			NodeID:      "node-a",
			Logger:      zap.NewNop(),
			Now:         func() time.Time { return clock },
		})
		Expect(err).NotTo(HaveOccurred())

		engine, err = hybrid.NewEngine(store,
			[]search.Strategy{search.NewKeywordStrategy(store)},
			cache,
			hybrid.Config{Now: func() time.Time { return clock }},
			zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cache.Close()
	})

	query := hybrid.Query{Request: search.Request{TenantID: "t1", Query: "standup", Limit: 5}}

	// Ristretto applies writes asynchronously; make sure the entry landed
	// before the write under test, or the miss would prove nothing.
	waitCached := func() {
		Eventually(func() bool {
			_, ok := cache.Get(query)
			return ok
		}).Should(BeTrue())
	}

	It("stops serving a record deleted after caching", func() {
		rec, err := manager.Ingest(ctx, layers.IngestRequest{
			TenantID:   "t1",
			Content:    "standup notes from tuesday",
			Importance: 0.5,
		})
		Expect(err).NotTo(HaveOccurred())

		results, err := engine.Search(ctx, query)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		waitCached()

		Expect(manager.Delete(ctx, "t1", rec.ID)).To(Succeed())

		results, err = engine.Search(ctx, query)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(BeEmpty())
	})

	It("refreshes cached results after a sweep expires a record", func() {
		_, err := manager.Ingest(ctx, layers.IngestRequest{
			TenantID:   "t1",
			Content:    "standup notes from tuesday",
			Importance: 0.5,
			TTL:        time.Minute,
		})
		Expect(err).NotTo(HaveOccurred())

		results, err := engine.Search(ctx, query)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		waitCached()

		clock = clock.Add(2 * time.Minute)
		summary, err := manager.Sweep(ctx, "t1")
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Expired).To(Equal(1))

		results, err = engine.Search(ctx, query)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(BeEmpty())
	})
})
