package layers_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/events"
	"github.com/papercomputeco/engram/pkg/layers"
	"github.com/papercomputeco/engram/pkg/record"
	storageinmemory "github.com/papercomputeco/engram/pkg/storage/inmemory"
	"github.com/papercomputeco/engram/pkg/utils/test"
	vectorinmemory "github.com/papercomputeco/engram/pkg/vector/inmemory"
)

var _ = Describe("Sweep", func() {
	var (
		ctx      context.Context
		store    *storageinmemory.Driver
		index    *vectorinmemory.Driver
		sink     *test.CapturingSink
		manager  *layers.Manager
		clock    time.Time
		policies layers.Policies
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = storageinmemory.New()
		index = vectorinmemory.New()
		sink = test.NewCapturingSink()
		clock = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		policies = layers.DefaultPolicies()

		var err error
		manager, err = layers.NewManager(layers.ManagerConfig{
			Store:    store,
			Index:    index,
			Embedder: &test.MockEmbedder{},
			Sink:     sink,
			Policies: policies,
			NodeID:   "node-a",
			Logger:   zap.NewNop(),
			Now:      func() time.Time { return clock },
		})
		Expect(err).NotTo(HaveOccurred())
	})

	ingest := func(content string, importance float64) *record.MemoryRecord {
		rec, err := manager.Ingest(ctx, layers.IngestRequest{
			TenantID:   "t1",
			Content:    content,
			Importance: importance,
		})
		Expect(err).NotTo(HaveOccurred())
		return rec
	}

	touch := func(id string, times int) {
		for i := 0; i < times; i++ {
			clock = clock.Add(time.Second)
			_, err := manager.Get(ctx, "t1", id, true)
			Expect(err).NotTo(HaveOccurred())
		}
	}

	It("deletes records past their TTL", func() {
		rec, err := manager.Ingest(ctx, layers.IngestRequest{
			TenantID:   "t1",
			Content:    "fleeting",
			Importance: 0.2,
			TTL:        time.Hour,
		})
		Expect(err).NotTo(HaveOccurred())

		clock = clock.Add(2 * time.Hour)
		summary, err := manager.Sweep(ctx, "t1")
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Expired).To(Equal(1))

		_, err = manager.Get(ctx, "t1", rec.ID, false)
		Expect(err).To(HaveOccurred())
		Expect(sink.ByType(events.TypeRecordExpired)).To(HaveLen(1))
	})

	It("decays strength over time", func() {
		rec := ingest("slowly fading", 0.2)

		clock = clock.Add(3 * time.Hour)
		summary, err := manager.Sweep(ctx, "t1")
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Decayed).To(BeNumerically(">=", 1))

		got, err := manager.Get(ctx, "t1", rec.ID, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Strength).To(BeNumerically("<", 1.0))
		Expect(got.Strength).To(BeNumerically(">", 0.0))
	})

	It("promotes sensory records that clear the importance threshold", func() {
		rec := ingest("worth keeping", 0.5)

		clock = clock.Add(time.Minute)
		summary, err := manager.Sweep(ctx, "t1")
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Promoted).To(Equal(1))

		got, err := manager.Get(ctx, "t1", rec.ID, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Layer).To(Equal(record.LayerWorking))
		Expect(got.AccessCount).To(BeZero())
		Expect(got.EnteredLayerAt).To(Equal(clock))

		promoted := sink.ByType(events.TypeRecordPromoted)
		Expect(promoted).To(HaveLen(1))
		Expect(promoted[0].Fields["to"]).To(Equal("working"))
	})

	It("does not promote below the importance threshold", func() {
		rec := ingest("trivia", 0.1)

		clock = clock.Add(time.Minute)
		_, err := manager.Sweep(ctx, "t1")
		Expect(err).NotTo(HaveOccurred())

		got, err := manager.Get(ctx, "t1", rec.ID, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Layer).To(Equal(record.LayerSensory))
	})

	Describe("working to long-term promotion", func() {
		var rec *record.MemoryRecord

		BeforeEach(func() {
			rec = ingest("important and used", 0.8)
			// First sweep promotes it out of sensory.
			clock = clock.Add(time.Minute)
			_, err := manager.Sweep(ctx, "t1")
			Expect(err).NotTo(HaveOccurred())

			got, err := manager.Get(ctx, "t1", rec.ID, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Layer).To(Equal(record.LayerWorking))
		})

		It("requires the dwell time even when importance and usage qualify", func() {
			touch(rec.ID, 2)

			// Only five minutes in the working layer: below the gate.
			clock = clock.Add(5 * time.Minute)
			_, err := manager.Sweep(ctx, "t1")
			Expect(err).NotTo(HaveOccurred())

			got, err := manager.Get(ctx, "t1", rec.ID, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Layer).To(Equal(record.LayerWorking))
		})

		It("requires the access count even after the dwell time", func() {
			clock = clock.Add(time.Hour)
			_, err := manager.Sweep(ctx, "t1")
			Expect(err).NotTo(HaveOccurred())

			got, err := manager.Get(ctx, "t1", rec.ID, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Layer).To(Equal(record.LayerWorking))
		})

		It("promotes once dwell, usage, and importance all qualify", func() {
			touch(rec.ID, 2)
			clock = clock.Add(time.Hour)

			summary, err := manager.Sweep(ctx, "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Promoted).To(Equal(1))

			got, err := manager.Get(ctx, "t1", rec.ID, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Layer).To(Equal(record.LayerLongTerm))
			Expect(got.ExpiresAt).To(BeNil())
		})
	})

	It("evicts the least valuable records over capacity", func() {
		policies[record.LayerSensory] = layers.Policy{
			Capacity:           2,
			PromotionThreshold: 0.99, // keep everything sensory
		}

		low := ingest("low value", 0.1)
		mid := ingest("mid value", 0.5)
		high := ingest("high value", 0.9)

		summary, err := manager.Sweep(ctx, "t1")
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Evicted).To(Equal(1))

		_, err = manager.Get(ctx, "t1", low.ID, false)
		Expect(err).To(HaveOccurred())

		for _, id := range []string{mid.ID, high.ID} {
			_, err := manager.Get(ctx, "t1", id, false)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(sink.ByType(events.TypeRecordEvicted)).To(HaveLen(1))
	})

	It("breaks eviction ties by access count, keeping the busier record", func() {
		policies[record.LayerSensory] = layers.Policy{
			Capacity:           1,
			PromotionThreshold: 0.99,
		}

		idle := ingest("idle twin", 0.5)
		busy := ingest("busy twin", 0.5)
		touch(busy.ID, 3)

		_, err := manager.Sweep(ctx, "t1")
		Expect(err).NotTo(HaveOccurred())

		_, err = manager.Get(ctx, "t1", idle.ID, false)
		Expect(err).To(HaveOccurred())
		_, err = manager.Get(ctx, "t1", busy.ID, false)
		Expect(err).NotTo(HaveOccurred())
	})

	It("publishes a sweep.completed event with counts", func() {
		ingest("anything", 0.4)

		_, err := manager.Sweep(ctx, "t1")
		Expect(err).NotTo(HaveOccurred())

		completed := sink.ByType(events.TypeSweepCompleted)
		Expect(completed).To(HaveLen(1))
		Expect(completed[0].Fields).To(HaveKey("scanned"))
	})

	It("is idempotent at a fixed instant", func() {
		ingest("stable", 0.2)
		clock = clock.Add(time.Hour)

		first, err := manager.Sweep(ctx, "t1")
		Expect(err).NotTo(HaveOccurred())

		second, err := manager.Sweep(ctx, "t1")
		Expect(err).NotTo(HaveOccurred())
		Expect(second.Decayed).To(BeZero())
		Expect(second.Expired).To(BeZero())
		Expect(second.Promoted).To(BeZero())
		Expect(first.Scanned).To(Equal(second.Scanned))
	})

	It("only touches the requested tenant", func() {
		ingest("tenant one", 0.4)
		_, err := manager.Ingest(ctx, layers.IngestRequest{
			TenantID:   "t2",
			Content:    "tenant two",
			Importance: 0.4,
			TTL:        time.Minute,
		})
		Expect(err).NotTo(HaveOccurred())

		clock = clock.Add(time.Hour)
		summary, err := manager.Sweep(ctx, "t1")
		Expect(err).NotTo(HaveOccurred())

		// t2's expired record is not t1's business.
		Expect(summary.Expired).To(BeZero())
		recs, err := manager.Snapshot(ctx, "t2", time.Time{})
		Expect(err).NotTo(HaveOccurred())
		Expect(recs).To(HaveLen(1))
	})
})
