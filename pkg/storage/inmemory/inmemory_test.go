package inmemory_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/record"
	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/storage/inmemory"
)

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
		now    time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.New()
		now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	})

	newRecord := func(tenant, content string) *record.MemoryRecord {
		return record.New(tenant, content, 0.5, now)
	}

	Describe("Insert and Get", func() {
		It("round-trips a record", func() {
			rec := newRecord("t1", "hello")
			Expect(driver.Insert(ctx, rec)).To(Succeed())

			got, err := driver.Get(ctx, "t1", rec.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Content).To(Equal("hello"))
		})

		It("rejects duplicate IDs", func() {
			rec := newRecord("t1", "hello")
			Expect(driver.Insert(ctx, rec)).To(Succeed())

			err := driver.Insert(ctx, rec)
			var exists storage.AlreadyExistsError
			Expect(err).To(BeAssignableToTypeOf(exists))
		})

		It("rejects invalid records before storing", func() {
			rec := newRecord("t1", "hello")
			rec.Content = ""
			Expect(driver.Insert(ctx, rec)).To(HaveOccurred())
		})

		It("returns NotFoundError for unknown IDs", func() {
			_, err := driver.Get(ctx, "t1", "missing")
			var nf storage.NotFoundError
			Expect(err).To(BeAssignableToTypeOf(nf))
		})

		It("isolates tenants", func() {
			rec := newRecord("t1", "private")
			Expect(driver.Insert(ctx, rec)).To(Succeed())

			_, err := driver.Get(ctx, "t2", rec.ID)
			Expect(err).To(HaveOccurred())
		})

		It("returns copies, not shared state", func() {
			rec := newRecord("t1", "hello")
			rec.Tags = []string{"original"}
			Expect(driver.Insert(ctx, rec)).To(Succeed())

			got, err := driver.Get(ctx, "t1", rec.ID)
			Expect(err).NotTo(HaveOccurred())
			got.Tags[0] = "mutated"

			again, err := driver.Get(ctx, "t1", rec.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Tags[0]).To(Equal("original"))
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			for i, content := range []string{"first", "second", "third"} {
				rec := record.New("t1", content, 0.3+float64(i)*0.2, now.Add(time.Duration(i)*time.Minute))
				rec.Tags = []string{"common"}
				if content == "third" {
					rec.Tags = append(rec.Tags, "special")
					rec.MoveToLayer(record.LayerWorking, now.Add(time.Hour))
				}
				Expect(driver.Insert(ctx, rec)).To(Succeed())
			}
		})

		It("orders by creation time ascending", func() {
			recs, err := driver.List(ctx, "t1", storage.Criteria{})
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(3))
			Expect(recs[0].Content).To(Equal("first"))
			Expect(recs[2].Content).To(Equal("third"))
		})

		It("filters by layer", func() {
			layer := record.LayerWorking
			recs, err := driver.List(ctx, "t1", storage.Criteria{Layer: &layer})
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(1))
			Expect(recs[0].Content).To(Equal("third"))
		})

		It("filters by minimum importance", func() {
			recs, err := driver.List(ctx, "t1", storage.Criteria{MinImportance: 0.5})
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(2))
		})

		It("requires all criteria tags", func() {
			recs, err := driver.List(ctx, "t1", storage.Criteria{Tags: []string{"common", "special"}})
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(1))
		})

		It("honors the limit", func() {
			recs, err := driver.List(ctx, "t1", storage.Criteria{Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(2))
		})

		It("filters by modification time", func() {
			recs, err := driver.List(ctx, "t1", storage.Criteria{ModifiedSince: now.Add(30 * time.Minute)})
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(1))
			Expect(recs[0].Content).To(Equal("third"))
		})
	})

	Describe("Update", func() {
		It("overwrites an existing record", func() {
			rec := newRecord("t1", "before")
			Expect(driver.Insert(ctx, rec)).To(Succeed())

			rec.Importance = 0.9
			Expect(driver.Update(ctx, rec)).To(Succeed())

			got, err := driver.Get(ctx, "t1", rec.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Importance).To(Equal(0.9))
		})

		It("fails for missing records", func() {
			rec := newRecord("t1", "ghost")
			Expect(driver.Update(ctx, rec)).To(HaveOccurred())
		})
	})

	Describe("Delete", func() {
		It("removes the record", func() {
			rec := newRecord("t1", "temp")
			Expect(driver.Insert(ctx, rec)).To(Succeed())
			Expect(driver.Delete(ctx, "t1", rec.ID)).To(Succeed())

			_, err := driver.Get(ctx, "t1", rec.ID)
			Expect(err).To(HaveOccurred())
		})

		It("fails for unknown IDs", func() {
			Expect(driver.Delete(ctx, "t1", "missing")).To(HaveOccurred())
		})
	})

	Describe("CountByLayer", func() {
		It("counts only the requested layer", func() {
			a := newRecord("t1", "a")
			b := newRecord("t1", "b")
			b.MoveToLayer(record.LayerWorking, now)
			Expect(driver.Insert(ctx, a)).To(Succeed())
			Expect(driver.Insert(ctx, b)).To(Succeed())

			count, err := driver.CountByLayer(ctx, "t1", record.LayerSensory)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))
		})
	})

	Describe("FindByContentHash", func() {
		It("finds records by deterministic hash", func() {
			rec := newRecord("t1", "unique payload")
			Expect(driver.Insert(ctx, rec)).To(Succeed())

			got, err := driver.FindByContentHash(ctx, "t1", rec.ContentHash)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(rec.ID))
		})

		It("returns NotFoundError for unknown hashes", func() {
			_, err := driver.FindByContentHash(ctx, "t1", "nope")
			var nf storage.NotFoundError
			Expect(err).To(BeAssignableToTypeOf(nf))
		})
	})
})
