package sqlite_test

import (
	"context"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/record"
	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/storage/sqlite"
)

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		driver *sqlite.Driver
		now    time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		var err error
		driver, err = sqlite.New(filepath.Join(GinkgoT().TempDir(), "engram.db"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	It("round-trips a fully populated record", func() {
		rec := record.New("t1", "sqlite payload", 0.8, now)
		rec.Embedding = []float32{0.1, 0.2, 0.3}
		rec.Tags = []string{"infra", "db"}
		rec.Type = "semantic"
		rec.Source = "session-12"
		rec.Project = "atlas"
		rec.NodeID = "node-a"
		rec.SetTTL(48 * time.Hour)
		rec.Touch(now.Add(time.Minute))

		Expect(driver.Insert(ctx, rec)).To(Succeed())

		got, err := driver.Get(ctx, "t1", rec.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Content).To(Equal(rec.Content))
		Expect(got.Embedding).To(Equal(rec.Embedding))
		Expect(got.Tags).To(Equal(rec.Tags))
		Expect(got.Layer).To(Equal(record.LayerSensory))
		Expect(got.AccessCount).To(Equal(1))
		Expect(got.ExpiresAt).NotTo(BeNil())
		Expect(got.ExpiresAt.Equal(*rec.ExpiresAt)).To(BeTrue())
	})

	It("rejects duplicate inserts", func() {
		rec := record.New("t1", "dup", 0.5, now)
		Expect(driver.Insert(ctx, rec)).To(Succeed())

		err := driver.Insert(ctx, rec)
		var exists storage.AlreadyExistsError
		Expect(err).To(BeAssignableToTypeOf(exists))
	})

	It("updates in place", func() {
		rec := record.New("t1", "v1", 0.5, now)
		Expect(driver.Insert(ctx, rec)).To(Succeed())

		rec.MoveToLayer(record.LayerWorking, now.Add(time.Hour))
		Expect(driver.Update(ctx, rec)).To(Succeed())

		got, err := driver.Get(ctx, "t1", rec.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Layer).To(Equal(record.LayerWorking))
		Expect(got.Version).To(Equal(int64(1)))
	})

	It("returns NotFoundError on update of a missing record", func() {
		rec := record.New("t1", "ghost", 0.5, now)
		err := driver.Update(ctx, rec)
		var nf storage.NotFoundError
		Expect(err).To(BeAssignableToTypeOf(nf))
	})

	It("lists with layer and importance filters", func() {
		low := record.New("t1", "low", 0.2, now)
		high := record.New("t1", "high", 0.9, now.Add(time.Minute))
		high.MoveToLayer(record.LayerWorking, now.Add(time.Minute))
		Expect(driver.Insert(ctx, low)).To(Succeed())
		Expect(driver.Insert(ctx, high)).To(Succeed())

		layer := record.LayerWorking
		recs, err := driver.List(ctx, "t1", storage.Criteria{Layer: &layer, MinImportance: 0.5})
		Expect(err).NotTo(HaveOccurred())
		Expect(recs).To(HaveLen(1))
		Expect(recs[0].Content).To(Equal("high"))
	})

	It("filters tags in Go over the JSON column", func() {
		tagged := record.New("t1", "tagged", 0.5, now)
		tagged.Tags = []string{"a", "b"}
		plain := record.New("t1", "plain", 0.5, now)
		Expect(driver.Insert(ctx, tagged)).To(Succeed())
		Expect(driver.Insert(ctx, plain)).To(Succeed())

		recs, err := driver.List(ctx, "t1", storage.Criteria{Tags: []string{"a"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(recs).To(HaveLen(1))
		Expect(recs[0].Content).To(Equal("tagged"))
	})

	It("deletes and reports missing rows", func() {
		rec := record.New("t1", "temp", 0.5, now)
		Expect(driver.Insert(ctx, rec)).To(Succeed())
		Expect(driver.Delete(ctx, "t1", rec.ID)).To(Succeed())
		Expect(driver.Delete(ctx, "t1", rec.ID)).To(HaveOccurred())
	})

	It("counts per layer", func() {
		for i := 0; i < 3; i++ {
			rec := record.New("t1", string(rune('a'+i)), 0.5, now.Add(time.Duration(i)*time.Second))
			Expect(driver.Insert(ctx, rec)).To(Succeed())
		}
		count, err := driver.CountByLayer(ctx, "t1", record.LayerSensory)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(3))
	})

	It("finds by content hash", func() {
		rec := record.New("t1", "hashable", 0.5, now)
		Expect(driver.Insert(ctx, rec)).To(Succeed())

		got, err := driver.FindByContentHash(ctx, "t1", rec.ContentHash)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(rec.ID))
	})

	It("survives reopening the database", func() {
		path := filepath.Join(GinkgoT().TempDir(), "persist.db")
		first, err := sqlite.New(path)
		Expect(err).NotTo(HaveOccurred())

		rec := record.New("t1", "durable", 0.5, now)
		Expect(first.Insert(ctx, rec)).To(Succeed())
		Expect(first.Close()).To(Succeed())

		second, err := sqlite.New(path)
		Expect(err).NotTo(HaveOccurred())
		defer second.Close()

		got, err := second.Get(ctx, "t1", rec.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Content).To(Equal("durable"))
	})
})
