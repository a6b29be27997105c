package peersync_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/peersync"
	"github.com/papercomputeco/engram/pkg/record"
)

var _ = Describe("Compute", func() {
	var now time.Time

	BeforeEach(func() {
		now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	})

	make3 := func() (*record.MemoryRecord, *record.MemoryRecord, *record.MemoryRecord) {
		a := record.New("t1", "alpha", 0.5, now)
		b := record.New("t1", "beta", 0.5, now)
		c := record.New("t1", "gamma", 0.5, now)
		return a, b, c
	}

	It("classifies added, modified, local-only, and unchanged", func() {
		a, b, c := make3()

		bRemote := b.Clone()
		bRemote.Importance = 0.9
		bRemote.Version = 3
		bRemote.LastModified = now.Add(time.Hour)

		local := []*record.MemoryRecord{a, b}
		remote := []*record.MemoryRecord{a.Clone(), bRemote, c}

		diff := peersync.Compute(local, remote)

		Expect(diff.Added).To(HaveLen(1))
		Expect(diff.Added[0].ID).To(Equal(c.ID))
		Expect(diff.Modified).To(HaveLen(1))
		Expect(diff.Modified[0].Local.ID).To(Equal(b.ID))
		Expect(diff.Unchanged).To(Equal(1))
		Expect(diff.LocalOnly).To(BeEmpty())
	})

	It("reports local-only records without marking them for deletion", func() {
		a, b, _ := make3()

		diff := peersync.Compute([]*record.MemoryRecord{a, b}, []*record.MemoryRecord{a.Clone()})

		Expect(diff.LocalOnly).To(HaveLen(1))
		Expect(diff.LocalOnly[0].ID).To(Equal(b.ID))
	})

	It("detects divergence in tags alone", func() {
		a, _, _ := make3()
		aRemote := a.Clone()
		aRemote.Tags = []string{"extra"}

		diff := peersync.Compute([]*record.MemoryRecord{a}, []*record.MemoryRecord{aRemote})
		Expect(diff.Modified).To(HaveLen(1))
	})

	It("handles empty snapshots on either side", func() {
		a, _, _ := make3()

		diff := peersync.Compute(nil, []*record.MemoryRecord{a})
		Expect(diff.Added).To(HaveLen(1))

		diff = peersync.Compute([]*record.MemoryRecord{a}, nil)
		Expect(diff.LocalOnly).To(HaveLen(1))
		Expect(diff.Added).To(BeEmpty())
	})
})
