package events_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/events"
)

var _ = Describe("Event", func() {
	It("assigns a unique ID and a UTC timestamp", func() {
		a := events.New(events.TypeRecordPromoted, "t1", "rec-1", nil)
		b := events.New(events.TypeRecordPromoted, "t1", "rec-1", nil)

		Expect(a.ID).NotTo(BeEmpty())
		Expect(a.ID).NotTo(Equal(b.ID))
		Expect(a.Timestamp.Location().String()).To(Equal("UTC"))
	})

	It("serializes cleanly for the wire", func() {
		event := events.New(events.TypeSweepCompleted, "t1", "", map[string]any{
			"scanned": 12,
		})

		data, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var decoded events.Event
		Expect(json.Unmarshal(data, &decoded)).To(Succeed())
		Expect(decoded.Type).To(Equal(events.TypeSweepCompleted))
		Expect(decoded.TenantID).To(Equal("t1"))
		Expect(decoded.Fields).To(HaveKeyWithValue("scanned", float64(12)))
	})

	It("omits the record ID for sweep-scoped events", func() {
		event := events.New(events.TypeSweepCompleted, "t1", "", nil)
		data, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).NotTo(ContainSubstring("record_id"))
	})
})
