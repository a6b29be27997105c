package peersync_test

import (
	"bytes"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/peersync"
	"github.com/papercomputeco/engram/pkg/record"
)

var _ = Describe("Cipher", func() {
	var (
		key    []byte
		cipher *peersync.Cipher
		now    time.Time
	)

	BeforeEach(func() {
		key = bytes.Repeat([]byte{0x42}, peersync.KeySize)
		now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		var err error
		cipher, err = peersync.NewCipher(key)
		Expect(err).NotTo(HaveOccurred())
	})

	It("round-trips a batch", func() {
		recs := []*record.MemoryRecord{
			record.New("t1", "first", 0.5, now),
			record.New("t1", "second", 0.7, now),
		}
		recs[0].Embedding = []float32{0.1, 0.2}

		sealed, err := cipher.EncryptBatch(recs)
		Expect(err).NotTo(HaveOccurred())

		opened, err := cipher.DecryptBatch(sealed)
		Expect(err).NotTo(HaveOccurred())
		Expect(opened).To(HaveLen(2))
		Expect(opened[0].ID).To(Equal(recs[0].ID))
		Expect(opened[0].Embedding).To(Equal(recs[0].Embedding))
		Expect(opened[1].Content).To(Equal("second"))
	})

	It("produces different ciphertexts for the same batch", func() {
		recs := []*record.MemoryRecord{record.New("t1", "same", 0.5, now)}

		a, err := cipher.EncryptBatch(recs)
		Expect(err).NotTo(HaveOccurred())
		b, err := cipher.EncryptBatch(recs)
		Expect(err).NotTo(HaveOccurred())
		Expect(a).NotTo(Equal(b))
	})

	It("rejects the wrong key with a PolicyViolationError", func() {
		sealed, err := cipher.EncryptBatch([]*record.MemoryRecord{record.New("t1", "secret", 0.5, now)})
		Expect(err).NotTo(HaveOccurred())

		other, err := peersync.NewCipher(bytes.Repeat([]byte{0x13}, peersync.KeySize))
		Expect(err).NotTo(HaveOccurred())

		_, err = other.DecryptBatch(sealed)
		var violation peersync.PolicyViolationError
		Expect(err).To(BeAssignableToTypeOf(violation))
	})

	It("rejects tampered ciphertext", func() {
		sealed, err := cipher.EncryptBatch([]*record.MemoryRecord{record.New("t1", "secret", 0.5, now)})
		Expect(err).NotTo(HaveOccurred())

		sealed[len(sealed)-1] ^= 0xFF
		_, err = cipher.DecryptBatch(sealed)
		Expect(err).To(HaveOccurred())
	})

	It("rejects truncated payloads", func() {
		_, err := cipher.DecryptBatch([]byte{0x01, 0x02})
		var violation peersync.PolicyViolationError
		Expect(err).To(BeAssignableToTypeOf(violation))
	})

	It("rejects keys of the wrong size", func() {
		_, err := peersync.NewCipher([]byte("short"))
		Expect(err).To(HaveOccurred())
	})
})
