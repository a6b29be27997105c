package peersync

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"

	"github.com/papercomputeco/engram/pkg/record"
)

// KeySize is the required key length: AES-256.
const KeySize = 32

// Cipher encrypts record batches for the wire with AES-256-GCM. The
// nonce is prepended to the ciphertext; authentication failures surface
// as PolicyViolationError so the protocol rejects the whole batch.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a Cipher from a 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("sync key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating gcm: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// EncryptBatch serializes and seals a batch of records.
func (c *Cipher) EncryptBatch(recs []*record.MemoryRecord) ([]byte, error) {
	plaintext, err := json.Marshal(recs)
	if err != nil {
		return nil, fmt.Errorf("encoding batch: %w", err)
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// DecryptBatch opens and deserializes a sealed batch. A truncated
// payload, a wrong key, or tampered ciphertext all yield a
// PolicyViolationError.
func (c *Cipher) DecryptBatch(data []byte) ([]*record.MemoryRecord, error) {
	if len(data) < c.aead.NonceSize() {
		return nil, PolicyViolationError{Reason: "payload shorter than nonce"}
	}

	nonce, ciphertext := data[:c.aead.NonceSize()], data[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, PolicyViolationError{Reason: "authentication failed"}
	}

	var recs []*record.MemoryRecord
	if err := json.Unmarshal(plaintext, &recs); err != nil {
		return nil, PolicyViolationError{Reason: "malformed batch"}
	}
	return recs, nil
}
