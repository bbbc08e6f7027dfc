package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher computes hex SHA-256 content digests, such as the digest
// identifying a compiled script's source.
type Hasher struct{}

// DefaultHasher returns the SHA-256 hasher.
func DefaultHasher() *Hasher {
	return &Hasher{}
}

// Hash computes a hash of the input data
func (h *Hasher) Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashString computes a hash of a string
func (h *Hasher) HashString(s string) string {
	return h.Hash([]byte(s))
}
