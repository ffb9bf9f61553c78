// Package checksum fingerprints document file pairs.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Pair returns the digest of a content file and its metadata sidecar.
// The parts are length-separated so moving bytes between them changes the
// result.
func Pair(content, meta []byte) string {
	h := sha256.New()
	var n [8]byte
	for _, part := range [][]byte{content, meta} {
		l := uint64(len(part))
		for i := range n {
			n[i] = byte(l >> (8 * i))
		}
		h.Write(n[:])
		h.Write(part)
	}
	return hex.EncodeToString(h.Sum(nil))
}
