package idhash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/mr-tron/base58"
)

// VectorIDPrefix marks ids of transaction vectors.
const VectorIDPrefix = "txn-"

// VectorID derives a compact vector id from an identity key.
// The first 16 bytes of the key are base58 encoded, so the same record
// always maps to the same vector. Keys that are not hex are hashed first.
func VectorID(identityKey string) string {
	raw, err := hex.DecodeString(identityKey)
	if err != nil || len(raw) < 16 {
		h := sha256.Sum256([]byte(identityKey))
		raw = h[:]
	}
	return VectorIDPrefix + base58.Encode(raw[:16])
}
