package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/starford/refgraph/internal/models"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Fingerprint digests a whole corpus. The result does not depend on the
// order of docs, so two loads of an unchanged corpus always agree.
func Fingerprint(docs []models.Document) string {
	keys := make([]int, len(docs))
	for i := range docs {
		keys[i] = i
	}
	sort.Slice(keys, func(a, b int) bool {
		return docs[keys[a]].ID.String() < docs[keys[b]].ID.String()
	})

	h := sha256.New()
	for _, i := range keys {
		d := docs[i]
		h.Write([]byte(d.ID.String()))
		h.Write([]byte{0})
		sum := sha256.Sum256([]byte(d.Body))
		h.Write(sum[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
