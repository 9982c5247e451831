// File path: internal/cache/fingerprint.go
package cache

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// Fingerprint derives the stable cache key for a suggestion request:
// FNV-1a over the normalized rule, flagged text and context. Normalization
// collapses whitespace and case so cosmetic differences share an entry.
func Fingerprint(rule, text, context string) string {
	h := fnv.New64a()
	h.Write([]byte(normalize(rule)))
	h.Write([]byte{0})
	h.Write([]byte(normalize(text)))
	h.Write([]byte{0})
	h.Write([]byte(normalize(context)))
	return fmt.Sprintf("sug:%016x", h.Sum64())
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
