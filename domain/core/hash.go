package core

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// InputHash fingerprints an analysis input: the raw text plus every parameter
// that changes the result. The allow-list is order-insensitive.
func InputHash(raw, groupColumn string, metrics []string, replicate int, allowList []string) Hash {
	allowed := append([]string(nil), allowList...)
	sort.Strings(allowed)

	var data strings.Builder
	data.WriteString(raw)
	data.WriteByte(0)
	data.WriteString(groupColumn)
	data.WriteByte(0)
	data.WriteString(strings.Join(metrics, "\x1f"))
	data.WriteByte(0)
	data.WriteString(strconv.Itoa(replicate))
	data.WriteByte(0)
	data.WriteString(strings.Join(allowed, "\x1f"))

	return NewHash([]byte(data.String()))
}
