package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"
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

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Short returns the first 12 hex characters, enough to tell references apart in logs
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// HashColumns fingerprints a set of named float columns independent of map order.
// Missing cells must be passed as NaN; they hash to a fixed marker.
func HashColumns(columns map[string][]float64) Hash {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	buf := make([]byte, 8)
	for _, name := range names {
		h.Write([]byte(name))
		h.Write([]byte{0})
		for _, v := range columns[name] {
			bits := math.Float64bits(v)
			if math.IsNaN(v) {
				bits = math.Float64bits(math.NaN())
			}
			binary.LittleEndian.PutUint64(buf, bits)
			h.Write(buf)
		}
		h.Write([]byte{0xff})
	}
	return Hash(hex.EncodeToString(h.Sum(nil)))
}
