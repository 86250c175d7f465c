package types

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// IDLength is the length of every account and content identifier.
const IDLength = 24

// NewID returns a fresh identifier: four bytes of big-endian unix seconds
// followed by eight random bytes, hex-encoded.
func NewID() string {
	var b [12]byte
	binary.BigEndian.PutUint32(b[:4], uint32(time.Now().Unix()))
	_, _ = rand.Read(b[4:])
	return hex.EncodeToString(b[:])
}

// ValidID reports whether id is a well-formed identifier.
func ValidID(id string) bool {
	if len(id) != IDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
