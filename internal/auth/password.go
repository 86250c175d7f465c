package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"

	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/apperr"
	"github.com/niklasbuhl/virtual-whiteboard-backend/types"
	"golang.org/x/crypto/pbkdf2"
)

const (
	DefaultIterations = 10000
	saltBytes         = 16
	keyLength         = 64
)

// Hasher creates and verifies password credentials with PBKDF2-HMAC-SHA512.
type Hasher struct {
	iterations int
}

// NewHasher returns a Hasher that creates records with the given cost.
// A non-positive cost falls back to DefaultIterations.
func NewHasher(iterations int) *Hasher {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &Hasher{iterations: iterations}
}

// Create derives a fresh AuthRecord for password.
func (h *Hasher) Create(password string) (types.AuthRecord, error) {
	if password == "" {
		return types.AuthRecord{}, apperr.InvalidInput("password cannot be empty")
	}

	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return types.AuthRecord{}, err
	}
	saltHex := hex.EncodeToString(salt)

	return types.AuthRecord{
		Hash:       derive(password, saltHex, h.iterations),
		Salt:       saltHex,
		Iterations: h.iterations,
	}, nil
}

// Verify reports whether password matches record. It uses the record's own
// salt and cost, so records created with another cost stay verifiable.
func (h *Hasher) Verify(password string, record types.AuthRecord) bool {
	if record.Hash == "" || record.Salt == "" || record.Iterations <= 0 {
		return false
	}
	expected, err := hex.DecodeString(record.Hash)
	if err != nil {
		return false
	}
	actual, _ := hex.DecodeString(derive(password, record.Salt, record.Iterations))
	return subtle.ConstantTimeCompare(expected, actual) == 1
}

// derive uses the hex salt string itself as the salt bytes.
func derive(password, salt string, iterations int) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), iterations, keyLength, sha512.New)
	return hex.EncodeToString(key)
}
