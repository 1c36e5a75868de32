package common

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sha256Hex returns the SHA-256 digest of the input encoded as lowercase hex.
func Sha256Hex(input string) string {
	h := sha256.New()
	h.Write([]byte(input))
	return hex.EncodeToString(h.Sum(nil))
}

// ReplayKey derives a fixed-length key from caller-supplied identifiers.
// Hashing keeps arbitrary gateway ids out of the redis key space.
func ReplayKey(parts ...string) string {
	return Sha256Hex(strings.Join(parts, ":"))
}
