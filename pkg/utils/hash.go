package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex computes the SHA-256 hash of a string, hex encoded.
func SHA256Hex(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
