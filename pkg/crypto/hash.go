/* pkg/crypto/hash.go */

package crypto

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// HashString returns the SHA256 hash of a string as hex.
func HashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// TruncatedHash returns the first 12 hex characters of the SHA256 hash.
// Used for integrity display in backup records, never for recovery.
func TruncatedHash(s string) string {
	return HashString(s)[:12]
}

// EncodeSecret produces the reversible text encoding used for secrets on
// the vault wire and in backup/history records.
func EncodeSecret(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeSecret reverses EncodeSecret.
func DecodeSecret(encoded string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(encoded)
}

// Redact replaces a secret with a fixed-width mask for logging.
func Redact(s string) string {
	if s == "" {
		return "(empty)"
	}
	return strings.Repeat("*", 8)
}
