package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// RandomIDBytes is the entropy, in bytes, behind NewRandomID.
const RandomIDBytes = 16

// RandomToken returns n bytes from crypto/rand as unpadded base64url.
func RandomToken(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("random token: invalid length %d", n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewRandomID returns a 128-bit session identifier.
func NewRandomID() (string, error) {
	return RandomToken(RandomIDBytes)
}

// Fingerprint returns a short, non-reversible reference to a session token
// for logs and audit events.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}
