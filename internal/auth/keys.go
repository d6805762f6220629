package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// KeyPrefix marks dayplan API keys.
const KeyPrefix = "dp_"

// displayPrefixLen is how much of a key is stored in clear for display.
const displayPrefixLen = len(KeyPrefix) + 6

// NewKey is a freshly generated API key. Plaintext is shown to the user once
// and never stored.
type NewKey struct {
	Plaintext string
	Prefix    string
	Hash      string
}

// GenerateKey returns a random API key with its display prefix and hash.
func GenerateKey() (NewKey, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return NewKey{}, fmt.Errorf("generating api key: %w", err)
	}
	plain := KeyPrefix + hex.EncodeToString(buf)
	return NewKey{
		Plaintext: plain,
		Prefix:    plain[:displayPrefixLen],
		Hash:      HashKey(plain),
	}, nil
}

// HashKey returns the hex SHA-256 digest under which a key is stored.
func HashKey(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// GenerateServiceToken returns a random token for internal callers.
func GenerateServiceToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating service token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
