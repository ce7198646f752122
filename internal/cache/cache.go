package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores collaborator responses keyed by prompt hash so repeated
// analysis of the same content skips the API call.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key namespaces a precomputed hash
func Key(hash string) string {
	return "conflux:v1:" + hash
}

// KeyFor generates a namespaced cache key from raw input
func KeyFor(input string) string {
	hash := sha256.Sum256([]byte(input))
	return Key(hex.EncodeToString(hash[:]))
}
