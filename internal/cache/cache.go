package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"
	"time"
)

// Cache stores serialized classifier responses
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// keyVersion is bumped whenever the cached payload layout changes
const keyVersion = "distortia:v1:"

// Key builds a cache key from ordered parts. Parts are length-prefixed so
// ["ab", "c"] and ["a", "bc"] never collide.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		var n [8]byte
		binary.LittleEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write([]byte(p))
	}
	return keyVersion + hex.EncodeToString(h.Sum(nil))
}

// IsKey reports whether key was produced by Key
func IsKey(key string) bool {
	return strings.HasPrefix(key, keyVersion)
}
