package internal

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Entry Type (flat key entry with expiry metadata)
// --------------------------------------------------------------------------

// Entry stores one flat key's value together with its expiry deadline.
type Entry struct {
	Value    []byte
	ExpireAt int64 // unix nanoseconds, 0 = never expires
}

// Expired reports whether the entry's deadline has passed at the given time.
func (e Entry) Expired(now int64) bool {
	return e.ExpireAt != 0 && now >= e.ExpireAt
}

// --------------------------------------------------------------------------
// Shard Type (partition of the flat keyspace)
// --------------------------------------------------------------------------

// Shard is one partition of the flat keyspace. Containers are not sharded;
// they live in their own map owned by the engine.
type Shard struct {
	Data *xsync.MapOf[string, Entry]
}

// NewShard creates an empty shard.
func NewShard() *Shard {
	return &Shard{
		Data: xsync.NewMapOf[string, Entry](),
	}
}

// GetShard returns the shard responsible for a key hash.
//
// Thread-safety: This function is thread-safe and can be called concurrently.
func GetShard(hash uint64, shards []*Shard) *Shard {
	// Shift right to use higher-quality bits for distribution
	return shards[(hash>>7)%uint64(len(shards))]
}

// --------------------------------------------------------------------------
// Hashing
// --------------------------------------------------------------------------

// GenerateSeed creates a random seed for the engine's hash distribution.
func GenerateSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// fallback, only if the system entropy source fails
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// HashString generates a hash value for a string with a seed.
// FNV-1a, fast with good distribution.
func HashString(s string, seed uint64) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)

	hash := uint64(offset64) ^ seed
	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime64
	}
	return hash
}
