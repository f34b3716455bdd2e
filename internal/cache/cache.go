package cache

import "time"

// Cache stores small byte values with a TTL. Implementations must be safe for
// concurrent use.
type Cache interface {
	// Get returns the value and true if present and not expired.
	Get(key string) ([]byte, bool)
	// Set stores value under key; a ttl of 0 uses the cache default.
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
	Clear()
	Stats() Stats
}

// Stats represents cache statistics.
type Stats struct {
	Hits      uint64
	Misses    uint64
	KeysAdded uint64
	Evictions uint64
	Size      int64 // approximate size in bytes
	Items     int64
}
