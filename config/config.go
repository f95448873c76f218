// Package config defines BuildCache's tunables: size and TTL bounds,
// compression selection, the index location, eviction policy, concurrency
// throttles, and the key-version used to invalidate entries en masse.
package config

import (
	"time"

	"github.com/jmgilman/buildcache/compression"
	"github.com/jmgilman/buildcache/errors"
)

// EvictionPolicy names the eviction strategy a cache is configured with.
// Only PolicyLRU is implemented by the reference eviction pass; the others
// are recognized and stored but never change behavior (see
// eviction.RunSizeTrigger's doc comment).
type EvictionPolicy string

const (
	PolicyLRU  EvictionPolicy = "lru"
	PolicyLFU  EvictionPolicy = "lfu"
	PolicyFIFO EvictionPolicy = "fifo"
	PolicyTTL  EvictionPolicy = "ttl"
	PolicyARC  EvictionPolicy = "arc"
)

func (p EvictionPolicy) valid() bool {
	switch p {
	case PolicyLRU, PolicyLFU, PolicyFIFO, PolicyTTL, PolicyARC:
		return true
	default:
		return false
	}
}

// Concurrency throttles optional limits on simultaneous operations. Zero
// means unlimited.
type Concurrency struct {
	MaxConcurrentReads     int
	MaxConcurrentWrites    int
	MaxConcurrentEvictions int
}

// Compression configures the layer codec.
type Compression struct {
	Algorithm compression.Algorithm
	Level     int
	MinSize   int64
}

// Config collects every tunable the cache recognizes.
type Config struct {
	// MaxSizeBytes is the soft size ceiling that triggers LRU eviction.
	MaxSizeBytes int64
	// MaxAge is advisory; the reference eviction policy does not use it.
	MaxAge time.Duration
	// DefaultTTL is applied to entries with no explicit TTL. Zero means no
	// default TTL (entries live until evicted for size).
	DefaultTTL time.Duration

	Compression Compression

	// IndexPath is the directory the index file is stored under.
	IndexPath string

	EvictionPolicy EvictionPolicy
	Concurrency    Concurrency

	// VerifyIntegrity, if true, recomputes layer digests on read and fails
	// the get on mismatch.
	VerifyIntegrity bool

	// GCInterval is the time between background TTL sweeps.
	GCInterval time.Duration

	// CacheKeyVersion is mixed into every fingerprint; bumping it
	// invalidates every existing entry without touching the index.
	CacheKeyVersion string
}

// SetDefaults fills zero-valued fields with sensible defaults. It mutates
// c in place.
func (c *Config) SetDefaults() {
	if c.MaxSizeBytes == 0 {
		c.MaxSizeBytes = 10 << 30 // 10 GiB
	}
	if c.Compression.Algorithm == "" {
		c.Compression.Algorithm = compression.Zstd
	}
	if c.Compression.MinSize == 0 {
		c.Compression.MinSize = 1024
	}
	if c.IndexPath == "" {
		c.IndexPath = "."
	}
	if c.EvictionPolicy == "" {
		c.EvictionPolicy = PolicyLRU
	}
	if c.GCInterval == 0 {
		c.GCInterval = 10 * time.Minute
	}
	if c.CacheKeyVersion == "" {
		c.CacheKeyVersion = "v1"
	}
}

// Validate reports a CodeInvalidInput error for any field whose value is
// structurally nonsensical.
func (c Config) Validate() error {
	if c.MaxSizeBytes < 0 {
		return errors.New(errors.CodeInvalidInput, "maxSizeBytes must not be negative")
	}
	if c.IndexPath == "" {
		return errors.New(errors.CodeInvalidInput, "indexPath must not be empty")
	}
	if c.EvictionPolicy != "" && !c.EvictionPolicy.valid() {
		return errors.Newf(errors.CodeInvalidInput, "unrecognized eviction policy: %s", c.EvictionPolicy)
	}
	if c.GCInterval < 0 {
		return errors.New(errors.CodeInvalidInput, "gcInterval must not be negative")
	}
	if c.Compression.MinSize < 0 {
		return errors.New(errors.CodeInvalidInput, "compression.minSize must not be negative")
	}
	if c.Concurrency.MaxConcurrentReads < 0 || c.Concurrency.MaxConcurrentWrites < 0 || c.Concurrency.MaxConcurrentEvictions < 0 {
		return errors.New(errors.CodeInvalidInput, "concurrency limits must not be negative")
	}
	return nil
}

// evictionTargetRatio is the fraction of MaxSizeBytes the size-trigger
// eviction pass reduces totalSize to once it fires.
const evictionTargetRatio = 0.8

// EvictionTarget returns the totalSize the size-trigger eviction pass
// evicts down to.
func (c Config) EvictionTarget() int64 {
	return int64(float64(c.MaxSizeBytes) * evictionTargetRatio)
}
