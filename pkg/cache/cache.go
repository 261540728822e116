// Package cache stores analysis results and rendered artifacts so repeated
// runs over the same geometries and options skip the computation.
//
// # Backends
//
//   - [NullCache] never stores anything
//   - [FileCache] writes one JSON file per entry, for the CLI
//   - [RedisCache] and [MongoCache] share results between server instances
//
// [Open] selects a backend from a [Config].
//
// # Keys
//
// A [Keyer] derives keys from a hash of the input geometries plus the
// options that change the result. Options that only affect presentation go
// into artifact keys, not analysis keys, so re-rendering reuses a cached
// analysis.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the stored value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes a key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Default lifetimes of cache entries.
const (
	TTLAnalysis = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Backend names accepted by [Open].
const (
	BackendNone  = "none"
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
)

// Config selects and configures a backend.
type Config struct {
	Backend  string
	Dir      string
	RedisURL string
	MongoURI string
}

// Open returns the backend described by cfg. An empty backend selects the
// file cache when Dir is set and the null cache otherwise.
func Open(ctx context.Context, cfg Config) (Cache, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = BackendNone
		if cfg.Dir != "" {
			backend = BackendFile
		}
	}

	switch backend {
	case BackendNone:
		return NewNullCache(), nil
	case BackendFile:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("file cache: no directory configured")
		}
		c, err := NewFileCache(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendRedis:
		c, err := NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendMongo:
		c, err := NewMongoCache(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", backend)
}

// NullCache never stores anything. It backs --no-cache and GEOADJ_CACHE=none.
type NullCache struct{}

// NewNullCache creates a null cache.
func NewNullCache() Cache { return &NullCache{} }

func (*NullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (*NullCache) Delete(context.Context, string) error                     { return nil }
func (*NullCache) Close() error                                             { return nil }
