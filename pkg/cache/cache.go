// Package cache stores computed layouts and rendered artifacts.
//
// Layouts are keyed by a hash of the prepared records plus the layout options,
// artifacts by the layout key plus the render options, so a re-render with a
// different format reuses the layout and a changed dataset misses both.
//
// Backends:
//   - [FileCache]: JSON entries under a directory, for the CLI
//   - [MemoryCache]: in-process map, for the server and tests
//   - [RedisCache]: shared cache for multi-instance servers
//   - [NullCache]: disables caching
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry TTL.
// Get reports a miss as (nil, false, nil); errors are reserved for backend
// failures.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Default TTLs.
const (
	// TTLLayout is how long a computed layout stays valid.
	TTLLayout = 7 * 24 * time.Hour

	// TTLArtifact is how long a rendered SVG/JSON/text artifact stays valid.
	TTLArtifact = 7 * 24 * time.Hour
)
