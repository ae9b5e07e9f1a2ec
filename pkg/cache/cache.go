// Package cache stores repair results keyed by the diagram they were
// computed from and the options used.
//
// Three backends implement [Cache]: [FileCache] for the CLI, [RedisCache]
// for the HTTP server, and [NullCache] when caching is disabled. Keys come
// from a [Keyer], so deployments can namespace them with [ScopedKeyer].
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the stored value and true, or false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data. A non-positive ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Keyer derives cache keys.
type Keyer interface {
	// RepairKey identifies the result of one repair or sweep request.
	RepairKey(diagramHash string, opts RepairKeyOpts) string
}

// RepairKeyOpts lists every request parameter that changes the result.
type RepairKeyOpts struct {
	Mode          string  `json:"mode"`
	Link          string  `json:"link"`
	Segment       int     `json:"segment,omitempty"`
	GridSize      float64 `json:"grid_size"`
	StrategyLimit int     `json:"strategy_limit"`
	MinCorners    bool    `json:"min_corners"`
}

// DefaultKeyer hashes the key options into a fixed-length key.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// RepairKey returns "repair:<sha256>".
func (DefaultKeyer) RepairKey(diagramHash string, opts RepairKeyOpts) string {
	return hashKey("repair", diagramHash, opts)
}

// ScopedKeyer prefixes every key of an inner keyer, for example to keep
// servers sharing one Redis instance apart.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer means
// [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// RepairKey returns the prefixed inner key.
func (k *ScopedKeyer) RepairKey(diagramHash string, opts RepairKeyOpts) string {
	return k.prefix + k.inner.RepairKey(diagramHash, opts)
}
