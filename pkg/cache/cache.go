// Package cache provides the external cache boundary used by variable
// resolution. Every key embeds the owning workspace's last-modified stamp,
// so an entry is either exactly current or orphaned, never silently wrong.
package cache

import (
	"context"
	"time"
)

// DefaultTTL bounds how long orphaned entries linger.
const DefaultTTL = 24 * time.Hour

// Cache is the get/set/delete boundary. Get returns (nil, nil) on a miss;
// values are JSON documents encoded by the caller.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
