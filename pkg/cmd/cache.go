package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mosaicdash/mosaic/pkg/cache"
)

// NewCache builds the resolution cache from a URL. Redis URLs get the
// shared external cache; anything else falls back to the in-process one,
// which is only suitable for a single node.
func NewCache(ctx context.Context, logger *slog.Logger, cacheURL string) cache.Cache {
	if strings.HasPrefix(cacheURL, "redis://") || strings.HasPrefix(cacheURL, "rediss://") {
		redisCache, err := cache.NewRedis(ctx, cacheURL)
		if err != nil {
			panic("failed to connect to redis cache: " + err.Error())
		}

		return redisCache
	}

	logger.Warn("using in-process cache, entries are not shared between nodes")

	return cache.NewMemory()
}
