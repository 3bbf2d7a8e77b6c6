package crawler

import (
	"context"
	"fmt"
	"time"

	"sjsage522/listupjorei/logger"
	crawlerrors "sjsage522/listupjorei/pkg/errors"
	"sjsage522/listupjorei/services/cache"
)

// GuardedFetcher wraps a Fetcher with a shared rate-limit block.
// When the registry answers 429/430 the block key is stored for BlockTime and
// later runs fail fast instead of hammering the registry again.
type GuardedFetcher struct {
	Fetcher   Fetcher
	CacheSvc  cache.CacheService
	CacheKey  string
	BlockTime time.Duration
}

// NewGuardedFetcher creates a guarded fetcher. A nil cacheSvc disables the guard.
func NewGuardedFetcher(fetcher Fetcher, cacheSvc cache.CacheService, cacheKey string, blockTime time.Duration) *GuardedFetcher {
	return &GuardedFetcher{
		Fetcher:   fetcher,
		CacheSvc:  cacheSvc,
		CacheKey:  cacheKey,
		BlockTime: blockTime,
	}
}

func (g *GuardedFetcher) guarded() bool {
	return g.CacheSvc != nil && g.CacheKey != ""
}

// Fetch fetches url unless the block key is present
func (g *GuardedFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	// Check if the registry is rate limited
	if g.guarded() {
		if _, err := g.CacheSvc.Get(g.CacheKey); err == nil {
			logger.ForFetcher().Warn().
				Str("key", g.CacheKey).
				Str("url", url).
				Msg("Registry is blocked, request not sent")
			return nil, crawlerrors.New(crawlerrors.ErrorTypeRateLimit, "guard",
				fmt.Sprintf("%s: not sending requests for %ds", g.CacheKey, int(g.BlockTime/time.Second)), nil)
		}
	}

	body, err := g.Fetcher.Fetch(ctx, url)
	if err != nil {
		if g.guarded() && crawlerrors.IsType(err, crawlerrors.ErrorTypeRateLimit) {
			value := []byte(fmt.Sprintf("%d", g.BlockTime/time.Second))
			if cerr := g.CacheSvc.Set(g.CacheKey, value, g.BlockTime); cerr != nil {
				logger.ForCache().WithError(cerr).Warn().
					Str("key", g.CacheKey).
					Msg("Failed to set rate limit block")
			}
		}
		return nil, err
	}

	return body, nil
}
