package geo

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/yourorg/listing-harvester/internal/redisx"
)

// CachedSource decorates a Source with a Redis cache keyed per state. The
// cache is best-effort: any Redis failure falls through to the wrapped source.
type CachedSource struct {
	Next  Source
	Redis *redisx.Client
	TTL   time.Duration
	Log   *slog.Logger
}

func NewCachedSource(next Source, rdb *redisx.Client, ttl time.Duration, log *slog.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if log == nil {
		log = slog.Default()
	}
	return &CachedSource{Next: next, Redis: rdb, TTL: ttl, Log: log}
}

func (c *CachedSource) ZipCodes(ctx context.Context, state string) ([]Partition, error) {
	key := "geo:zips:" + state
	if raw, err := c.Redis.Get(ctx, key); err == nil {
		var parts []Partition
		if jsonErr := json.Unmarshal([]byte(raw), &parts); jsonErr == nil {
			return parts, nil
		}
		// Poisoned entry; drop it and refetch.
		_ = c.Redis.Del(ctx, key)
	} else if !redisx.IsMiss(err) {
		c.Log.Warn("geo cache read failed", slog.String("state", state), slog.Any("err", err))
	}

	parts, err := c.Next.ZipCodes(ctx, state)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(parts); err == nil {
		if err := c.Redis.Set(ctx, key, string(raw), c.TTL); err != nil {
			c.Log.Warn("geo cache write failed", slog.String("state", state), slog.Any("err", err))
		}
	}
	return parts, nil
}
