package price

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/quocanhngo/pricewatch/internal/model"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "pricewatch:price:"

// RedisCache shares quotes between instances. Keys expire after retention,
// which should be at least the source TTL.
type RedisCache struct {
	rdb       *redis.Client
	retention time.Duration
}

func NewRedisCache(rdb *redis.Client, retention time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, retention: retention}
}

func (c *RedisCache) Get(ctx context.Context, symbol string) (model.CachedPrice, bool, error) {
	val, err := c.rdb.Get(ctx, redisKeyPrefix+symbol).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.CachedPrice{}, false, nil
	}
	if err != nil {
		return model.CachedPrice{}, false, err
	}

	var entry model.CachedPrice
	if err := json.Unmarshal(val, &entry); err != nil {
		return model.CachedPrice{}, false, err
	}
	return entry, true, nil
}

func (c *RedisCache) Set(ctx context.Context, symbol string, entry model.CachedPrice) error {
	val, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, redisKeyPrefix+symbol, val, c.retention).Err()
}

// Snapshot scans every cached symbol. Meant for the stats endpoint only.
func (c *RedisCache) Snapshot(ctx context.Context) (map[string]model.CachedPrice, error) {
	keys, err := c.scanKeys(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]model.CachedPrice, len(keys))
	for _, key := range keys {
		symbol := strings.TrimPrefix(key, redisKeyPrefix)
		entry, ok, err := c.Get(ctx, symbol)
		if err != nil {
			return nil, err
		}
		if ok {
			out[symbol] = entry
		}
	}
	return out, nil
}

func (c *RedisCache) scanKeys(ctx context.Context) ([]string, error) {
	var cursor uint64
	var keys []string
	for {
		found, next, err := c.rdb.Scan(ctx, cursor, redisKeyPrefix+"*", 1000).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, found...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}
