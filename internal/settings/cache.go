package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyPrefix = "ai:settings:"
	genKeyPrefix   = "ai:settings:gen:"
	cacheTTL       = 10 * time.Minute
	genTTL         = 24 * time.Hour
)

// setIfGeneration writes the row only while the user's generation still
// matches the one read before the row was loaded.
var setIfGeneration = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// Cache is a Redis read-through cache for settings rows. Each user has a
// generation counter that every update bumps, so a row loaded before an
// update is never cached after it.
type Cache struct {
	rdb redis.Cmdable
}

func NewCache(rdb redis.Cmdable) *Cache {
	return &Cache{rdb: rdb}
}

func cacheKey(userID int64) string {
	return cacheKeyPrefix + strconv.FormatInt(userID, 10)
}

func genKey(userID int64) string {
	return genKeyPrefix + strconv.FormatInt(userID, 10)
}

// Get returns the cached row, or nil on a miss.
func (c *Cache) Get(ctx context.Context, userID int64) (*Settings, error) {
	data, err := c.rdb.Get(ctx, cacheKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cached settings: %w", err)
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding cached settings: %w", err)
	}
	return &s, nil
}

// Generation returns the user's current generation, "0" if none was recorded.
func (c *Cache) Generation(ctx context.Context, userID int64) (string, error) {
	gen, err := c.rdb.Get(ctx, genKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "0", nil
		}
		return "", fmt.Errorf("reading settings generation: %w", err)
	}
	return gen, nil
}

// SetIfGeneration caches s unless an update has happened since gen was read.
// stored is false when the row was stale and skipped.
func (c *Cache) SetIfGeneration(ctx context.Context, s *Settings, gen string) (stored bool, err error) {
	data, err := json.Marshal(s)
	if err != nil {
		return false, fmt.Errorf("encoding settings: %w", err)
	}
	n, err := setIfGeneration.Run(ctx, c.rdb,
		[]string{cacheKey(s.UserID), genKey(s.UserID)},
		gen, data, cacheTTL.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("caching settings: %w", err)
	}
	return n == 1, nil
}

// Invalidate bumps the generation and drops the cached row in one transaction.
func (c *Cache) Invalidate(ctx context.Context, userID int64) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(userID))
		pipe.Expire(ctx, genKey(userID), genTTL)
		pipe.Del(ctx, cacheKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidating cached settings: %w", err)
	}
	return nil
}
