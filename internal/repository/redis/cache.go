package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/kirinyoku/resortbook/internal/domain"
)

type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func New(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

func (c *Cache) GetString(ctx context.Context, key string) (string, bool, error) {
	s, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}

	if err != nil {
		return "", false, err
	}

	return s, true, nil
}

func (c *Cache) SetString(
	ctx context.Context,
	key string,
	val string,
	ttl time.Duration,
) error {
	return c.rdb.Set(ctx, key, val, ttl).Err()
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	return c.rdb.Del(ctx, keys...).Err()
}

func GetJSON[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	var zero T

	s, ok, err := c.GetString(ctx, key)
	if err != nil || !ok {
		return zero, ok, err
	}

	var out T
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return zero, false, err
	}

	return out, true, nil
}

func SetJSON(
	ctx context.Context,
	c *Cache,
	key string,
	val any,
	ttl time.Duration,
) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return c.SetString(ctx, key, string(b), ttl)
}

// sharedLoadTimeout bounds a loader run on behalf of several callers.
const sharedLoadTimeout = 10 * time.Second

// Sets key only while its generation still matches the one read before
// loading.
// KEYS[1] = key
// KEYS[2] = generation key
// ARGV[1] = expected generation
// ARGV[2] = value
// ARGV[3] = ttl_ms
const luaSetIfGeneration = `
local gen = redis.call('GET', KEYS[2])
if not gen then gen = '0' end
if gen ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`

var setIfGenerationScript = redis.NewScript(luaSetIfGeneration)

// generationTTL outlives any loader still holding an old generation.
const generationTTL = 48 * time.Hour

func generationKey(key string) string {
	return key + ":gen"
}

// GetOrSetJSON returns the cached value at key or loads, stores and returns
// it. Concurrent misses for one key share a single loader call. A failed
// cache read falls through to the loader.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	return getOrSet(ctx, c, key, ttl, loader, false)
}

// GetOrSetVersionedJSON is GetOrSetJSON for keys dropped with Invalidate.
// A value loaded before an Invalidate is returned to its callers but not
// stored.
func GetOrSetVersionedJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	return getOrSet(ctx, c, key, ttl, loader, true)
}

func getOrSet[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
	versioned bool,
) (T, error) {
	if v, ok, err := GetJSON[T](ctx, c, key); err == nil && ok {
		return v, nil
	}

	vAny, err, _ := c.sf.Do(key, func() (any, error) {
		// Every waiter shares this result, so it must not depend on the
		// first caller staying around.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLoadTimeout)
		defer cancel()

		var (
			gen    string
			genErr error
		)
		if versioned {
			gen, genErr = c.generation(ctx, key)
		}

		if v2, ok2, err2 := GetJSON[T](ctx, c, key); err2 == nil && ok2 {
			return v2, nil
		}
		v3, err3 := loader(ctx)
		if err3 != nil {
			return nil, err3
		}

		switch {
		case !versioned:
			_ = SetJSON(ctx, c, key, v3, ttl)
		case genErr == nil:
			_ = c.setIfGeneration(ctx, key, gen, v3, ttl)
		}
		return v3, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	v, ok := vAny.(T)
	if !ok {
		var zero T
		return zero, errors.New("type assertion failed")
	}

	return v, nil
}

func (c *Cache) generation(ctx context.Context, key string) (string, error) {
	gen, err := c.rdb.Get(ctx, generationKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	if err != nil {
		return "", err
	}

	return gen, nil
}

func (c *Cache) setIfGeneration(ctx context.Context, key, gen string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	ttlMs := ttl.Milliseconds()
	if ttlMs < 1 {
		ttlMs = 1
	}

	return setIfGenerationScript.Run(ctx, c.rdb, []string{key, generationKey(key)}, gen, string(b), ttlMs).Err()
}

// Invalidate drops keys and bumps their generations, so loads already in
// flight cannot store what they read.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			pipe.Incr(ctx, generationKey(k))
			pipe.Expire(ctx, generationKey(k), generationTTL)
		}
		pipe.Del(ctx, keys...)
		return nil
	})

	return err
}

func (c *Cache) InvalidateAvailability(ctx context.Context, keys ...domain.DateKey) error {
	redisKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		redisKeys = append(redisKeys, KeyAvailability(k))
	}

	return c.Invalidate(ctx, redisKeys...)
}
