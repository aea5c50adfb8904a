package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "sitecms:"

// RedisStore keeps values under "<prefix>v:<key>" and one set per tag under
// "<prefix>t:<tag>" listing the keys that carry it.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

var setIfGeneration = redis.NewScript(`
local gen = redis.call('GET', KEYS[1]) or '0'
if gen ~= ARGV[1] then
  return 0
end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
  redis.call('SET', KEYS[2], ARGV[2], 'PX', ttl)
else
  redis.call('SET', KEYS[2], ARGV[2])
end
for i = 3, #KEYS do
  redis.call('SADD', KEYS[i], KEYS[2])
end
return 1
`)

func (s *RedisStore) genKey() string               { return s.prefix + "gen" }
func (s *RedisStore) valueKey(key string) string { return s.prefix + "v:" + key }
func (s *RedisStore) tagKey(tag string) string   { return s.prefix + "t:" + tag }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, s.valueKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis cache get: %w", err)
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, tags []string, ttl time.Duration) error {
	if key == "" {
		return ErrKeyRequired
	}
	valueKey := s.valueKey(key)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, valueKey, value, ttl)
	for _, tag := range tags {
		pipe.SAdd(ctx, s.tagKey(tag), valueKey)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis cache set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.valueKey(key)).Err()
}

func (s *RedisStore) InvalidateTags(ctx context.Context, tags ...string) (int, error) {
	if len(tags) == 0 {
		return 0, nil
	}
	var members []string
	tagKeys := make([]string, 0, len(tags))
	for _, tag := range tags {
		tagKey := s.tagKey(tag)
		tagKeys = append(tagKeys, tagKey)
		keys, err := s.client.SMembers(ctx, tagKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return 0, fmt.Errorf("redis cache tag members: %w", err)
		}
		members = append(members, keys...)
	}

	pipe := s.client.TxPipeline()
	var deleted *redis.IntCmd
	if len(members) > 0 {
		deleted = pipe.Del(ctx, members...)
	}
	pipe.Del(ctx, tagKeys...)
	pipe.Incr(ctx, s.genKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis cache invalidate: %w", err)
	}
	if deleted == nil {
		return 0, nil
	}
	return int(deleted.Val()), nil
}

func (s *RedisStore) Generation(ctx context.Context) (uint64, error) {
	gen, err := s.client.Get(ctx, s.genKey()).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis cache generation: %w", err)
	}
	return gen, nil
}

func (s *RedisStore) SetIfGeneration(ctx context.Context, key string, value []byte, tags []string, ttl time.Duration, generation uint64) (bool, error) {
	if key == "" {
		return false, ErrKeyRequired
	}
	keys := make([]string, 0, len(tags)+2)
	keys = append(keys, s.genKey(), s.valueKey(key))
	for _, tag := range tags {
		keys = append(keys, s.tagKey(tag))
	}
	stored, err := setIfGeneration.Run(ctx, s.client, keys, strconv.FormatUint(generation, 10), value, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("redis cache set: %w", err)
	}
	return stored == 1, nil
}

// NewRedisClient connects and pings. A blank address returns (nil, nil) so
// callers can fall back to the memory store.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}
