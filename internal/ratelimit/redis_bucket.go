package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient 介面定義
type RedisClient interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// tokenBucketScript 以 hash 保存 tokens 與上次補充時間(ns)
const tokenBucketScript = `
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local rate = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])

	local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
	local currentTokens = tonumber(bucket[1])
	local lastRefill = tonumber(bucket[2])

	if currentTokens == nil then
		currentTokens = capacity
		lastRefill = now
	end

	local elapsedSeconds = math.max(0, now - lastRefill) / 1000000000
	currentTokens = math.min(capacity, currentTokens + elapsedSeconds * rate)

	local allowed = 0
	if currentTokens >= 1 then
		currentTokens = currentTokens - 1
		allowed = 1
	end

	redis.call('HSET', key, 'tokens', currentTokens, 'last_refill', now)
	redis.call('EXPIRE', key, ttl)
	return allowed
`

type RedisTokenBucket struct {
	Config
	client RedisClient
	prefix string
	nowFn  func() time.Time
}

func NewRedisTokenBucket(client RedisClient, prefix string, config Config) *RedisTokenBucket {
	return &RedisTokenBucket{
		Config: config.withDefaults(),
		client: client,
		prefix: prefix,
		nowFn:  time.Now,
	}
}

func (r *RedisTokenBucket) bucketKey(key string) string {
	return fmt.Sprintf("%s:ratelimit:%s", r.prefix, key)
}

func (r *RedisTokenBucket) Allow(ctx context.Context, key string) (bool, error) {
	ttl := int64(r.KeyTTL.Seconds())
	if ttl < 1 {
		ttl = 1
	}

	result, err := r.client.Eval(
		ctx,
		tokenBucketScript,
		[]string{r.bucketKey(key)},
		r.Capacity,
		r.RatePerSecond,
		r.nowFn().UnixNano(),
		ttl,
	).Int64()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}

var _ Limiter = (*RedisTokenBucket)(nil)
