package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

type localBucket struct {
	tokens     float64
	lastRefill time.Time
}

// LocalTokenBucket 單機版，每個 key 一個 bucket，取用時才補充 token
type LocalTokenBucket struct {
	Config
	mu      sync.Mutex
	buckets map[string]*localBucket
	nowFn   func() time.Time
}

func NewLocalTokenBucket(config Config) *LocalTokenBucket {
	return &LocalTokenBucket{
		Config:  config.withDefaults(),
		buckets: make(map[string]*localBucket),
		nowFn:   time.Now,
	}
}

func (l *LocalTokenBucket) Allow(ctx context.Context, key string) (bool, error) {
	now := l.nowFn()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.evictIdle(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &localBucket{tokens: float64(l.Capacity), lastRefill: now}
		l.buckets[key] = b
	}

	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(float64(l.Capacity), b.tokens+elapsed*l.RatePerSecond)
		b.lastRefill = now
	}

	if b.tokens < 1 {
		return false, nil
	}
	b.tokens--
	return true, nil
}

// evictIdle 移除閒置超過 KeyTTL 的 bucket，閒置夠久的 bucket 本來就會補滿
func (l *LocalTokenBucket) evictIdle(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.lastRefill) > l.KeyTTL {
			delete(l.buckets, k)
		}
	}
}

var _ Limiter = (*LocalTokenBucket)(nil)
