package ratelimit

import (
	"context"
	"time"
)

// Config token bucket 設定，Capacity 為瞬間可消耗的最大數量
type Config struct {
	Capacity      int
	RatePerSecond float64
	// KeyTTL bucket 閒置多久後可被回收
	KeyTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		Capacity:      5,
		RatePerSecond: 0.2,
		KeyTTL:        time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Capacity <= 0 {
		c.Capacity = d.Capacity
	}
	if c.RatePerSecond <= 0 {
		c.RatePerSecond = d.RatePerSecond
	}
	if c.KeyTTL <= 0 {
		c.KeyTTL = d.KeyTTL
	}
	return c
}

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
