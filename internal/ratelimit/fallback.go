package ratelimit

import (
	"context"

	"github.com/rs/zerolog/log"
)

// FallbackLimiter primary 發生錯誤時改用 secondary 判斷
type FallbackLimiter struct {
	primary   Limiter
	secondary Limiter
}

func NewFallbackLimiter(primary, secondary Limiter) *FallbackLimiter {
	return &FallbackLimiter{primary: primary, secondary: secondary}
}

func (f *FallbackLimiter) Allow(ctx context.Context, key string) (bool, error) {
	allowed, err := f.primary.Allow(ctx, key)
	if err == nil {
		return allowed, nil
	}
	log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable, using local bucket")
	return f.secondary.Allow(ctx, key)
}

var _ Limiter = (*FallbackLimiter)(nil)
