package redis_repo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld 同一使用者已有結帳進行中
var ErrLockHeld = errors.New("checkout lock held")

// ReleaseFunc 釋放鎖，只會釋放自己持有的鎖
type ReleaseFunc func(ctx context.Context) error

type ICheckoutLocker interface {
	Acquire(ctx context.Context, userID uuid.UUID) (ReleaseFunc, error)
}

// LockClient RedisCheckoutLocker 需要的 redis 指令
type LockClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// 只有 value 相同才刪除，避免過期後刪到別人的鎖
const releaseScript = `
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`

type RedisCheckoutLocker struct {
	client LockClient
	ttl    time.Duration
}

func NewRedisCheckoutLocker(client LockClient, ttl time.Duration) *RedisCheckoutLocker {
	return &RedisCheckoutLocker{client: client, ttl: ttl}
}

func generateCheckoutLockKey(userID uuid.UUID) string {
	return fmt.Sprintf("checkout:%s:lock", userID)
}

func (l *RedisCheckoutLocker) Acquire(ctx context.Context, userID uuid.UUID) (ReleaseFunc, error) {
	key := generateCheckoutLockKey(userID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire checkout lock: %w", err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	return func(ctx context.Context) error {
		return l.client.Eval(ctx, releaseScript, []string{key}, token).Err()
	}, nil
}

// LocalCheckoutLocker 單機版，沒有設定 redis 時使用
type LocalCheckoutLocker struct {
	mu    sync.Mutex
	held  map[uuid.UUID]localLock
	ttl   time.Duration
	nowFn func() time.Time
}

type localLock struct {
	token     string
	expiresAt time.Time
}

func NewLocalCheckoutLocker(ttl time.Duration) *LocalCheckoutLocker {
	return &LocalCheckoutLocker{
		held:  make(map[uuid.UUID]localLock),
		ttl:   ttl,
		nowFn: time.Now,
	}
}

func (l *LocalCheckoutLocker) Acquire(ctx context.Context, userID uuid.UUID) (ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFn()
	if cur, ok := l.held[userID]; ok && now.Before(cur.expiresAt) {
		return nil, ErrLockHeld
	}

	token := uuid.NewString()
	l.held[userID] = localLock{token: token, expiresAt: now.Add(l.ttl)}

	return func(ctx context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if cur, ok := l.held[userID]; ok && cur.token == token {
			delete(l.held, userID)
		}
		return nil
	}, nil
}

var (
	_ ICheckoutLocker = (*RedisCheckoutLocker)(nil)
	_ ICheckoutLocker = (*LocalCheckoutLocker)(nil)
)
