package redis_repo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRedisCheckoutLocker(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	locker := NewRedisCheckoutLocker(client, 30*time.Second)
	userID := uuid.New()

	release, err := locker.Acquire(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, client.ttls[generateCheckoutLockKey(userID)])

	_, err = locker.Acquire(ctx, userID)
	require.ErrorIs(t, err, ErrLockHeld)

	// 其他使用者不受影響
	otherRelease, err := locker.Acquire(ctx, uuid.New())
	require.NoError(t, err)
	require.NoError(t, otherRelease(ctx))

	require.NoError(t, release(ctx))
	require.False(t, client.has(generateCheckoutLockKey(userID)))

	_, err = locker.Acquire(ctx, userID)
	require.NoError(t, err)
}

// 過期後被別人拿走的鎖不能被舊的 release 刪掉
func TestRedisCheckoutLockerReleaseOnlyOwnToken(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	locker := NewRedisCheckoutLocker(client, time.Second)
	userID := uuid.New()
	key := generateCheckoutLockKey(userID)

	staleRelease, err := locker.Acquire(ctx, userID)
	require.NoError(t, err)

	client.Del(ctx, key)
	_, err = locker.Acquire(ctx, userID)
	require.NoError(t, err)

	require.NoError(t, staleRelease(ctx))
	require.True(t, client.has(key))
}

func TestRedisCheckoutLockerError(t *testing.T) {
	client := newFakeRedis()
	client.err = errors.New("connection refused")
	locker := NewRedisCheckoutLocker(client, time.Second)

	_, err := locker.Acquire(context.Background(), uuid.New())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrLockHeld)
}

func TestLocalCheckoutLocker(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	locker := NewLocalCheckoutLocker(10 * time.Second)
	locker.nowFn = func() time.Time { return now }
	userID := uuid.New()

	release, err := locker.Acquire(ctx, userID)
	require.NoError(t, err)
	_, err = locker.Acquire(ctx, userID)
	require.ErrorIs(t, err, ErrLockHeld)

	// 過期後可以重新取得
	now = now.Add(11 * time.Second)
	release2, err := locker.Acquire(ctx, userID)
	require.NoError(t, err)

	// 舊的 release 不影響新的鎖
	require.NoError(t, release(ctx))
	_, err = locker.Acquire(ctx, userID)
	require.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, release2(ctx))
	_, err = locker.Acquire(ctx, userID)
	require.NoError(t, err)
}

func TestLocalCheckoutLockerConcurrent(t *testing.T) {
	ctx := context.Background()
	locker := NewLocalCheckoutLocker(time.Minute)
	userID := uuid.New()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		acquired int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := locker.Acquire(ctx, userID); err == nil {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, acquired)
}
