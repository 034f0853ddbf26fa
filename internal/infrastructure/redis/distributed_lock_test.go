package redis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-hall-booking/internal/domain/lock"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client, err := NewClient(&Config{Host: "localhost", Port: "6379"})
	if err != nil {
		t.Skip("Redis not available")
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// testKey はテスト実行ごとに衝突しないキーを返す
func testKey(name string) string {
	return "test:" + name + ":" + uuid.NewString()
}

func TestLockManager_AcquireLock(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	manager := NewLockManager(client)

	t.Run("ロックを取得できる", func(t *testing.T) {
		l, err := manager.AcquireLock(ctx, testKey("acquire"), 5*time.Second)
		require.NoError(t, err)
		require.NotNil(t, l)
		defer l.Release(ctx)
	})

	t.Run("同じキーのロックは取得できない", func(t *testing.T) {
		key := testKey("busy")
		lock1, err := manager.AcquireLock(ctx, key, 5*time.Second)
		require.NoError(t, err)
		defer lock1.Release(ctx)

		lock2, err := manager.AcquireLock(ctx, key, 5*time.Second)
		assert.ErrorIs(t, err, lock.ErrLockNotAcquired)
		assert.Nil(t, lock2)
	})

	t.Run("解放後は再取得できる", func(t *testing.T) {
		key := testKey("reacquire")
		lock1, err := manager.AcquireLock(ctx, key, 5*time.Second)
		require.NoError(t, err)
		require.NoError(t, lock1.Release(ctx))

		lock2, err := manager.AcquireLock(ctx, key, 5*time.Second)
		require.NoError(t, err)
		defer lock2.Release(ctx)
	})

	t.Run("リトライで取得できる", func(t *testing.T) {
		key := testKey("retry")
		lock1, err := manager.AcquireLock(ctx, key, 5*time.Second)
		require.NoError(t, err)

		go func() {
			time.Sleep(150 * time.Millisecond)
			lock1.Release(ctx)
		}()

		lock2, err := manager.AcquireLockWithRetry(ctx, key, 5*time.Second, 20, 50*time.Millisecond)
		require.NoError(t, err)
		defer lock2.Release(ctx)
	})

	t.Run("リトライ上限で諦める", func(t *testing.T) {
		key := testKey("exhausted")
		lock1, err := manager.AcquireLock(ctx, key, 5*time.Second)
		require.NoError(t, err)
		defer lock1.Release(ctx)

		_, err = manager.AcquireLockWithRetry(ctx, key, 5*time.Second, 3, 10*time.Millisecond)
		assert.ErrorIs(t, err, lock.ErrLockNotAcquired)
	})

	t.Run("ロックを延長できる", func(t *testing.T) {
		key := testKey("extend")
		l, err := manager.AcquireLock(ctx, key, 1*time.Second)
		require.NoError(t, err)
		defer l.Release(ctx)

		require.NoError(t, l.Extend(ctx, 5*time.Second))

		lock2, err := manager.AcquireLock(ctx, key, 1*time.Second)
		assert.ErrorIs(t, err, lock.ErrLockNotAcquired)
		assert.Nil(t, lock2)
	})

	t.Run("解放後は延長できない", func(t *testing.T) {
		l, err := manager.AcquireLock(ctx, testKey("extend-after-release"), 1*time.Second)
		require.NoError(t, err)
		require.NoError(t, l.Release(ctx))

		assert.ErrorIs(t, l.Extend(ctx, 5*time.Second), lock.ErrLockNotOwned)
		assert.ErrorIs(t, l.Release(ctx), lock.ErrLockNotOwned)
	})
}
