package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-hall-booking/internal/domain/lock"
)

func TestLockManager(t *testing.T) {
	ctx := context.Background()

	t.Run("同じキーは取得できない", func(t *testing.T) {
		m := NewLockManager()
		l, err := m.AcquireLock(ctx, "k", time.Second)
		require.NoError(t, err)

		_, err = m.AcquireLock(ctx, "k", time.Second)
		assert.ErrorIs(t, err, lock.ErrLockNotAcquired)

		_, err = m.AcquireLock(ctx, "other", time.Second)
		assert.NoError(t, err)

		require.NoError(t, l.Release(ctx))
		_, err = m.AcquireLock(ctx, "k", time.Second)
		assert.NoError(t, err)
	})

	t.Run("期限切れのロックは奪える", func(t *testing.T) {
		m := NewLockManager()
		now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		m.now = func() time.Time { return now }

		stale, err := m.AcquireLock(ctx, "k", time.Second)
		require.NoError(t, err)

		now = now.Add(2 * time.Second)
		fresh, err := m.AcquireLock(ctx, "k", time.Second)
		require.NoError(t, err)

		assert.ErrorIs(t, stale.Release(ctx), lock.ErrLockNotOwned)
		assert.ErrorIs(t, stale.Extend(ctx, time.Second), lock.ErrLockNotOwned)
		assert.NoError(t, fresh.Extend(ctx, time.Second))
		assert.NoError(t, fresh.Release(ctx))
	})

	t.Run("リトライで取得できる", func(t *testing.T) {
		m := NewLockManager()
		held, err := m.AcquireLock(ctx, "k", time.Minute)
		require.NoError(t, err)

		go func() {
			time.Sleep(30 * time.Millisecond)
			held.Release(ctx)
		}()

		l, err := m.AcquireLockWithRetry(ctx, "k", time.Second, 50, 10*time.Millisecond)
		require.NoError(t, err)
		assert.NoError(t, l.Release(ctx))
	})

	t.Run("リトライ上限で諦める", func(t *testing.T) {
		m := NewLockManager()
		_, err := m.AcquireLock(ctx, "k", time.Minute)
		require.NoError(t, err)

		_, err = m.AcquireLockWithRetry(ctx, "k", time.Second, 3, time.Millisecond)
		assert.ErrorIs(t, err, lock.ErrLockNotAcquired)
	})

	t.Run("キャンセル済みのコンテキスト", func(t *testing.T) {
		m := NewLockManager()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := m.AcquireLock(cctx, "k", time.Second)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
