package lock

import (
	"context"
	"errors"
	"time"
)

var (
	ErrLockNotAcquired = errors.New("ロックを取得できませんでした")
	ErrLockNotOwned    = errors.New("ロックの所有者ではありません")
)

// Lock は取得済みのロックを表す
type Lock interface {
	// Release はロックを解放する
	Release(ctx context.Context) error
	// Extend はロックの有効期限を延長する
	Extend(ctx context.Context, ttl time.Duration) error
}

// Manager はキー単位の排他ロックを提供するインターフェース
// Redis による分散ロックとプロセス内ロックの両方がこれを実装する
type Manager interface {
	// AcquireLock はロックを1回だけ試みる
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (Lock, error)
	// AcquireLockWithRetry はリトライ付きでロックを取得する
	AcquireLockWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryInterval time.Duration) (Lock, error)
}
