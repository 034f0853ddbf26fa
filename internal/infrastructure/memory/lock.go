package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sanosuguru/go-hall-booking/internal/domain/lock"
)

type holder struct {
	token     string
	expiresAt time.Time
}

// LockManager はプロセス内でキー単位の排他を提供する。期限切れのロックは次の取得者が奪える
type LockManager struct {
	mu    sync.Mutex
	locks map[string]holder
	now   func() time.Time
}

var _ lock.Manager = (*LockManager)(nil)

func NewLockManager() *LockManager {
	return &LockManager{locks: make(map[string]holder), now: time.Now}
}

type keyLock struct {
	m     *LockManager
	key   string
	token string
}

// AcquireLock はロックを1回だけ試みる
func (m *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (lock.Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if h, ok := m.locks[key]; ok && now.Before(h.expiresAt) {
		return nil, lock.ErrLockNotAcquired
	}
	token := uuid.NewString()
	m.locks[key] = holder{token: token, expiresAt: now.Add(ttl)}
	return &keyLock{m: m, key: key, token: token}, nil
}

// AcquireLockWithRetry はリトライ付きでロックを取得する
func (m *LockManager) AcquireLockWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryInterval time.Duration) (lock.Lock, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		l, err := m.AcquireLock(ctx, key, ttl)
		if err == nil {
			return l, nil
		}
		lastErr = err
		if !errors.Is(err, lock.ErrLockNotAcquired) || i == maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return nil, lastErr
}

func (l *keyLock) Release(ctx context.Context) error {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	h, ok := l.m.locks[l.key]
	if !ok || h.token != l.token {
		return lock.ErrLockNotOwned
	}
	delete(l.m.locks, l.key)
	return nil
}

func (l *keyLock) Extend(ctx context.Context, ttl time.Duration) error {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	h, ok := l.m.locks[l.key]
	now := l.m.now()
	if !ok || h.token != l.token || !now.Before(h.expiresAt) {
		return lock.ErrLockNotOwned
	}
	l.m.locks[l.key] = holder{token: l.token, expiresAt: now.Add(ttl)}
	return nil
}
