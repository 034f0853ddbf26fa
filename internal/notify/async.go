package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-hall-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-hall-booking/internal/pkg/metrics"
)

// ErrQueueFull は送信待ちの通知が上限に達したときに返る
var ErrQueueFull = errors.New("通知キューが満杯です")

const asyncSinkName = "async"

// Async は通知をキューに積み、別のゴルーチンから送る。
// Notify は送信を待たずに戻り、各送信は timeout で打ち切る
type Async struct {
	next    Notifier
	timeout time.Duration
	metrics *metrics.Metrics

	queue     chan Event
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

var _ Notifier = (*Async)(nil)

// NewAsync は next への送信を非同期にする。m が nil の場合はメトリクスを記録しない
func NewAsync(next Notifier, size int, timeout time.Duration, m *metrics.Metrics) *Async {
	if size <= 0 {
		size = 1
	}
	a := &Async{
		next:    next,
		timeout: timeout,
		metrics: m,
		queue:   make(chan Event, size),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// Notify はイベントをキューに積む。満杯または停止済みの場合は破棄して ErrQueueFull を返す
func (a *Async) Notify(ctx context.Context, e Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.count("dropped")
		return ErrQueueFull
	}
	// 呼び出し元が予約を書き換えても送信内容が変わらないよう複製して積む
	if e.Reservation != nil {
		r := *e.Reservation
		e.Reservation = &r
	}
	select {
	case a.queue <- e:
		return nil
	default:
		a.count("dropped")
		return ErrQueueFull
	}
}

func (a *Async) run() {
	defer close(a.done)
	for e := range a.queue {
		a.deliver(e)
	}
}

func (a *Async) deliver(e Event) {
	ctx := context.Background()
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	if err := a.next.Notify(ctx, e); err != nil {
		fields := []zap.Field{zap.String("type", string(e.Type)), zap.Error(err)}
		if e.Reservation != nil {
			fields = append(fields, zap.String("reservation_id", e.Reservation.ID))
		}
		logger.Named("notify").Warn("通知の送信に失敗しました", fields...)
	}
}

func (a *Async) count(status string) {
	if a.metrics != nil {
		a.metrics.NotificationsTotal.WithLabelValues(asyncSinkName, status).Inc()
	}
}

// Close は新しい通知の受付を止め、キューに残った通知を送りきるか ctx が終わるまで待つ
func (a *Async) Close(ctx context.Context) error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.queue)
		a.mu.Unlock()
	})
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
