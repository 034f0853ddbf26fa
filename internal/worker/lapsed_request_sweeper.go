package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-hall-booking/internal/pkg/logger"
)

// LapsedRequestCanceller は開始時刻を過ぎた未審査の申請をキャンセルするインターフェース
type LapsedRequestCanceller interface {
	CancelLapsedRequests(ctx context.Context) (int, error)
}

// LapsedRequestSweeper は未審査のまま開始時刻を過ぎた申請を定期的にキャンセルするワーカー
type LapsedRequestSweeper struct {
	service  LapsedRequestCanceller
	interval time.Duration
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewLapsedRequestSweeper は新しいスイーパーを作成
func NewLapsedRequestSweeper(s LapsedRequestCanceller, interval time.Duration) *LapsedRequestSweeper {
	return &LapsedRequestSweeper{
		service:  s,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start はスイーパーを開始する。起動直後に1回実行し、以降は interval ごとに実行する
func (w *LapsedRequestSweeper) Start(ctx context.Context) {
	log := logger.Named("lapsed-sweeper")
	log.Info("期限切れ申請スイーパー開始", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneCh)

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info("期限切れ申請スイーパー停止（コンテキストキャンセル）")
			return
		case <-w.stopCh:
			log.Info("期限切れ申請スイーパー停止（シグナル受信）")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// Stop はスイーパーを停止し、実行中の処理の終了を待つ。Start 後に呼ぶこと
func (w *LapsedRequestSweeper) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
}

func (w *LapsedRequestSweeper) sweep(ctx context.Context) {
	log := logger.Named("lapsed-sweeper")
	log.Debug("期限切れ申請の確認開始")

	count, err := w.service.CancelLapsedRequests(ctx)
	if err != nil {
		// 一部だけキャンセルできた場合も件数を残す
		log.Error("期限切れ申請のキャンセル失敗", zap.Int("count", count), zap.Error(err))
		return
	}

	if count > 0 {
		log.Info("期限切れ申請をキャンセル", zap.Int("count", count))
	} else {
		log.Debug("期限切れ申請なし")
	}
}
