package reservation

import (
	"context"
	"time"

	"github.com/sanosuguru/go-hall-booking/internal/domain/slot"
	"github.com/sanosuguru/go-hall-booking/internal/domain/transaction"
)

// Filter は予約一覧の絞り込み条件
type Filter struct {
	Statuses    []Status
	HallID      string
	Date        *slot.Date
	RequesterID string
	Limit       int
	Offset      int
}

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は新しい予約を作成する（トランザクション必須）
	Create(ctx context.Context, tx transaction.Tx, reservation *Reservation) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Reservation, error)

	// ListActiveForSlot はホール・日付の有効な予約を取得する（トランザクション必須）
	// 実装はトランザクション終了まで同じホール・日付への書き込みを直列化すること
	ListActiveForSlot(ctx context.Context, tx transaction.Tx, hallID string, date slot.Date) ([]*Reservation, error)

	// List は条件に一致する予約を日付・開始時刻順に取得する
	List(ctx context.Context, filter Filter) ([]*Reservation, error)

	// UpdateStatus は現在の状態が from の場合に限り状態を更新する（トランザクション必須）
	// 状態が一致しない場合は ErrStatusConflict を返す
	UpdateStatus(ctx context.Context, tx transaction.Tx, reservation *Reservation, from Status) error

	// ListLapsedPending は開始時刻を過ぎても審査されていない保留中の予約を取得する
	ListLapsedPending(ctx context.Context, now time.Time) ([]*Reservation, error)
}
