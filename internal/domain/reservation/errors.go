package reservation

import (
	"errors"
	"fmt"
)

// Reservation ドメインのエラー定義
var (
	ErrReservationNotFound = errors.New("予約が見つかりません")
	ErrIllegalTransition   = errors.New("現在の状態からは変更できません")
	ErrUnauthorized        = errors.New("この予約を操作する権限がありません")
	ErrInvalidOutcome      = errors.New("審査結果は confirm または reject を指定してください")
	ErrStatusConflict      = errors.New("予約の状態が他の操作によって変更されました")
	ErrMissingField        = errors.New("必須項目が入力されていません")

	ErrHallIDRequired    = fmt.Errorf("%w: ホールID", ErrMissingField)
	ErrDateRequired      = fmt.Errorf("%w: 日付", ErrMissingField)
	ErrWindowRequired    = fmt.Errorf("%w: 開始・終了時刻", ErrMissingField)
	ErrRequesterRequired = fmt.Errorf("%w: 申請者", ErrMissingField)
)
