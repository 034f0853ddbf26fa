package slot

import "errors"

// Slot 検証のエラー定義
var (
	ErrInvalidWindow     = errors.New("開始時刻は終了時刻より前である必要があります")
	ErrPastWindow        = errors.New("過去の日時は予約できません")
	ErrHallAlreadyBooked = errors.New("ホールは既に予約されています")
)
