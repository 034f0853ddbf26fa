package hall

import "errors"

// Hall ドメインのエラー定義
var (
	ErrHallNotFound     = errors.New("ホールが見つかりません")
	ErrInvalidHallID    = errors.New("ホールIDは英小文字・数字・ハイフンで指定してください")
	ErrHallNameRequired = errors.New("ホール名は必須です")
	ErrInvalidCapacity  = errors.New("収容人数は1以上である必要があります")
)
