package transaction

import "errors"

// 永続化層のエラー定義。リトライは永続化層自身のポリシーに任せ、ここでは種別だけを表す
var (
	ErrStorageUnavailable  = errors.New("ストレージを利用できません")
	ErrConstraintViolation = errors.New("ストレージの制約に違反しました")
)
