package clock

import "time"

// Clock は現在時刻を返すインターフェース。過去日時の判定をテスト可能にするために注入する
type Clock interface {
	Now() time.Time
}

// RealClock は指定ロケーションの壁時計
type RealClock struct {
	Location *time.Location
}

// New は loc の壁時計を返す。loc が nil の場合はローカル時刻
func New(loc *time.Location) RealClock {
	if loc == nil {
		loc = time.Local
	}
	return RealClock{Location: loc}
}

func (c RealClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// Fixed は常に同じ時刻を返す
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }
