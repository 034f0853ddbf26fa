package slot

import "time"

// Slot はホール・日付・時間帯の組を表す。時間帯は [Start, End) の半開区間
type Slot struct {
	HallID string
	Date   Date
	Start  TimeOfDay
	End    TimeOfDay
}

// SameDay は同じホールの同じ日かを返す
func (s Slot) SameDay(o Slot) bool {
	return s.HallID == o.HallID && s.Date == o.Date
}

// Overlaps は2つの時間帯が1瞬でも重なるかを返す。端点が接するだけなら重ならない
func (s Slot) Overlaps(o Slot) bool {
	return s.Start < o.End && o.Start < s.End
}

// Validate は候補スロットが既存の有効な予約に対して受け付け可能かを判定する。
// チェック順は 時間帯の整合性 → 過去日時 → 重複 で、最初の失敗を返す。
// existing には保留中・確定済みの予約だけを渡すこと。
func Validate(candidate Slot, existing []Slot, now time.Time) error {
	if candidate.Start >= candidate.End {
		return ErrInvalidWindow
	}

	today := DateOf(now)
	if candidate.Date.Before(today) {
		return ErrPastWindow
	}
	if candidate.Date == today {
		cur := TimeOfDayOf(now)
		if candidate.Start <= cur || candidate.End <= cur {
			return ErrPastWindow
		}
	}

	for _, e := range existing {
		if candidate.SameDay(e) && candidate.Overlaps(e) {
			return ErrHallAlreadyBooked
		}
	}
	return nil
}

// DayKey はホール・日付単位の排他に使うキーを返す
func DayKey(hallID string, date Date) string {
	return "booking:" + hallID + ":" + date.String()
}
