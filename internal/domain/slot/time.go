package slot

import (
	"fmt"
	"time"
)

// Date は時刻を持たない暦日を表す
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// DateOf は時刻 t のロケーションにおける暦日を返す
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate は "YYYY-MM-DD" 形式の文字列を解析する
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("日付の形式が不正です: %q", s)
	}
	return DateOf(t), nil
}

// IsZero は日付が未設定かを返す
func (d Date) IsZero() bool {
	return d == Date{}
}

// Before は d が o より前の日付かを返す
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// Time は d の 0 時を loc で表した時刻を返す
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// TimeOfDay は 0 時からの経過秒数で表した時刻
type TimeOfDay int

const secondsPerDay = 24 * 60 * 60

// EndOfDay は終了時刻としてだけ使える 24:00
const EndOfDay TimeOfDay = secondsPerDay

// At は時・分・秒から TimeOfDay を作る
func At(hour, minute, sec int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60 + sec)
}

// TimeOfDayOf は t の時刻部分を返す
func TimeOfDayOf(t time.Time) TimeOfDay {
	return At(t.Hour(), t.Minute(), t.Second())
}

// ParseTimeOfDay は "HH:MM" または "HH:MM:SS" を解析する。"24:00" は EndOfDay になる
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if s == "24:00" || s == "24:00:00" {
		return EndOfDay, nil
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDayOf(t), nil
		}
	}
	return 0, fmt.Errorf("時刻の形式が不正です: %q", s)
}

// Valid は 00:00:00 から 23:59:59 の範囲内かを返す
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < secondsPerDay
}

// ValidEnd は終了時刻として 00:00:01 から 24:00 の範囲内かを返す
func (t TimeOfDay) ValidEnd() bool {
	return t > 0 && t <= EndOfDay
}

// Duration は 0 時からの経過時間を返す
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t) * time.Second
}

// String は "HH:MM" 形式（秒があれば "HH:MM:SS"）で返す
func (t TimeOfDay) String() string {
	h, m, s := int(t)/3600, int(t)%3600/60, int(t)%60
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}
