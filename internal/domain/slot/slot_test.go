package slot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jst = time.FixedZone("Asia/Tokyo", 9*60*60)

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestValidate(t *testing.T) {
	// 2024-05-31 12:00 を現在時刻とする
	now := time.Date(2024, 5, 31, 12, 0, 0, 0, jst)
	day := mustDate(t, "2024-06-01")
	today := mustDate(t, "2024-05-31")

	booked := []Slot{
		{HallID: "hall-a", Date: day, Start: At(8, 0, 0), End: At(10, 0, 0)},
	}

	tests := []struct {
		name      string
		candidate Slot
		existing  []Slot
		wantErr   error
	}{
		{
			name:      "重複する時間帯は予約済み",
			candidate: Slot{HallID: "hall-a", Date: day, Start: At(9, 0, 0), End: At(11, 0, 0)},
			existing:  booked,
			wantErr:   ErrHallAlreadyBooked,
		},
		{
			name:      "終了時刻に接する予約は受け付ける",
			candidate: Slot{HallID: "hall-a", Date: day, Start: At(10, 0, 0), End: At(11, 0, 0)},
			existing:  booked,
		},
		{
			name:      "開始時刻に接する予約は受け付ける",
			candidate: Slot{HallID: "hall-a", Date: day, Start: At(7, 0, 0), End: At(8, 0, 0)},
			existing:  booked,
		},
		{
			name:      "別ホールなら同じ時間帯でも受け付ける",
			candidate: Slot{HallID: "hall-b", Date: day, Start: At(9, 0, 0), End: At(10, 0, 0)},
			existing:  booked,
		},
		{
			name:      "別の日なら同じ時間帯でも受け付ける",
			candidate: Slot{HallID: "hall-a", Date: mustDate(t, "2024-06-02"), Start: At(9, 0, 0), End: At(10, 0, 0)},
			existing:  booked,
		},
		{
			name:      "既存予約を完全に含む",
			candidate: Slot{HallID: "hall-a", Date: day, Start: At(7, 0, 0), End: At(11, 0, 0)},
			existing:  booked,
			wantErr:   ErrHallAlreadyBooked,
		},
		{
			name:      "既存予約に完全に含まれる",
			candidate: Slot{HallID: "hall-a", Date: day, Start: At(8, 30, 0), End: At(9, 30, 0)},
			existing:  booked,
			wantErr:   ErrHallAlreadyBooked,
		},
		{
			name:      "同一の時間帯",
			candidate: Slot{HallID: "hall-a", Date: day, Start: At(8, 0, 0), End: At(10, 0, 0)},
			existing:  booked,
			wantErr:   ErrHallAlreadyBooked,
		},
		{
			name:      "開始と終了が同じ",
			candidate: Slot{HallID: "hall-a", Date: day, Start: At(10, 0, 0), End: At(10, 0, 0)},
			wantErr:   ErrInvalidWindow,
		},
		{
			name:      "開始が終了より後",
			candidate: Slot{HallID: "hall-a", Date: day, Start: At(11, 0, 0), End: At(10, 0, 0)},
			wantErr:   ErrInvalidWindow,
		},
		{
			name:      "時間帯の不正は重複より優先される",
			candidate: Slot{HallID: "hall-a", Date: day, Start: At(9, 30, 0), End: At(9, 0, 0)},
			existing:  booked,
			wantErr:   ErrInvalidWindow,
		},
		{
			name:      "時間帯の不正は過去日付より優先される",
			candidate: Slot{HallID: "hall-a", Date: mustDate(t, "2024-01-01"), Start: At(9, 0, 0), End: At(8, 0, 0)},
			wantErr:   ErrInvalidWindow,
		},
		{
			name:      "過去の日付",
			candidate: Slot{HallID: "hall-a", Date: mustDate(t, "2024-05-30"), Start: At(13, 0, 0), End: At(14, 0, 0)},
			wantErr:   ErrPastWindow,
		},
		{
			name:      "当日で終了時刻が現在時刻以前",
			candidate: Slot{HallID: "hall-a", Date: today, Start: At(10, 0, 0), End: At(12, 0, 0)},
			wantErr:   ErrPastWindow,
		},
		{
			name:      "当日で開始時刻が現在時刻ちょうど",
			candidate: Slot{HallID: "hall-a", Date: today, Start: At(12, 0, 0), End: At(13, 0, 0)},
			wantErr:   ErrPastWindow,
		},
		{
			name:      "当日で開始時刻が過ぎている",
			candidate: Slot{HallID: "hall-a", Date: today, Start: At(11, 0, 0), End: At(13, 0, 0)},
			wantErr:   ErrPastWindow,
		},
		{
			name:      "当日で開始・終了とも未来",
			candidate: Slot{HallID: "hall-a", Date: today, Start: At(12, 0, 1), End: At(13, 0, 0)},
		},
		{
			name:      "過去日付は重複より優先される",
			candidate: Slot{HallID: "hall-a", Date: mustDate(t, "2024-05-01"), Start: At(8, 0, 0), End: At(10, 0, 0)},
			existing: []Slot{
				{HallID: "hall-a", Date: mustDate(t, "2024-05-01"), Start: At(8, 0, 0), End: At(10, 0, 0)},
			},
			wantErr: ErrPastWindow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.candidate, tt.existing, now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSlot_Overlaps(t *testing.T) {
	a := Slot{Start: At(8, 0, 0), End: At(10, 0, 0)}

	tests := []struct {
		name string
		b    Slot
		want bool
	}{
		{"後ろに接する", Slot{Start: At(10, 0, 0), End: At(11, 0, 0)}, false},
		{"前に接する", Slot{Start: At(7, 0, 0), End: At(8, 0, 0)}, false},
		{"後半が重なる", Slot{Start: At(9, 59, 59), End: At(11, 0, 0)}, true},
		{"前半が重なる", Slot{Start: At(7, 0, 0), End: At(8, 0, 1)}, true},
		{"離れている", Slot{Start: At(12, 0, 0), End: At(13, 0, 0)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(a), "重なり判定は対称である")
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2024, Month: time.June, Day: 1}, d)
	assert.Equal(t, "2024-06-01", d.String())

	_, err = ParseDate("2024/06/01")
	assert.Error(t, err)
}

func TestDate_Before(t *testing.T) {
	assert.True(t, mustDate(t, "2023-12-31").Before(mustDate(t, "2024-01-01")))
	assert.True(t, mustDate(t, "2024-01-31").Before(mustDate(t, "2024-02-01")))
	assert.False(t, mustDate(t, "2024-02-01").Before(mustDate(t, "2024-02-01")))
	assert.False(t, mustDate(t, "2024-02-02").Before(mustDate(t, "2024-02-01")))
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"08:00", At(8, 0, 0), false},
		{"23:59:59", At(23, 59, 59), false},
		{"10:30:00", At(10, 30, 0), false},
		{"24:00", EndOfDay, false},
		{"24:00:00", EndOfDay, false},
		{"24:00:01", 0, true},
		{"24:30", 0, true},
		{"25:00", 0, true},
		{"8時", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.ValidEnd())
		})
	}
}

func TestTimeOfDay_Range(t *testing.T) {
	tests := []struct {
		name      string
		in        TimeOfDay
		wantStart bool
		wantEnd   bool
	}{
		{"00:00", At(0, 0, 0), true, false},
		{"00:00:01", At(0, 0, 1), true, true},
		{"23:59:59", At(23, 59, 59), true, true},
		{"24:00", EndOfDay, false, true},
		{"24:00:01", EndOfDay + 1, false, false},
		{"負の値", -1, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStart, tt.in.Valid())
			assert.Equal(t, tt.wantEnd, tt.in.ValidEnd())
		})
	}
}

func TestValidate_UntilEndOfDay(t *testing.T) {
	now := time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC)
	day := Date{Year: 2024, Month: time.June, Day: 1}
	evening := Slot{HallID: "main-hall", Date: day, Start: At(18, 0, 0), End: EndOfDay}

	assert.NoError(t, Validate(evening, nil, now))

	// 翌日 0 時からの予約とは接するだけで重ならない
	next := Slot{HallID: "main-hall", Date: Date{Year: 2024, Month: time.June, Day: 2}, Start: At(0, 0, 0), End: At(9, 0, 0)}
	assert.NoError(t, Validate(next, []Slot{evening}, now))

	late := Slot{HallID: "main-hall", Date: day, Start: At(23, 0, 0), End: At(23, 30, 0)}
	assert.ErrorIs(t, Validate(late, []Slot{evening}, now), ErrHallAlreadyBooked)

	// 当日でも 24:00 終了は過去にならない
	today := Slot{HallID: "main-hall", Date: DateOf(now), Start: At(13, 0, 0), End: EndOfDay}
	assert.NoError(t, Validate(today, nil, now))
}

func TestTimeOfDay_String(t *testing.T) {
	assert.Equal(t, "08:00", At(8, 0, 0).String())
	assert.Equal(t, "09:05:30", At(9, 5, 30).String())
	assert.Equal(t, "24:00", EndOfDay.String())
	assert.Equal(t, 90*time.Minute, At(1, 30, 0).Duration())
}

func TestDayKey(t *testing.T) {
	d := Date{Year: 2024, Month: time.June, Day: 1}
	assert.Equal(t, "booking:hall-a:2024-06-01", DayKey("hall-a", d))
	assert.NotEqual(t, DayKey("hall-a", d), DayKey("hall-b", d))
}
