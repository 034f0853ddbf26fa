package redis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-hall-booking/internal/domain/reservation"
	"github.com/sanosuguru/go-hall-booking/internal/domain/slot"
)

func TestBookingCache(t *testing.T) {
	client := setupTestRedis(t)
	cache := NewBookingCache(client)
	ctx := context.Background()
	hallID := "hall-" + uuid.NewString()[:8]
	date := slot.Date{Year: 2030, Month: time.June, Day: 1}

	t.Run("キャッシュミス", func(t *testing.T) {
		rs, gen, ok, err := cache.GetConfirmed(ctx, hallID, date)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, rs)
		assert.Equal(t, int64(0), gen)
	})

	t.Run("保存した予約を取得できる", func(t *testing.T) {
		r := reservation.NewReservation(hallID, date, slot.At(8, 0, 0), slot.At(10, 0, 0), "user-1", "総会",
			time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC))
		r.ID = uuid.NewString()
		r.Status = reservation.StatusConfirmed
		require.NoError(t, cache.SetConfirmed(ctx, hallID, date, 0, []*reservation.Reservation{r}, 30*time.Second))

		rs, _, ok, err := cache.GetConfirmed(ctx, hallID, date)
		require.NoError(t, err)
		require.True(t, ok)
		require.Len(t, rs, 1)
		assert.Equal(t, r.ID, rs[0].ID)
		assert.Equal(t, r.Slot(), rs[0].Slot())
		assert.Equal(t, reservation.StatusConfirmed, rs[0].Status)
	})

	t.Run("空の一覧もキャッシュできる", func(t *testing.T) {
		other := slot.Date{Year: 2030, Month: time.June, Day: 2}
		require.NoError(t, cache.SetConfirmed(ctx, hallID, other, 0, nil, 30*time.Second))

		rs, _, ok, err := cache.GetConfirmed(ctx, hallID, other)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, rs)
	})

	t.Run("無効化後はキャッシュミス", func(t *testing.T) {
		require.NoError(t, cache.Invalidate(ctx, hallID, date))

		_, gen, ok, err := cache.GetConfirmed(ctx, hallID, date)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, int64(1), gen)
		assert.Equal(t, int64(0), client.Exists(ctx, cache.confirmedKey(hallID, date, 0)).Val())
	})
}

func TestBookingCache_FillAfterInvalidateIsIgnored(t *testing.T) {
	client := setupTestRedis(t)
	cache := NewBookingCache(client)
	ctx := context.Background()
	hallID := "hall-" + uuid.NewString()[:8]
	date := slot.Date{Year: 2030, Month: time.June, Day: 3}

	// 読み込み開始時の世代を取得する
	_, gen, ok, err := cache.GetConfirmed(ctx, hallID, date)
	require.NoError(t, err)
	require.False(t, ok)

	// 読み込み中に予約が確定し、キャッシュが無効化される
	require.NoError(t, cache.Invalidate(ctx, hallID, date))

	// 無効化前に読んだ古い一覧で埋めても次の読み取りには現れない
	stale := reservation.NewReservation(hallID, date, slot.At(8, 0, 0), slot.At(10, 0, 0), "user-1", "",
		time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC))
	stale.ID = uuid.NewString()
	require.NoError(t, cache.SetConfirmed(ctx, hallID, date, gen, []*reservation.Reservation{stale}, 30*time.Second))

	_, next, ok, err := cache.GetConfirmed(ctx, hallID, date)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, gen+1, next)

	require.NoError(t, cache.SetConfirmed(ctx, hallID, date, next, nil, 30*time.Second))
	rs, _, ok, err := cache.GetConfirmed(ctx, hallID, date)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, rs)
}

func TestBookingCache_TTL(t *testing.T) {
	client := setupTestRedis(t)
	cache := NewBookingCache(client)
	ctx := context.Background()
	hallID := "hall-" + uuid.NewString()[:8]
	date := slot.Date{Year: 2030, Month: time.July, Day: 1}

	require.NoError(t, cache.SetConfirmed(ctx, hallID, date, 0, nil, 100*time.Millisecond))
	time.Sleep(200 * time.Millisecond)

	_, _, ok, err := cache.GetConfirmed(ctx, hallID, date)
	require.NoError(t, err)
	assert.False(t, ok)
}
