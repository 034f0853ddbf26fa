package application

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-hall-booking/internal/config"
	"github.com/sanosuguru/go-hall-booking/internal/domain/reservation"
	"github.com/sanosuguru/go-hall-booking/internal/domain/slot"
	"github.com/sanosuguru/go-hall-booking/internal/infrastructure/postgres"
	redisinfra "github.com/sanosuguru/go-hall-booking/internal/infrastructure/redis"
)

// setupTestEnv は PostgreSQL と Redis を使ったサービスを作成する。どちらかに接続できない場合はスキップする
func setupTestEnv(t *testing.T) (*ReservationService, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("統合テストはshortモードではスキップ")
	}
	cfg := config.Load()

	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		t.Skipf("DB接続エラー: %v", err)
	}
	migrationsPath, err := filepath.Abs("../../migrations")
	require.NoError(t, err)
	require.NoError(t, postgres.RunMigrations(db.DB, migrationsPath))

	redisClient, err := redisinfra.NewClient(&redisinfra.Config{
		Host: cfg.Redis.Host, Port: cfg.Redis.Port,
	})
	if err != nil {
		db.Close()
		t.Skipf("Redis接続エラー: %v", err)
	}

	service := NewReservationService(
		postgres.NewTxManager(db),
		postgres.NewReservationRepository(db),
		postgres.NewHallRepository(db),
		redisinfra.NewLockManager(redisClient),
		redisinfra.NewBookingCache(redisClient),
	)

	cleanup := func() {
		db.Exec("DELETE FROM reservations")
		redisClient.Close()
		db.Close()
	}
	return service, cleanup
}

// futureDate はテスト同士が干渉しないよう、十分先の日付を返す
func futureDate(daysAhead int) slot.Date {
	return slot.DateOf(time.Now().AddDate(1, 0, daysAhead))
}

func TestConcurrentSubmit(t *testing.T) {
	service, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()
	date := futureDate(0)

	t.Run("同じ時間帯への10並行申請で1件のみ受付", func(t *testing.T) {
		const numGoroutines = 10
		var successCount int32
		var conflictCount int32
		var wg sync.WaitGroup

		for i := 0; i < numGoroutines; i++ {
			wg.Add(1)
			go func(userNum int) {
				defer wg.Done()
				_, err := service.Submit(ctx, SubmitInput{
					HallID: "main-hall", Date: date,
					Start: slot.At(9, 0, 0), End: slot.At(11, 0, 0),
					Actor: reservation.Actor{ID: fmt.Sprintf("user-%d", userNum)},
				})
				if err == nil {
					atomic.AddInt32(&successCount, 1)
				} else {
					// 重複またはロック取得失敗
					atomic.AddInt32(&conflictCount, 1)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(1), successCount, "受付は1件だけ")
		assert.Equal(t, int32(numGoroutines-1), conflictCount)

		active, err := service.ListConfirmed(ctx, ListFilter{HallID: "main-hall", Date: &date})
		require.NoError(t, err)
		assert.Empty(t, active, "審査前なので確定済みはない")
	})
}

func TestSubmitConfirmCancel(t *testing.T) {
	service, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()
	date := futureDate(1)
	requester := reservation.Actor{ID: "user-suzuki"}
	admin := reservation.Actor{ID: "admin-1", Admin: true}

	res, err := service.Submit(ctx, SubmitInput{
		HallID: "conference-room", Date: date,
		Start: slot.At(13, 0, 0), End: slot.At(15, 0, 0),
		Purpose: "定例会議", Actor: requester,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.ID)

	t.Run("確定後は一覧に表示される", func(t *testing.T) {
		confirmed, err := service.Decide(ctx, res.ID, reservation.OutcomeConfirm, admin)
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusConfirmed, confirmed.Status)

		list, err := service.ListConfirmed(ctx, ListFilter{HallID: "conference-room", Date: &date})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, res.ID, list[0].ID)
	})

	t.Run("キャンセル後は同じ時間帯を再申請できる", func(t *testing.T) {
		_, err := service.Cancel(ctx, res.ID, requester)
		require.NoError(t, err)

		list, err := service.ListConfirmed(ctx, ListFilter{HallID: "conference-room", Date: &date})
		require.NoError(t, err)
		assert.Empty(t, list)

		_, err = service.Submit(ctx, SubmitInput{
			HallID: "conference-room", Date: date,
			Start: slot.At(13, 0, 0), End: slot.At(15, 0, 0),
			Actor: reservation.Actor{ID: "user-sato"},
		})
		require.NoError(t, err)
	})
}
