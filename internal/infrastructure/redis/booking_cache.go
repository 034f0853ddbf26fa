package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-hall-booking/internal/domain/reservation"
	"github.com/sanosuguru/go-hall-booking/internal/domain/slot"
)

// BookingCache はホール・日付ごとの確定済み予約一覧をキャッシュする。
// 一覧のキーには世代番号を含め、Invalidate は世代を進める。
// 読み込み中に無効化された一覧は古い世代のキーに書かれ、以後読まれない
type BookingCache struct {
	client *redis.Client
}

// 世代キーは一覧の TTL より十分長く残す
const generationTTL = 24 * time.Hour

// NewBookingCache は新しいBookingCacheインスタンスを作成する
func NewBookingCache(client *redis.Client) *BookingCache {
	return &BookingCache{client: client}
}

// GetConfirmed はキャッシュ済みの確定済み予約と現在の世代を返す。
// キャッシュミスの場合 ok は false で、返した世代を SetConfirmed に渡す
func (c *BookingCache) GetConfirmed(ctx context.Context, hallID string, date slot.Date) ([]*reservation.Reservation, int64, bool, error) {
	gen, err := c.client.Get(ctx, c.generationKey(hallID, date)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, fmt.Errorf("キャッシュ世代の取得に失敗: %w", err)
	}

	raw, err := c.client.Get(ctx, c.confirmedKey(hallID, date, gen)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, gen, false, nil
		}
		return nil, gen, false, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	var rs []*reservation.Reservation
	if err := json.Unmarshal(raw, &rs); err != nil {
		return nil, gen, false, fmt.Errorf("キャッシュの復元に失敗: %w", err)
	}
	return rs, gen, true, nil
}

// SetConfirmed は gen の世代として確定済み予約をキャッシュに保存する
func (c *BookingCache) SetConfirmed(ctx context.Context, hallID string, date slot.Date, gen int64, rs []*reservation.Reservation, ttl time.Duration) error {
	if rs == nil {
		rs = []*reservation.Reservation{}
	}
	raw, err := json.Marshal(rs)
	if err != nil {
		return fmt.Errorf("キャッシュのシリアライズに失敗: %w", err)
	}
	if err := c.client.Set(ctx, c.confirmedKey(hallID, date, gen), raw, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate はホール・日付の世代を進め、現在の一覧を捨てる
func (c *BookingCache) Invalidate(ctx context.Context, hallID string, date slot.Date) error {
	key := c.generationKey(hallID, date)
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, generationTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	// 旧世代の一覧は読まれないが、TTL を待たずに消しておく
	if err := c.client.Del(ctx, c.confirmedKey(hallID, date, incr.Val()-1)).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func (c *BookingCache) generationKey(hallID string, date slot.Date) string {
	return fmt.Sprintf("bookings:generation:%s:%s", hallID, date)
}

func (c *BookingCache) confirmedKey(hallID string, date slot.Date, gen int64) string {
	return fmt.Sprintf("bookings:confirmed:%s:%s:%d", hallID, date, gen)
}
