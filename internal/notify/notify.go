// Package notify は予約の状態変化を外部へ通知する。
// 通知はコミット後に行い、失敗しても予約処理の結果は変わらない。
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sanosuguru/go-hall-booking/internal/domain/reservation"
	"github.com/sanosuguru/go-hall-booking/internal/pkg/metrics"
)

// EventType は通知の種類
type EventType string

const (
	EventSubmitted EventType = "submitted"
	EventConfirmed EventType = "confirmed"
	EventRejected  EventType = "rejected"
	EventCancelled EventType = "cancelled"
)

// Event は予約の状態変化を表す
type Event struct {
	Type        EventType
	Reservation *reservation.Reservation
	ActorID     string
	OccurredAt  time.Time
}

// NewEvent は reservation の現在の状態から通知を作成する
func NewEvent(t EventType, r *reservation.Reservation, actorID string, at time.Time) Event {
	return Event{Type: t, Reservation: r, ActorID: actorID, OccurredAt: at}
}

// payload は通知先に送るJSONの形式
type payload struct {
	Type          EventType `json:"type"`
	ReservationID string    `json:"reservation_id"`
	HallID        string    `json:"hall_id"`
	Date          string    `json:"date"`
	Start         string    `json:"start"`
	End           string    `json:"end"`
	Status        string    `json:"status"`
	RequesterID   string    `json:"requester_id"`
	ActorID       string    `json:"actor_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Encode はイベントをJSONにする
func (e Event) Encode() ([]byte, error) {
	if e.Reservation == nil {
		return nil, errors.New("通知する予約がありません")
	}
	r := e.Reservation
	return json.Marshal(payload{
		Type:          e.Type,
		ReservationID: r.ID,
		HallID:        r.HallID,
		Date:          r.Date.String(),
		Start:         r.Start.String(),
		End:           r.End.String(),
		Status:        string(r.Status),
		RequesterID:   r.RequesterID,
		ActorID:       e.ActorID,
		OccurredAt:    e.OccurredAt.UTC(),
	})
}

// Notifier は通知を送るインターフェース
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Sink は名前付きの通知先
type Sink interface {
	Notifier
	Name() string
}

// Multi は複数の通知先へ送る。1つの失敗で他の送信は止めない
type Multi struct {
	sinks   []Sink
	metrics *metrics.Metrics
}

var _ Notifier = (*Multi)(nil)

// NewMulti は通知先をまとめる。m が nil の場合はメトリクスを記録しない
func NewMulti(m *metrics.Metrics, sinks ...Sink) *Multi {
	return &Multi{sinks: sinks, metrics: m}
}

func (n *Multi) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range n.sinks {
		err := s.Notify(ctx, e)
		status := "success"
		if err != nil {
			status = "failed"
			errs = append(errs, err)
		}
		if n.metrics != nil {
			n.metrics.NotificationsTotal.WithLabelValues(s.Name(), status).Inc()
		}
	}
	return errors.Join(errs...)
}

// Nop は何もしない通知先
type Nop struct{}

func (Nop) Name() string { return "nop" }
func (Nop) Notify(ctx context.Context, e Event) error { return nil }
