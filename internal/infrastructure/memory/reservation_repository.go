package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/sanosuguru/go-hall-booking/internal/domain/reservation"
	"github.com/sanosuguru/go-hall-booking/internal/domain/slot"
	"github.com/sanosuguru/go-hall-booking/internal/domain/transaction"
)

// 排他制約違反に相当する。PostgreSQL 実装と同じく両方のエラーとして判定できる
var errOverlap = fmt.Errorf("%w: %w", slot.ErrHallAlreadyBooked, transaction.ErrConstraintViolation)

// ReservationRepository はインメモリの予約リポジトリ
type ReservationRepository struct {
	store *Store
}

var _ reservation.Repository = (*ReservationRepository)(nil)

func NewReservationRepository(store *Store) *ReservationRepository {
	return &ReservationRepository{store: store}
}

// Create は予約IDを採番し、作成をトランザクションに積む
func (r *ReservationRepository) Create(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	t, err := unwrapTx(tx)
	if err != nil {
		return err
	}
	if res.ID == "" {
		res.ID = newID()
	}
	return t.stage(stagedOp{kind: opCreate, res: clone(res)})
}

func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	res, ok := r.store.reservations[id]
	if !ok {
		return nil, reservation.ErrReservationNotFound
	}
	return clone(res), nil
}

// ListActiveForSlot はホール・日付の排他を取得してから有効な予約を返す
func (r *ReservationRepository) ListActiveForSlot(ctx context.Context, tx transaction.Tx, hallID string, date slot.Date) ([]*reservation.Reservation, error) {
	t, err := unwrapTx(tx)
	if err != nil {
		return nil, err
	}
	if err := t.lockSlot(ctx, hallID, date); err != nil {
		return nil, err
	}
	return r.List(ctx, reservation.Filter{
		Statuses: reservation.ActiveStatuses,
		HallID:   hallID,
		Date:     &date,
	})
}

func (r *ReservationRepository) List(ctx context.Context, filter reservation.Filter) ([]*reservation.Reservation, error) {
	r.store.mu.RLock()
	var out []*reservation.Reservation
	for _, res := range r.store.reservations {
		if matches(res, filter) {
			out = append(out, clone(res))
		}
	}
	r.store.mu.RUnlock()

	sortReservations(out)
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*reservation.Reservation{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	if out == nil {
		out = []*reservation.Reservation{}
	}
	return out, nil
}

// UpdateStatus は状態の更新をトランザクションに積む。
// 現在の状態が from でなければその時点で ErrStatusConflict を返し、Commit 時にも再検証する
func (r *ReservationRepository) UpdateStatus(ctx context.Context, tx transaction.Tx, res *reservation.Reservation, from reservation.Status) error {
	t, err := unwrapTx(tx)
	if err != nil {
		return err
	}
	current, err := r.GetByID(ctx, res.ID)
	if err != nil {
		return err
	}
	if current.Status != from {
		return reservation.ErrStatusConflict
	}
	return t.stage(stagedOp{kind: opUpdate, res: clone(res), from: from})
}

func (r *ReservationRepository) ListLapsedPending(ctx context.Context, now time.Time) ([]*reservation.Reservation, error) {
	today, cur := slot.DateOf(now), slot.TimeOfDayOf(now)
	r.store.mu.RLock()
	var out []*reservation.Reservation
	for _, res := range r.store.reservations {
		if !res.IsPending() {
			continue
		}
		if res.Date.Before(today) || (res.Date == today && res.Start <= cur) {
			out = append(out, clone(res))
		}
	}
	r.store.mu.RUnlock()
	sortReservations(out)
	return out, nil
}

func matches(res *reservation.Reservation, f reservation.Filter) bool {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, res.Status) {
		return false
	}
	if f.HallID != "" && res.HallID != f.HallID {
		return false
	}
	if f.Date != nil && res.Date != *f.Date {
		return false
	}
	if f.RequesterID != "" && res.RequesterID != f.RequesterID {
		return false
	}
	return true
}

// sortReservations は日付・開始時刻・ホールの順に並べる
func sortReservations(rs []*reservation.Reservation) {
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.HallID != b.HallID {
			return a.HallID < b.HallID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
