package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-hall-booking/internal/domain/reservation"
	"github.com/sanosuguru/go-hall-booking/internal/domain/slot"
	"github.com/sanosuguru/go-hall-booking/internal/domain/transaction"
)

const reservationColumns = `id, hall_id, TO_CHAR(date, 'YYYY-MM-DD') AS date,
	start_time::text AS start_time, end_time::text AS end_time,
	purpose, requester_id, status, decided_at, cancelled_at, cancelled_by, created_at, updated_at`

type reservationRow struct {
	ID          string     `db:"id"`
	HallID      string     `db:"hall_id"`
	Date        string     `db:"date"`
	StartTime   string     `db:"start_time"`
	EndTime     string     `db:"end_time"`
	Purpose     string     `db:"purpose"`
	RequesterID string     `db:"requester_id"`
	Status      string     `db:"status"`
	DecidedAt   *time.Time `db:"decided_at"`
	CancelledAt *time.Time `db:"cancelled_at"`
	CancelledBy *string    `db:"cancelled_by"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

func (r *reservationRow) toEntity() (*reservation.Reservation, error) {
	date, err := slot.ParseDate(r.Date)
	if err != nil {
		return nil, fmt.Errorf("予約 %s の日付が不正です: %w", r.ID, err)
	}
	start, err := slot.ParseTimeOfDay(r.StartTime)
	if err != nil {
		return nil, fmt.Errorf("予約 %s の開始時刻が不正です: %w", r.ID, err)
	}
	end, err := slot.ParseTimeOfDay(r.EndTime)
	if err != nil {
		return nil, fmt.Errorf("予約 %s の終了時刻が不正です: %w", r.ID, err)
	}
	return &reservation.Reservation{
		ID:          r.ID,
		HallID:      r.HallID,
		Date:        date,
		Start:       start,
		End:         end,
		Purpose:     r.Purpose,
		RequesterID: r.RequesterID,
		Status:      reservation.Status(r.Status),
		DecidedAt:   r.DecidedAt,
		CancelledAt: r.CancelledAt,
		CancelledBy: r.CancelledBy,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

func toEntities(rows []reservationRow) ([]*reservation.Reservation, error) {
	result := make([]*reservation.Reservation, len(rows))
	for i := range rows {
		res, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		result[i] = res
	}
	return result, nil
}

func statusStrings(statuses []reservation.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// ReservationRepository はPostgreSQLを使用した予約リポジトリ
type ReservationRepository struct {
	db *sqlx.DB
}

var _ reservation.Repository = (*ReservationRepository)(nil)

func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// Create は予約を作成し、採番されたIDを設定する
func (r *ReservationRepository) Create(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	sqlxTx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	query := `INSERT INTO reservations
		(hall_id, date, start_time, end_time, purpose, requester_id, status, created_at, updated_at)
		VALUES ($1, $2::date, $3::time, $4::time, $5, $6, $7, $8, $9)
		RETURNING id`
	if err := sqlxTx.QueryRowContext(ctx, query,
		res.HallID, res.Date.String(), res.Start.String(), res.End.String(),
		res.Purpose, res.RequesterID, string(res.Status), res.CreatedAt, res.UpdatedAt,
	).Scan(&res.ID); err != nil {
		return classifyError("予約作成に失敗", err)
	}
	return nil
}

// GetByID はIDから予約を取得する
func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, reservation.ErrReservationNotFound
	}
	var row reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, classifyError("予約取得に失敗", err)
	}
	return row.toEntity()
}

// ListActiveForSlot はホール・日付の有効な予約を行ロック付きで取得する。
// 同じホール・日付への申請はアドバイザリロックによりトランザクション終了まで直列化される
func (r *ReservationRepository) ListActiveForSlot(ctx context.Context, tx transaction.Tx, hallID string, date slot.Date) ([]*reservation.Reservation, error) {
	sqlxTx, err := UnwrapTx(tx)
	if err != nil {
		return nil, err
	}
	if _, err := sqlxTx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, slot.DayKey(hallID, date)); err != nil {
		return nil, classifyError("アドバイザリロック取得に失敗", err)
	}

	var rows []reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE hall_id = $1 AND date = $2::date AND status = ANY($3)
		ORDER BY start_time
		FOR UPDATE`
	if err := sqlxTx.SelectContext(ctx, &rows, query,
		hallID, date.String(), pq.Array(statusStrings(reservation.ActiveStatuses)),
	); err != nil {
		return nil, classifyError("有効な予約の取得に失敗", err)
	}
	return toEntities(rows)
}

// List は条件に一致する予約を日付・開始時刻順に取得する
func (r *ReservationRepository) List(ctx context.Context, filter reservation.Filter) ([]*reservation.Reservation, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if len(filter.Statuses) > 0 {
		add("status = ANY($%d)", pq.Array(statusStrings(filter.Statuses)))
	}
	if filter.HallID != "" {
		add("hall_id = $%d", filter.HallID)
	}
	if filter.Date != nil {
		add("date = $%d::date", filter.Date.String())
	}
	if filter.RequesterID != "" {
		add("requester_id = $%d", filter.RequesterID)
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY date, start_time, hall_id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var rows []reservationRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, classifyError("予約一覧取得に失敗", err)
	}
	return toEntities(rows)
}

// UpdateStatus は現在の状態が from の場合に限り状態を更新する
func (r *ReservationRepository) UpdateStatus(ctx context.Context, tx transaction.Tx, res *reservation.Reservation, from reservation.Status) error {
	sqlxTx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	query := `UPDATE reservations
		SET status = $1, decided_at = $2, cancelled_at = $3, cancelled_by = $4, updated_at = $5
		WHERE id = $6 AND status = $7`
	result, err := sqlxTx.ExecContext(ctx, query,
		string(res.Status), res.DecidedAt, res.CancelledAt, res.CancelledBy, res.UpdatedAt,
		res.ID, string(from),
	)
	if err != nil {
		return classifyError("予約更新に失敗", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return classifyError("予約更新に失敗", err)
	}
	if rows == 0 {
		return reservation.ErrStatusConflict
	}
	return nil
}

// ListLapsedPending は開始時刻を過ぎた保留中の予約を取得する。
// now の壁時計時刻で比較するため、呼び出し側は予約と同じタイムゾーンの時刻を渡すこと
func (r *ReservationRepository) ListLapsedPending(ctx context.Context, now time.Time) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE status = $1 AND (date + start_time) <= $2::timestamp
		ORDER BY date, start_time`
	if err := r.db.SelectContext(ctx, &rows, query,
		string(reservation.StatusPending), now.Format("2006-01-02 15:04:05"),
	); err != nil {
		return nil, classifyError("期限切れ申請の取得に失敗", err)
	}
	return toEntities(rows)
}
