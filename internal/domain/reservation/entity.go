package reservation

import (
	"time"

	"github.com/sanosuguru/go-hall-booking/internal/domain/slot"
)

// Status は予約の状態を表す
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// ActiveStatuses はホールの時間帯を占有する状態
var ActiveStatuses = []Status{StatusPending, StatusConfirmed}

// Outcome は管理者による審査結果
type Outcome string

const (
	OutcomeConfirm Outcome = "confirm"
	OutcomeReject  Outcome = "reject"
)

// Actor は操作を行う主体。認証は外部で行われ、ここでは識別子と管理者権限だけを持つ
type Actor struct {
	ID    string
	Admin bool
}

// SystemActor は定期処理など利用者以外が行う操作の主体
var SystemActor = Actor{ID: "system", Admin: true}

// Reservation は予約エンティティを表す
type Reservation struct {
	ID          string
	HallID      string
	Date        slot.Date
	Start       slot.TimeOfDay
	End         slot.TimeOfDay
	Purpose     string
	RequesterID string
	Status      Status
	DecidedAt   *time.Time
	CancelledAt *time.Time
	CancelledBy *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewReservation は保留中の予約を作成する
func NewReservation(hallID string, date slot.Date, start, end slot.TimeOfDay, requesterID, purpose string, now time.Time) *Reservation {
	return &Reservation{
		HallID:      hallID,
		Date:        date,
		Start:       start,
		End:         end,
		Purpose:     purpose,
		RequesterID: requesterID,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Slot は予約が占有するスロットを返す
func (r *Reservation) Slot() slot.Slot {
	return slot.Slot{HallID: r.HallID, Date: r.Date, Start: r.Start, End: r.End}
}

// IsActive はホールの時間帯を占有している状態かを返す
func (r *Reservation) IsActive() bool {
	return r.Status == StatusPending || r.Status == StatusConfirmed
}

// IsTerminal はこれ以上遷移しない状態かを返す
func (r *Reservation) IsTerminal() bool {
	return r.Status == StatusRejected || r.Status == StatusCancelled
}

// IsPending は予約が保留中かを返す
func (r *Reservation) IsPending() bool {
	return r.Status == StatusPending
}

// IsVisibleTo は actor が予約を参照・キャンセルできるかを返す
func (r *Reservation) IsVisibleTo(actor Actor) bool {
	return actor.Admin || (actor.ID != "" && actor.ID == r.RequesterID)
}

// Decide は保留中の予約を確定または却下する
func (r *Reservation) Decide(outcome Outcome, now time.Time) error {
	var next Status
	switch outcome {
	case OutcomeConfirm:
		next = StatusConfirmed
	case OutcomeReject:
		next = StatusRejected
	default:
		return ErrInvalidOutcome
	}
	if r.Status != StatusPending {
		return ErrIllegalTransition
	}
	r.Status = next
	r.DecidedAt = &now
	r.UpdatedAt = now
	return nil
}

// Cancel は保留中または確定済みの予約をキャンセルする
func (r *Reservation) Cancel(actor Actor, now time.Time) error {
	if !r.IsVisibleTo(actor) {
		return ErrUnauthorized
	}
	if !r.IsActive() {
		return ErrIllegalTransition
	}
	by := actor.ID
	r.Status = StatusCancelled
	r.CancelledAt = &now
	r.CancelledBy = &by
	r.UpdatedAt = now
	return nil
}

// Validate は予約の必須項目を検証する
func (r *Reservation) Validate() error {
	if r.HallID == "" {
		return ErrHallIDRequired
	}
	if r.Date.IsZero() {
		return ErrDateRequired
	}
	if !r.Start.Valid() || !r.End.ValidEnd() {
		return ErrWindowRequired
	}
	if r.RequesterID == "" {
		return ErrRequesterRequired
	}
	return nil
}

// ActiveSlots は有効な予約が占有するスロットだけを返す
func ActiveSlots(rs []*Reservation) []slot.Slot {
	slots := make([]slot.Slot, 0, len(rs))
	for _, r := range rs {
		if r.IsActive() {
			slots = append(slots, r.Slot())
		}
	}
	return slots
}
