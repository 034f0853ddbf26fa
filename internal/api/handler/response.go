package handler

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-hall-booking/internal/domain/reservation"
)

// ReservationResponse は予約のレスポンス
type ReservationResponse struct {
	ID          string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	HallID      string     `json:"hall_id" example:"main-hall"`
	Date        string     `json:"date" example:"2025-06-01"`
	Start       string     `json:"start" example:"09:00"`
	End         string     `json:"end" example:"11:00"`
	Purpose     string     `json:"purpose,omitempty" example:"定例総会"`
	RequesterID string     `json:"requester_id" example:"user-123"`
	Status      string     `json:"status" example:"pending"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy *string    `json:"cancelled_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toReservationResponse(r *reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID: r.ID, HallID: r.HallID,
		Date: r.Date.String(), Start: r.Start.String(), End: r.End.String(),
		Purpose: r.Purpose, RequesterID: r.RequesterID, Status: string(r.Status),
		DecidedAt: r.DecidedAt, CancelledAt: r.CancelledAt, CancelledBy: r.CancelledBy,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func toReservationResponses(rs []*reservation.Reservation) []ReservationResponse {
	resp := make([]ReservationResponse, len(rs))
	for i, r := range rs {
		resp[i] = toReservationResponse(r)
	}
	return resp
}

// pageParams は limit / offset クエリを読む。不正な値は0として扱い、サービス側の既定値に任せる
func pageParams(c echo.Context) (int, int) {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	return limit, offset
}
