package handler

import (
	"context"

	"github.com/sanosuguru/go-hall-booking/internal/application"
	"github.com/sanosuguru/go-hall-booking/internal/domain/hall"
	"github.com/sanosuguru/go-hall-booking/internal/domain/reservation"
)

// ReservationServiceInterface は予約サービスのインターフェース
type ReservationServiceInterface interface {
	Submit(ctx context.Context, input application.SubmitInput) (*reservation.Reservation, error)
	Decide(ctx context.Context, id string, outcome reservation.Outcome, actor reservation.Actor) (*reservation.Reservation, error)
	Cancel(ctx context.Context, id string, actor reservation.Actor) (*reservation.Reservation, error)
	GetReservation(ctx context.Context, id string, actor reservation.Actor) (*reservation.Reservation, error)
	ListConfirmed(ctx context.Context, f application.ListFilter) ([]*reservation.Reservation, error)
	ListOwnPending(ctx context.Context, actor reservation.Actor) ([]*reservation.Reservation, error)
	ListPending(ctx context.Context, actor reservation.Actor, limit, offset int) ([]*reservation.Reservation, error)
}

// HallServiceInterface はホールサービスのインターフェース
type HallServiceInterface interface {
	ListHalls(ctx context.Context) ([]*hall.Hall, error)
	GetHall(ctx context.Context, id string) (*hall.Hall, error)
}
