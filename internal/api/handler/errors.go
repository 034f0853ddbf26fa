package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-hall-booking/internal/domain/hall"
	"github.com/sanosuguru/go-hall-booking/internal/domain/lock"
	"github.com/sanosuguru/go-hall-booking/internal/domain/reservation"
	"github.com/sanosuguru/go-hall-booking/internal/domain/slot"
	"github.com/sanosuguru/go-hall-booking/internal/domain/transaction"
)

// errorStatus はドメインエラーをHTTPステータスに対応付ける
func errorStatus(err error) int {
	switch {
	case errors.Is(err, reservation.ErrMissingField),
		errors.Is(err, reservation.ErrInvalidOutcome),
		errors.Is(err, slot.ErrInvalidWindow),
		errors.Is(err, slot.ErrPastWindow):
		return http.StatusBadRequest
	case errors.Is(err, reservation.ErrReservationNotFound),
		errors.Is(err, hall.ErrHallNotFound):
		return http.StatusNotFound
	case errors.Is(err, reservation.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, slot.ErrHallAlreadyBooked),
		errors.Is(err, reservation.ErrIllegalTransition),
		errors.Is(err, transaction.ErrConstraintViolation),
		errors.Is(err, lock.ErrLockNotAcquired):
		return http.StatusConflict
	case errors.Is(err, transaction.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// toHTTPError はドメインエラーを echo.HTTPError に変換する。5xx の詳細は利用者に返さない
func toHTTPError(err error) *echo.HTTPError {
	code := errorStatus(err)
	msg := err.Error()
	switch code {
	case http.StatusServiceUnavailable:
		msg = "ただいま予約を処理できません。しばらくしてから再度お試しください"
	case http.StatusInternalServerError:
		msg = "内部サーバーエラー"
	}
	return echo.NewHTTPError(code, msg).SetInternal(err)
}
