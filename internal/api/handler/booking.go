package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-hall-booking/internal/application"
	"github.com/sanosuguru/go-hall-booking/internal/domain/slot"
)

// BookingHandler は確定済み予約（空き状況の確認用）のハンドラー
type BookingHandler struct {
	service ReservationServiceInterface
}

func NewBookingHandler(s ReservationServiceInterface) *BookingHandler {
	return &BookingHandler{service: s}
}

// List godoc
// @Summary 確定済み予約一覧
// @Description ホール・日付で絞り込んだ確定済み予約を日付・開始時刻順に取得します
// @Tags bookings
// @Produce json
// @Param hall query string false "ホールID"
// @Param date query string false "日付 (YYYY-MM-DD)"
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} ReservationResponse
// @Failure 400 {object} map[string]string
// @Router /bookings [get]
func (h *BookingHandler) List(c echo.Context) error {
	f := application.ListFilter{HallID: c.QueryParam("hall")}
	if raw := c.QueryParam("date"); raw != "" {
		date, err := slot.ParseDate(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		f.Date = &date
	}
	f.Limit, f.Offset = pageParams(c)

	rs, err := h.service.ListConfirmed(c.Request().Context(), f)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toReservationResponses(rs))
}
