package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-hall-booking/internal/api/middleware"
	"github.com/sanosuguru/go-hall-booking/internal/domain/reservation"
)

// AdminHandler は管理者による審査のハンドラー
type AdminHandler struct {
	service ReservationServiceInterface
}

func NewAdminHandler(s ReservationServiceInterface) *AdminHandler {
	return &AdminHandler{service: s}
}

// ListPending godoc
// @Summary 審査待ちの申請一覧
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} ReservationResponse
// @Failure 403 {object} map[string]string
// @Router /admin/reservations [get]
func (h *AdminHandler) ListPending(c echo.Context) error {
	actor, _ := middleware.ActorFrom(c)
	limit, offset := pageParams(c)
	rs, err := h.service.ListPending(c.Request().Context(), actor, limit, offset)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toReservationResponses(rs))
}

// Confirm godoc
// @Summary 申請を確定
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "審査済み"
// @Router /admin/reservations/{id}/confirm [post]
func (h *AdminHandler) Confirm(c echo.Context) error {
	return h.decide(c, reservation.OutcomeConfirm)
}

// Reject godoc
// @Summary 申請を却下
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "審査済み"
// @Router /admin/reservations/{id}/reject [post]
func (h *AdminHandler) Reject(c echo.Context) error {
	return h.decide(c, reservation.OutcomeReject)
}

func (h *AdminHandler) decide(c echo.Context, outcome reservation.Outcome) error {
	actor, _ := middleware.ActorFrom(c)
	r, err := h.service.Decide(c.Request().Context(), c.Param("id"), outcome, actor)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}
