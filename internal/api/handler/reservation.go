package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-hall-booking/internal/api/middleware"
	"github.com/sanosuguru/go-hall-booking/internal/application"
	"github.com/sanosuguru/go-hall-booking/internal/domain/slot"
)

type ReservationHandler struct {
	service ReservationServiceInterface
}

func NewReservationHandler(s ReservationServiceInterface) *ReservationHandler {
	return &ReservationHandler{service: s}
}

type SubmitReservationRequest struct {
	HallID  string `json:"hall_id" validate:"required" example:"main-hall"`
	Date    string `json:"date" validate:"required,calendar_date" example:"2025-06-01"`
	Start   string `json:"start" validate:"required,clock_time" example:"09:00"`
	End     string `json:"end" validate:"required,clock_time" example:"11:00"`
	Purpose string `json:"purpose" validate:"max=200" example:"定例総会"`
}

func (r SubmitReservationRequest) toInput() (application.SubmitInput, error) {
	date, err := slot.ParseDate(r.Date)
	if err != nil {
		return application.SubmitInput{}, err
	}
	start, err := slot.ParseTimeOfDay(r.Start)
	if err != nil {
		return application.SubmitInput{}, err
	}
	end, err := slot.ParseTimeOfDay(r.End)
	if err != nil {
		return application.SubmitInput{}, err
	}
	return application.SubmitInput{HallID: r.HallID, Date: date, Start: start, End: end, Purpose: r.Purpose}, nil
}

// Submit godoc
// @Summary 予約を申請
// @Description ホールの時間帯を申請します。受け付けた申請は管理者の審査待ちになります
// @Tags reservations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SubmitReservationRequest true "申請内容"
// @Success 201 {object} ReservationResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string "ホールが存在しない"
// @Failure 409 {object} map[string]string "時間帯が既に予約済み"
// @Router /reservations [post]
func (h *ReservationHandler) Submit(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "認証トークンが必要です")
	}
	var req SubmitReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	input, err := req.toInput()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	input.Actor = actor

	r, err := h.service.Submit(c.Request().Context(), input)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, toReservationResponse(r))
}

// GetByID godoc
// @Summary 予約を取得
// @Description 指定IDの予約を取得します（申請者本人または管理者のみ）
// @Tags reservations
// @Produce json
// @Security BearerAuth
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /reservations/{id} [get]
func (h *ReservationHandler) GetByID(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "認証トークンが必要です")
	}
	r, err := h.service.GetReservation(c.Request().Context(), c.Param("id"), actor)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// ListMine godoc
// @Summary 自分の予約一覧を取得
// @Description 審査待ち・確定済みの自分の予約を日付順に取得します
// @Tags reservations
// @Produce json
// @Security BearerAuth
// @Success 200 {array} ReservationResponse
// @Failure 401 {object} map[string]string
// @Router /reservations/mine [get]
func (h *ReservationHandler) ListMine(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "認証トークンが必要です")
	}
	rs, err := h.service.ListOwnPending(c.Request().Context(), actor)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toReservationResponses(rs))
}

// Cancel godoc
// @Summary 予約をキャンセル
// @Description 審査待ちまたは確定済みの予約をキャンセルし、時間帯を解放します
// @Tags reservations
// @Produce json
// @Security BearerAuth
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "既に却下・キャンセル済み"
// @Router /reservations/{id}/cancel [post]
func (h *ReservationHandler) Cancel(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "認証トークンが必要です")
	}
	r, err := h.service.Cancel(c.Request().Context(), c.Param("id"), actor)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}
