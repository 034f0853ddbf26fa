package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-hall-booking/internal/domain/hall"
)

type HallHandler struct {
	service HallServiceInterface
}

func NewHallHandler(s HallServiceInterface) *HallHandler {
	return &HallHandler{service: s}
}

type HallResponse struct {
	ID       string `json:"id" example:"main-hall"`
	Name     string `json:"name" example:"メインホール"`
	Capacity int    `json:"capacity" example:"300"`
}

func toHallResponse(h *hall.Hall) HallResponse {
	return HallResponse{ID: h.ID, Name: h.Name, Capacity: h.Capacity}
}

// List godoc
// @Summary ホール一覧
// @Tags halls
// @Produce json
// @Success 200 {array} HallResponse
// @Router /halls [get]
func (h *HallHandler) List(c echo.Context) error {
	halls, err := h.service.ListHalls(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	resp := make([]HallResponse, len(halls))
	for i, hl := range halls {
		resp[i] = toHallResponse(hl)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetByID godoc
// @Summary ホールを取得
// @Tags halls
// @Produce json
// @Param id path string true "ホールID"
// @Success 200 {object} HallResponse
// @Failure 404 {object} map[string]string
// @Router /halls/{id} [get]
func (h *HallHandler) GetByID(c echo.Context) error {
	hl, err := h.service.GetHall(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toHallResponse(hl))
}
