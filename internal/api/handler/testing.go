package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-hall-booking/internal/api"
	"github.com/sanosuguru/go-hall-booking/internal/api/middleware"
	"github.com/sanosuguru/go-hall-booking/internal/domain/reservation"
)

// NewTestEcho はテスト用のEchoインスタンスを作成する
func NewTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	return e
}

// WithActor は JWTAuth を通さずに操作主体を設定するテスト用ミドルウェア
func WithActor(actor reservation.Actor) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			middleware.SetActor(c, actor)
			return next(c)
		}
	}
}
