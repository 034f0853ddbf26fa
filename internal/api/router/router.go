// Package router は HTTP ルーティングを組み立てる
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanosuguru/go-hall-booking/internal/api"
	"github.com/sanosuguru/go-hall-booking/internal/api/handler"
	"github.com/sanosuguru/go-hall-booking/internal/api/middleware"
	"github.com/sanosuguru/go-hall-booking/internal/pkg/metrics"
)

// Config はルーターの設定
type Config struct {
	JWTSecret string
	AdminRole string

	// Metrics が nil の場合はHTTPメトリクスを収集しない
	Metrics *metrics.Metrics
	// Gatherer が nil の場合はデフォルトレジストリを公開する
	Gatherer prometheus.Gatherer
	// MetricsAuth が未設定の場合 /metrics は認証なしで公開する
	MetricsAuth middleware.MetricsCredentials

	HealthChecks map[string]handler.Checker
}

// New はミドルウェアとルートを設定した Echo を返す
func New(reservations handler.ReservationServiceInterface, halls handler.HallServiceInterface, cfg Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	middleware.SetupMiddleware(e, cfg.Metrics)

	reservationHandler := handler.NewReservationHandler(reservations)
	adminHandler := handler.NewAdminHandler(reservations)
	bookingHandler := handler.NewBookingHandler(reservations)
	hallHandler := handler.NewHallHandler(halls)
	healthHandler := handler.NewHealthHandler(cfg.HealthChecks)

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	e.GET("/health", healthHandler.Check)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})),
		middleware.MetricsAuth(cfg.MetricsAuth))

	auth := middleware.JWTAuth(cfg.JWTSecret, cfg.AdminRole)

	v1 := e.Group("/api/v1")
	v1.GET("/halls", hallHandler.List)
	v1.GET("/halls/:id", hallHandler.GetByID)
	v1.GET("/bookings", bookingHandler.List)

	v1.POST("/reservations", reservationHandler.Submit, auth)
	v1.GET("/reservations/mine", reservationHandler.ListMine, auth)
	v1.GET("/reservations/:id", reservationHandler.GetByID, auth)
	v1.POST("/reservations/:id/cancel", reservationHandler.Cancel, auth)

	admin := v1.Group("/admin", auth, middleware.RequireAdmin())
	admin.GET("/reservations", adminHandler.ListPending)
	admin.POST("/reservations/:id/confirm", adminHandler.Confirm)
	admin.POST("/reservations/:id/reject", adminHandler.Reject)

	return e
}
