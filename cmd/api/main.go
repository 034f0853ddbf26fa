package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-hall-booking/internal/api/middleware"
	"github.com/sanosuguru/go-hall-booking/internal/api/router"
	"github.com/sanosuguru/go-hall-booking/internal/application"
	"github.com/sanosuguru/go-hall-booking/internal/config"
	"github.com/sanosuguru/go-hall-booking/internal/pkg/clock"
	"github.com/sanosuguru/go-hall-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-hall-booking/internal/pkg/metrics"
	"github.com/sanosuguru/go-hall-booking/internal/pkg/telemetry"
	"github.com/sanosuguru/go-hall-booking/internal/worker"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logger.Warn(".env を読み込めませんでした", zap.Error(err))
	}
	cfg := config.Load()

	logger.Set(logger.NewLogger(cfg.App.Env))
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.App.Env,
		CollectorAddr:  cfg.Telemetry.CollectorAddr,
	}); err != nil {
		logger.Fatal("トレーシングの初期化に失敗しました", zap.Error(err))
	}

	loc, err := cfg.Booking.Location()
	if err != nil {
		logger.Fatal("タイムゾーンが不正です", zap.String("timezone", cfg.Booking.Timezone), zap.Error(err))
	}

	m := metrics.New()

	store, err := openStorage(cfg)
	if err != nil {
		logger.Fatal("ストレージの初期化に失敗しました", zap.Error(err))
	}
	defer store.close()

	notifier, closeNotifier := buildNotifier(cfg.Notifier, m)
	defer closeNotifier()

	reservationService := application.NewReservationService(
		store.txManager, store.reservations, store.halls, store.locks, store.cache,
		application.WithClock(clock.New(loc)),
		application.WithMetrics(m),
		application.WithNotifier(notifier),
		application.WithLockOptions(application.LockOptions{
			TTL:           cfg.Booking.LockTTL,
			Retries:       cfg.Booking.LockRetries,
			RetryInterval: cfg.Booking.LockRetryInterval,
		}),
		application.WithCacheTTL(cfg.Booking.CacheTTL),
		application.WithNotifyTimeout(cfg.Notifier.Timeout),
	)
	hallService := application.NewHallService(store.halls)

	e := router.New(reservationService, hallService, router.Config{
		JWTSecret:    cfg.Auth.JWTSecret,
		AdminRole:    cfg.Auth.AdminRole,
		Metrics:      m,
		MetricsAuth:  middleware.MetricsCredentials{User: cfg.Auth.MetricsUser, Password: cfg.Auth.MetricsPassword},
		HealthChecks: store.checks,
	})
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	sweeper := worker.NewLapsedRequestSweeper(reservationService, cfg.Booking.SweepInterval)
	go sweeper.Start(ctx)

	go func() {
		logger.Info("サーバーを起動します", zap.String("port", cfg.Server.Port), zap.String("storage", store.kind))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("サーバーをシャットダウンしています...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("サーバーシャットダウンエラー", zap.Error(err))
	}
	sweeper.Stop()

	traceCtx, traceCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer traceCancel()
	if err := telemetry.Shutdown(traceCtx); err != nil {
		logger.Warn("トレースの送信に失敗しました", zap.Error(err))
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}
