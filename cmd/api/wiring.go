package main

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-hall-booking/internal/api/handler"
	"github.com/sanosuguru/go-hall-booking/internal/application"
	"github.com/sanosuguru/go-hall-booking/internal/config"
	"github.com/sanosuguru/go-hall-booking/internal/domain/hall"
	"github.com/sanosuguru/go-hall-booking/internal/domain/lock"
	"github.com/sanosuguru/go-hall-booking/internal/domain/reservation"
	"github.com/sanosuguru/go-hall-booking/internal/domain/transaction"
	"github.com/sanosuguru/go-hall-booking/internal/infrastructure/memory"
	"github.com/sanosuguru/go-hall-booking/internal/infrastructure/postgres"
	redisinfra "github.com/sanosuguru/go-hall-booking/internal/infrastructure/redis"
	"github.com/sanosuguru/go-hall-booking/internal/notify"
	"github.com/sanosuguru/go-hall-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-hall-booking/internal/pkg/metrics"
)

// storage は予約サービスが使う永続化層とその後始末をまとめる
type storage struct {
	kind         string
	txManager    transaction.Manager
	reservations reservation.Repository
	halls        hall.Repository
	locks        lock.Manager
	cache        application.BookingCache
	checks       map[string]handler.Checker
	closers      []func() error
}

func (s *storage) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logger.Warn("接続のクローズに失敗しました", zap.Error(err))
		}
	}
}

// openStorage は PostgreSQL と Redis に接続する。
// 開発環境で PostgreSQL に接続できない場合はインメモリ実装で起動する
func openStorage(cfg *config.Config) (*storage, error) {
	s := &storage{checks: make(map[string]handler.Checker)}

	db, err := postgres.NewConnection(&cfg.Database)
	switch {
	case err == nil:
		if cfg.Database.AutoMigrate {
			if err := postgres.RunMigrations(db.DB, cfg.Database.MigrationsPath); err != nil {
				db.Close()
				return nil, err
			}
		}
		s.kind = "postgres"
		s.txManager = postgres.NewTxManager(db)
		s.reservations = postgres.NewReservationRepository(db)
		s.halls = postgres.NewHallRepository(db)
		s.checks["database"] = func(ctx context.Context) error { return postgres.Ping(ctx, db) }
		s.closers = append(s.closers, db.Close)
	case cfg.App.IsProduction():
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	default:
		logger.Warn("データベースに接続できないためインメモリストレージで起動します", zap.Error(err))
		store := memory.NewStore()
		s.kind = "memory"
		s.txManager = memory.NewTxManager(store)
		s.reservations = memory.NewReservationRepository(store)
		s.halls = memory.NewHallRepository(memory.DefaultHalls()...)
	}

	if client := openRedis(cfg); client != nil {
		s.locks = redisinfra.NewLockManager(client)
		s.cache = redisinfra.NewBookingCache(client)
		s.checks["redis"] = func(ctx context.Context) error { return redisinfra.Ping(ctx, client) }
		s.closers = append(s.closers, client.Close)
	} else {
		// 単一プロセスではプロセス内ロックで同じ日の書き込みを直列化する
		s.locks = memory.NewLockManager()
	}
	return s, nil
}

func openRedis(cfg *config.Config) *goredis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	client, err := redisinfra.NewClient(&redisinfra.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Warn("Redisに接続できないためプロセス内ロックで起動します", zap.Error(err))
		return nil
	}
	return client
}

// buildNotifier は設定に応じた通知先を作成し、非同期の送信キューで包む。
// 返すクローズ関数はキューに残った通知を送りきってから接続を閉じる
func buildNotifier(cfg config.NotifierConfig, m *metrics.Metrics) (notify.Notifier, func()) {
	sink, closeSink := buildSink(cfg, m)
	if _, ok := sink.(notify.Nop); ok {
		return sink, closeSink
	}
	async := notify.NewAsync(sink, cfg.QueueSize, cfg.Timeout, m)
	return async, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout+time.Second)
		defer cancel()
		if err := async.Close(ctx); err != nil {
			logger.Warn("未送信の通知を破棄しました", zap.Error(err))
		}
		closeSink()
	}
}

// buildSink は設定に応じた送信先を作成する。接続できない送信先はログ出力に切り替える
func buildSink(cfg config.NotifierConfig, m *metrics.Metrics) (notify.Notifier, func()) {
	logSink := notify.NewLogSink(logger.Named("notify"))

	switch cfg.Kind {
	case "rabbitmq":
		sink, err := notify.NewRabbitMQSink(cfg.RabbitMQURL, cfg.RabbitMQQueue)
		if err != nil {
			logger.Warn("RabbitMQに接続できません", zap.Error(err))
			break
		}
		return notify.NewMulti(m, sink, logSink), func() {
			if err := sink.Close(); err != nil {
				logger.Warn("RabbitMQ接続のクローズに失敗しました", zap.Error(err))
			}
		}
	case "kafka":
		sink, err := notify.NewKafkaSink(notify.KafkaConfig{
			Brokers:         cfg.KafkaBrokers,
			Topic:           cfg.KafkaTopic,
			ClientID:        cfg.KafkaClientID,
			DeliveryTimeout: cfg.Timeout,
		})
		if err != nil {
			logger.Warn("Kafkaクライアントを作成できません", zap.Error(err))
			break
		}
		return notify.NewMulti(m, sink, logSink), sink.Close
	case "none":
		return notify.Nop{}, func() {}
	}
	return notify.NewMulti(m, logSink), func() {}
}
