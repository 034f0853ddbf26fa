package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSink は通知内容をログに出力する
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Notify(ctx context.Context, e Event) error {
	if e.Reservation == nil {
		return nil
	}
	r := e.Reservation
	s.logger.Info("予約イベント",
		zap.String("type", string(e.Type)),
		zap.String("reservation_id", r.ID),
		zap.String("hall_id", r.HallID),
		zap.String("date", r.Date.String()),
		zap.String("start", r.Start.String()),
		zap.String("end", r.End.String()),
		zap.String("requester_id", r.RequesterID),
		zap.String("actor_id", e.ActorID),
	)
	return nil
}
