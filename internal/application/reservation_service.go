package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-hall-booking/internal/domain/hall"
	"github.com/sanosuguru/go-hall-booking/internal/domain/lock"
	"github.com/sanosuguru/go-hall-booking/internal/domain/reservation"
	"github.com/sanosuguru/go-hall-booking/internal/domain/slot"
	"github.com/sanosuguru/go-hall-booking/internal/domain/transaction"
	"github.com/sanosuguru/go-hall-booking/internal/notify"
	"github.com/sanosuguru/go-hall-booking/internal/pkg/clock"
	"github.com/sanosuguru/go-hall-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-hall-booking/internal/pkg/metrics"
	"github.com/sanosuguru/go-hall-booking/internal/pkg/telemetry"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// BookingCache は確定済み予約一覧のキャッシュ
type BookingCache interface {
	// GetConfirmed は一覧と現在の世代を返す
	GetConfirmed(ctx context.Context, hallID string, date slot.Date) (rs []*reservation.Reservation, gen int64, ok bool, err error)
	// SetConfirmed は gen の世代の一覧として保存する。その後 Invalidate された一覧は読まれない
	SetConfirmed(ctx context.Context, hallID string, date slot.Date, gen int64, rs []*reservation.Reservation, ttl time.Duration) error
	Invalidate(ctx context.Context, hallID string, date slot.Date) error
}

// LockOptions はホール・日付単位のロック取得設定
type LockOptions struct {
	TTL           time.Duration
	Retries       int
	RetryInterval time.Duration
}

// DefaultLockOptions は既定のロック取得設定
func DefaultLockOptions() LockOptions {
	return LockOptions{TTL: 10 * time.Second, Retries: 3, RetryInterval: 100 * time.Millisecond}
}

// Option は ReservationService の任意設定
type Option func(*ReservationService)

func WithNotifier(n notify.Notifier) Option {
	return func(s *ReservationService) { s.notifier = n }
}

func WithClock(c clock.Clock) Option {
	return func(s *ReservationService) { s.clock = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *ReservationService) { s.metrics = m }
}

func WithLockOptions(o LockOptions) Option {
	return func(s *ReservationService) { s.lockOpts = o }
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(s *ReservationService) { s.cacheTTL = ttl }
}

// WithNotifyTimeout は1回の通知を待つ上限を設定する
func WithNotifyTimeout(d time.Duration) Option {
	return func(s *ReservationService) { s.notifyTimeout = d }
}

// ReservationService は予約のライフサイクルを管理する
type ReservationService struct {
	txManager       transaction.Manager
	reservationRepo reservation.Repository
	hallRepo        hall.Repository
	lockManager     lock.Manager
	cache           BookingCache
	notifier        notify.Notifier
	clock           clock.Clock
	metrics         *metrics.Metrics
	lockOpts        LockOptions
	cacheTTL        time.Duration
	notifyTimeout   time.Duration
}

// NewReservationService は ReservationService を作成する。lockManager と cache は nil でもよい
func NewReservationService(
	txManager transaction.Manager,
	reservationRepo reservation.Repository,
	hallRepo hall.Repository,
	lockManager lock.Manager,
	cache BookingCache,
	opts ...Option,
) *ReservationService {
	s := &ReservationService{
		txManager:       txManager,
		reservationRepo: reservationRepo,
		hallRepo:        hallRepo,
		lockManager:     lockManager,
		cache:           cache,
		clock:           clock.New(time.Local),
		lockOpts:        DefaultLockOptions(),
		cacheTTL:        30 * time.Second,
		notifyTimeout:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitInput は予約申請の入力
type SubmitInput struct {
	HallID  string
	Date    slot.Date
	Start   slot.TimeOfDay
	End     slot.TimeOfDay
	Purpose string
	Actor   reservation.Actor
}

// Submit は予約を申請する。受け付けた予約は保留中として保存される
func (s *ReservationService) Submit(ctx context.Context, input SubmitInput) (res *reservation.Reservation, err error) {
	ctx, span := telemetry.StartSpan(ctx, "ReservationService.Submit")
	span.SetAttributes(telemetry.ReservationAttrs("", input.HallID, input.Date.String())...)
	defer func() {
		s.countSubmit(err)
		telemetry.RecordError(span, err)
		span.End()
	}()

	res = reservation.NewReservation(input.HallID, input.Date, input.Start, input.End, input.Actor.ID, input.Purpose, s.clock.Now())
	if err := res.Validate(); err != nil {
		return nil, err
	}
	// ロックを取る前に時間帯と過去日時だけを検査する
	if err := slot.Validate(res.Slot(), nil, res.CreatedAt); err != nil {
		return nil, err
	}
	if _, err := s.hallRepo.GetByID(ctx, input.HallID); err != nil {
		return nil, err
	}

	release, err := s.acquireDayLock(ctx, input.HallID, input.Date)
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	active, err := s.reservationRepo.ListActiveForSlot(ctx, tx, input.HallID, input.Date)
	if err != nil {
		return nil, fmt.Errorf("有効な予約の取得に失敗: %w", err)
	}

	now := s.clock.Now()
	res.CreatedAt, res.UpdatedAt = now, now
	if err := slot.Validate(res.Slot(), reservation.ActiveSlots(active), now); err != nil {
		return nil, err
	}

	if err := s.reservationRepo.Create(ctx, tx, res); err != nil {
		return nil, fmt.Errorf("予約作成に失敗: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	span.SetAttributes(attribute.String("reservation.id", res.ID))
	s.adjustActive(reservation.StatusPending, 1)
	logger.FromContext(ctx).Info("予約を受け付けました",
		zap.String("reservation_id", res.ID),
		zap.String("hall_id", res.HallID),
		zap.String("date", res.Date.String()),
		zap.String("window", res.Start.String()+"-"+res.End.String()),
	)
	s.publish(ctx, notify.NewEvent(notify.EventSubmitted, res, input.Actor.ID, now))
	return res, nil
}

// Decide は管理者が保留中の予約を確定または却下する
func (s *ReservationService) Decide(ctx context.Context, id string, outcome reservation.Outcome, actor reservation.Actor) (res *reservation.Reservation, err error) {
	ctx, span := telemetry.StartSpan(ctx, "ReservationService.Decide")
	span.SetAttributes(telemetry.ReservationAttrs(id, "", "")...)
	span.SetAttributes(attribute.String("outcome", string(outcome)))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if !actor.Admin {
		return nil, reservation.ErrUnauthorized
	}
	res, err = s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := res.Status
	now := s.clock.Now()
	if err := res.Decide(outcome, now); err != nil {
		return nil, err
	}
	if err := s.persistTransition(ctx, res, from); err != nil {
		return nil, err
	}

	event := notify.EventRejected
	if res.Status == reservation.StatusConfirmed {
		event = notify.EventConfirmed
		s.invalidate(ctx, res)
	}
	s.countTransition(string(outcome), from, res.Status)
	logger.FromContext(ctx).Info("予約を審査しました",
		zap.String("reservation_id", res.ID),
		zap.String("status", string(res.Status)),
		zap.String("admin_id", actor.ID),
	)
	s.publish(ctx, notify.NewEvent(event, res, actor.ID, now))
	return res, nil
}

// Cancel は申請者または管理者が保留中・確定済みの予約をキャンセルする
func (s *ReservationService) Cancel(ctx context.Context, id string, actor reservation.Actor) (res *reservation.Reservation, err error) {
	ctx, span := telemetry.StartSpan(ctx, "ReservationService.Cancel")
	span.SetAttributes(telemetry.ReservationAttrs(id, "", "")...)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	res, err = s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cancel(ctx, res, actor, "cancel"); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *ReservationService) cancel(ctx context.Context, res *reservation.Reservation, actor reservation.Actor, label string) error {
	from := res.Status
	now := s.clock.Now()
	if err := res.Cancel(actor, now); err != nil {
		return err
	}
	if err := s.persistTransition(ctx, res, from); err != nil {
		return err
	}
	if from == reservation.StatusConfirmed {
		s.invalidate(ctx, res)
	}
	s.countTransition(label, from, res.Status)
	logger.FromContext(ctx).Info("予約をキャンセルしました",
		zap.String("reservation_id", res.ID),
		zap.String("previous_status", string(from)),
		zap.String("cancelled_by", actor.ID),
	)
	s.publish(ctx, notify.NewEvent(notify.EventCancelled, res, actor.ID, now))
	return nil
}

// persistTransition は from からの状態遷移を保存する。他の操作に先を越された場合は ErrIllegalTransition
func (s *ReservationService) persistTransition(ctx context.Context, res *reservation.Reservation, from reservation.Status) error {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	if err := s.reservationRepo.UpdateStatus(ctx, tx, res, from); err != nil {
		return transitionError(err)
	}
	if err := tx.Commit(); err != nil {
		return transitionError(err)
	}
	return nil
}

func transitionError(err error) error {
	if errors.Is(err, reservation.ErrStatusConflict) {
		return fmt.Errorf("%w: %w", reservation.ErrIllegalTransition, err)
	}
	return fmt.Errorf("予約更新に失敗: %w", err)
}

// GetReservation は申請者本人または管理者に予約を返す
func (s *ReservationService) GetReservation(ctx context.Context, id string, actor reservation.Actor) (*reservation.Reservation, error) {
	res, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !res.IsVisibleTo(actor) {
		return nil, reservation.ErrUnauthorized
	}
	return res, nil
}

// ListFilter は確定済み予約一覧の絞り込み条件
type ListFilter struct {
	HallID string
	Date   *slot.Date
	Limit  int
	Offset int
}

// ListConfirmed は確定済みの予約を日付・開始時刻順に返す
func (s *ReservationService) ListConfirmed(ctx context.Context, f ListFilter) ([]*reservation.Reservation, error) {
	limit, offset := normalizePage(f.Limit, f.Offset)

	// ホール・日付を指定した一覧は1日分をまとめてキャッシュする
	if f.HallID != "" && f.Date != nil {
		day, err := s.confirmedForDay(ctx, f.HallID, *f.Date)
		if err != nil {
			return nil, err
		}
		return paginate(day, limit, offset), nil
	}

	return s.reservationRepo.List(ctx, reservation.Filter{
		Statuses: []reservation.Status{reservation.StatusConfirmed},
		HallID:   f.HallID,
		Date:     f.Date,
		Limit:    limit,
		Offset:   offset,
	})
}

func (s *ReservationService) confirmedForDay(ctx context.Context, hallID string, date slot.Date) ([]*reservation.Reservation, error) {
	fill := false
	var gen int64
	if s.cache != nil {
		rs, g, ok, err := s.cache.GetConfirmed(ctx, hallID, date)
		switch {
		case err != nil:
			logger.Warn("キャッシュ取得エラー", zap.Error(err))
		case ok:
			logger.Debug("キャッシュヒット", zap.String("hall_id", hallID), zap.String("date", date.String()))
			return rs, nil
		default:
			// 読み込み前の世代で保存する
			fill, gen = true, g
		}
	}

	rs, err := s.reservationRepo.List(ctx, reservation.Filter{
		Statuses: []reservation.Status{reservation.StatusConfirmed},
		HallID:   hallID,
		Date:     &date,
	})
	if err != nil {
		return nil, err
	}
	if fill {
		if err := s.cache.SetConfirmed(ctx, hallID, date, gen, rs, s.cacheTTL); err != nil {
			logger.Warn("キャッシュ保存エラー", zap.Error(err))
		}
	}
	return rs, nil
}

// ListOwnPending は actor 自身の保留中・確定済みの予約を返す
func (s *ReservationService) ListOwnPending(ctx context.Context, actor reservation.Actor) ([]*reservation.Reservation, error) {
	if actor.ID == "" {
		return nil, reservation.ErrRequesterRequired
	}
	return s.reservationRepo.List(ctx, reservation.Filter{
		Statuses:    reservation.ActiveStatuses,
		RequesterID: actor.ID,
	})
}

// ListPending は審査待ちの予約を返す（管理者のみ）
func (s *ReservationService) ListPending(ctx context.Context, actor reservation.Actor, limit, offset int) ([]*reservation.Reservation, error) {
	if !actor.Admin {
		return nil, reservation.ErrUnauthorized
	}
	limit, offset = normalizePage(limit, offset)
	return s.reservationRepo.List(ctx, reservation.Filter{
		Statuses: []reservation.Status{reservation.StatusPending},
		Limit:    limit,
		Offset:   offset,
	})
}

// CancelLapsedRequests は審査されないまま開始時刻を過ぎた申請をキャンセルし、件数を返す
func (s *ReservationService) CancelLapsedRequests(ctx context.Context) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "ReservationService.CancelLapsedRequests")
	defer span.End()

	lapsed, err := s.reservationRepo.ListLapsedPending(ctx, s.clock.Now())
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, fmt.Errorf("期限切れ申請の取得に失敗: %w", err)
	}

	var (
		cancelled int
		errs      []error
	)
	for _, res := range lapsed {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.cancel(ctx, res, reservation.SystemActor, "lapse"); err != nil {
			// 同時に審査・キャンセルされたものは対象外
			if errors.Is(err, reservation.ErrIllegalTransition) {
				continue
			}
			logger.Error("期限切れ申請のキャンセルに失敗",
				zap.String("reservation_id", res.ID),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		cancelled++
	}
	span.SetAttributes(attribute.Int("cancelled", cancelled))
	err = errors.Join(errs...)
	telemetry.RecordError(span, err)
	return cancelled, err
}

// acquireDayLock はホール・日付単位のロックを取得し、解放関数を返す
func (s *ReservationService) acquireDayLock(ctx context.Context, hallID string, date slot.Date) (func(), error) {
	if s.lockManager == nil {
		return func() {}, nil
	}
	key := slot.DayKey(hallID, date)
	start := time.Now()
	l, err := s.lockManager.AcquireLockWithRetry(ctx, key, s.lockOpts.TTL, s.lockOpts.Retries, s.lockOpts.RetryInterval)
	s.observeLock("acquire", start, err)
	if err != nil {
		if errors.Is(err, lock.ErrLockNotAcquired) {
			return nil, fmt.Errorf("ホール %s の %s は他の申請を処理中です: %w", hallID, date, err)
		}
		return nil, fmt.Errorf("ロック取得に失敗: %w", err)
	}
	return func() {
		// 呼び出し元のキャンセル後も確実に解放する
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		start := time.Now()
		err := l.Release(releaseCtx)
		s.observeLock("release", start, err)
		if err != nil {
			logger.Warn("ロック解放エラー", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func (s *ReservationService) invalidate(ctx context.Context, res *reservation.Reservation) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, res.HallID, res.Date); err != nil {
		logger.Warn("キャッシュ無効化エラー", zap.String("hall_id", res.HallID), zap.Error(err))
	}
}

// publish はコミット済みの変更を通知する。失敗はログに残すだけで呼び出し元には返さない
func (s *ReservationService) publish(ctx context.Context, e notify.Event) {
	if s.notifier == nil {
		return
	}
	// 呼び出し元の期限とは切り離し、独自の上限で打ち切る
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(ctx, e); err != nil {
		logger.Warn("通知に失敗しました",
			zap.String("type", string(e.Type)),
			zap.String("reservation_id", e.Reservation.ID),
			zap.Error(err),
		)
	}
}

func (s *ReservationService) countSubmit(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ReservationsTotal.WithLabelValues(submitResult(err)).Inc()
}

func submitResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultAccepted
	case errors.Is(err, slot.ErrInvalidWindow):
		return metrics.ResultInvalidWindow
	case errors.Is(err, slot.ErrPastWindow):
		return metrics.ResultPastWindow
	case errors.Is(err, slot.ErrHallAlreadyBooked):
		return metrics.ResultConflict
	case errors.Is(err, reservation.ErrMissingField):
		return metrics.ResultMissingField
	case errors.Is(err, lock.ErrLockNotAcquired):
		return metrics.ResultLockFailed
	default:
		return metrics.ResultError
	}
}

func (s *ReservationService) countTransition(label string, from, to reservation.Status) {
	if s.metrics == nil {
		return
	}
	s.metrics.TransitionsTotal.WithLabelValues(label).Inc()
	s.adjustActive(from, -1)
	s.adjustActive(to, 1)
}

// adjustActive は有効な状態の件数だけを増減する
func (s *ReservationService) adjustActive(status reservation.Status, delta float64) {
	if s.metrics == nil {
		return
	}
	if status != reservation.StatusPending && status != reservation.StatusConfirmed {
		return
	}
	s.metrics.ActiveReservations.WithLabelValues(string(status)).Add(delta)
}

func (s *ReservationService) observeLock(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	s.metrics.DistributedLockDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func paginate(rs []*reservation.Reservation, limit, offset int) []*reservation.Reservation {
	if offset >= len(rs) {
		return []*reservation.Reservation{}
	}
	rs = rs[offset:]
	if len(rs) > limit {
		rs = rs[:limit]
	}
	return rs
}
