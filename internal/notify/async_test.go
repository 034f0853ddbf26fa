package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-hall-booking/internal/domain/reservation"
	"github.com/sanosuguru/go-hall-booking/internal/pkg/metrics"
)

// recordingSink は受け取った通知を記録する。release が閉じられるまで送信を止められる
type recordingSink struct {
	mu      sync.Mutex
	got     []Event
	release chan struct{}
}

func (s *recordingSink) Notify(ctx context.Context, e Event) error {
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, e)
	return nil
}

func (s *recordingSink) events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.got...)
}

// stuckSink は ctx が終わるまで戻らない
type stuckSink struct {
	errs chan error
}

func (s *stuckSink) Notify(ctx context.Context, e Event) error {
	<-ctx.Done()
	s.errs <- ctx.Err()
	return ctx.Err()
}

func TestAsync_NotifyDoesNotWaitForDelivery(t *testing.T) {
	sink := &recordingSink{release: make(chan struct{})}
	a := NewAsync(sink, 4, time.Minute, nil)

	start := time.Now()
	require.NoError(t, a.Notify(context.Background(), testEvent(EventSubmitted)))
	assert.Less(t, time.Since(start), time.Second)
	assert.Empty(t, sink.events())

	close(sink.release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Close(ctx))
	assert.Len(t, sink.events(), 1)
}

func TestAsync_QueueFullDropsEvent(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	sink := &recordingSink{release: make(chan struct{})}
	a := NewAsync(sink, 1, time.Minute, m)

	// 1件目は送信中で止まり、2件目がキューを埋める
	require.NoError(t, a.Notify(context.Background(), testEvent(EventSubmitted)))
	require.Eventually(t, func() bool { return len(a.queue) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, a.Notify(context.Background(), testEvent(EventConfirmed)))

	err := a.Notify(context.Background(), testEvent(EventCancelled))

	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("async", "dropped")))

	close(sink.release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Close(ctx))

	got := sink.events()
	require.Len(t, got, 2)
	assert.Equal(t, EventSubmitted, got[0].Type)
	assert.Equal(t, EventConfirmed, got[1].Type)
}

func TestAsync_DeliveryTimeout(t *testing.T) {
	sink := &stuckSink{errs: make(chan error, 1)}
	a := NewAsync(sink, 1, 20*time.Millisecond, nil)

	require.NoError(t, a.Notify(context.Background(), testEvent(EventSubmitted)))

	select {
	case err := <-sink.errs:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(5 * time.Second):
		t.Fatal("送信が打ち切られていません")
	}
	require.NoError(t, a.Close(context.Background()))
}

func TestAsync_CopiesReservation(t *testing.T) {
	sink := &recordingSink{release: make(chan struct{})}
	a := NewAsync(sink, 1, time.Minute, nil)

	e := testEvent(EventSubmitted)
	require.NoError(t, a.Notify(context.Background(), e))
	e.Reservation.Status = reservation.StatusCancelled

	close(sink.release)
	require.NoError(t, a.Close(context.Background()))
	got := sink.events()
	require.Len(t, got, 1)
	assert.Equal(t, reservation.StatusPending, got[0].Reservation.Status)
}

func TestAsync_CloseStopsAccepting(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	a := NewAsync(&recordingSink{}, 1, time.Second, m)

	require.NoError(t, a.Close(context.Background()))
	require.NoError(t, a.Close(context.Background()))

	assert.ErrorIs(t, a.Notify(context.Background(), testEvent(EventSubmitted)), ErrQueueFull)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("async", "dropped")))
}

func TestAsync_CloseHonoursContext(t *testing.T) {
	sink := &recordingSink{release: make(chan struct{})}
	defer close(sink.release)
	a := NewAsync(sink, 1, time.Minute, nil)
	require.NoError(t, a.Notify(context.Background(), testEvent(EventSubmitted)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, a.Close(ctx), context.DeadlineExceeded)
}
