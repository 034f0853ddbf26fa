// Package memory はプロセス内で完結する永続化層の実装。
// 単一インスタンスでの運用やテストで PostgreSQL の代わりに使う。
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/sanosuguru/go-hall-booking/internal/domain/reservation"
	"github.com/sanosuguru/go-hall-booking/internal/domain/slot"
	"github.com/sanosuguru/go-hall-booking/internal/domain/transaction"
)

var errInvalidTx = errors.New("インメモリストアのトランザクションではありません")

// Store は予約データを保持する
type Store struct {
	mu           sync.RWMutex
	reservations map[string]*reservation.Reservation

	slotMu    sync.Mutex
	slotLocks map[string]chan struct{}
}

func NewStore() *Store {
	return &Store{
		reservations: make(map[string]*reservation.Reservation),
		slotLocks:    make(map[string]chan struct{}),
	}
}

func (s *Store) slotLock(key string) chan struct{} {
	s.slotMu.Lock()
	defer s.slotMu.Unlock()
	ch, ok := s.slotLocks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		s.slotLocks[key] = ch
	}
	return ch
}

type opKind int

const (
	opCreate opKind = iota
	opUpdate
)

type stagedOp struct {
	kind opKind
	res  *reservation.Reservation
	from reservation.Status
}

// Tx は書き込みを溜めておき、Commit 時にまとめて反映する
type Tx struct {
	store *Store
	mu    sync.Mutex
	ops   []stagedOp
	held  []chan struct{}
	done  bool
}

// TxManager はインメモリストアのトランザクションマネージャー
type TxManager struct {
	store *Store
}

var _ transaction.Manager = (*TxManager)(nil)

func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin は新しいトランザクションを開始する
func (m *TxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{store: m.store}, nil
}

func unwrapTx(tx transaction.Tx) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t == nil {
		return nil, errInvalidTx
	}
	return t, nil
}

// lockSlot はホール・日付の排他をトランザクション終了まで保持する
func (t *Tx) lockSlot(ctx context.Context, hallID string, date slot.Date) error {
	ch := t.store.slotLock(hallID + ":" + date.String())
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	t.mu.Lock()
	t.held = append(t.held, ch)
	t.mu.Unlock()
	return nil
}

func (t *Tx) stage(op stagedOp) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return errTxDone
	}
	t.ops = append(t.ops, op)
	return nil
}

var errTxDone = errors.New("トランザクションは既に終了しています")

// Commit は溜めた書き込みを検証し、すべて成功する場合のみ反映する
func (t *Tx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return errTxDone
	}
	defer t.finish()

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	// 反映後の状態を作ってから検証する
	next := make(map[string]*reservation.Reservation, len(s.reservations)+len(t.ops))
	for id, r := range s.reservations {
		next[id] = r
	}
	for _, op := range t.ops {
		switch op.kind {
		case opCreate:
			if hasOverlap(next, op.res) {
				return errOverlap
			}
			next[op.res.ID] = op.res
		case opUpdate:
			cur, ok := next[op.res.ID]
			if !ok {
				return reservation.ErrReservationNotFound
			}
			if cur.Status != op.from {
				return reservation.ErrStatusConflict
			}
			next[op.res.ID] = op.res
		}
	}
	s.reservations = next
	return nil
}

// Rollback は溜めた書き込みを破棄する。終了済みの場合は何もしない
func (t *Tx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.finish()
	return nil
}

func (t *Tx) finish() {
	t.done = true
	t.ops = nil
	for _, ch := range t.held {
		<-ch
	}
	t.held = nil
}

func hasOverlap(rs map[string]*reservation.Reservation, candidate *reservation.Reservation) bool {
	if !candidate.IsActive() {
		return false
	}
	c := candidate.Slot()
	for _, r := range rs {
		if r.ID == candidate.ID || !r.IsActive() {
			continue
		}
		if s := r.Slot(); s.SameDay(c) && s.Overlaps(c) {
			return true
		}
	}
	return false
}

func newID() string {
	return uuid.NewString()
}

func clone(r *reservation.Reservation) *reservation.Reservation {
	c := *r
	if r.DecidedAt != nil {
		v := *r.DecidedAt
		c.DecidedAt = &v
	}
	if r.CancelledAt != nil {
		v := *r.CancelledAt
		c.CancelledAt = &v
	}
	if r.CancelledBy != nil {
		v := *r.CancelledBy
		c.CancelledBy = &v
	}
	return &c
}
