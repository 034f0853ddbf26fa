package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/sanosuguru/go-hall-booking/internal/domain/slot"
	"github.com/sanosuguru/go-hall-booking/internal/domain/transaction"
)

const (
	codeExclusionViolation pq.ErrorCode  = "23P01"
	classIntegrity         pq.ErrorClass = "23"
)

// classifyError はドライバーのエラーを永続化層のエラー種別に変換する
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == codeExclusionViolation:
			// 重複禁止制約はアプリケーション側の重複検査をすり抜けた場合の最後の砦
			return fmt.Errorf("%s: %w: %w", op, slot.ErrHallAlreadyBooked, transaction.ErrConstraintViolation)
		case pqErr.Code.Class() == classIntegrity:
			return fmt.Errorf("%s: %w: %w", op, transaction.ErrConstraintViolation, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, transaction.ErrStorageUnavailable, err)
}
