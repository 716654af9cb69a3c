package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-course/app/entity"
)

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Record inserts the ledger row. It returns false without error when the
// payment id is already recorded.
func (r *PaymentRepository) Record(ctx context.Context, payment *entity.Payment) (bool, error) {
	query := `
		INSERT INTO payments (payment_id, user_id, amount, status, applied_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		payment.PaymentID,
		payment.UserID,
		payment.Amount,
		payment.Status,
		payment.AppliedAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *PaymentRepository) FindByPaymentID(ctx context.Context, paymentID string) (*entity.Payment, error) {
	query := `
		SELECT payment_id, user_id, amount, status, applied_at
		FROM payments WHERE payment_id = ?
	`
	payment := &entity.Payment{}
	err := r.db.QueryRowContext(ctx, query, paymentID).Scan(
		&payment.PaymentID,
		&payment.UserID,
		&payment.Amount,
		&payment.Status,
		&payment.AppliedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return payment, nil
}
