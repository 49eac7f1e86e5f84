package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eventTicketing/internal/models"
	"eventTicketing/internal/storage"
)

const paymentColumns = `id, registration_id, session_id, payment_intent_id, amount_total, currency,
	status, refunded_amount, created_at, updated_at`

func scanPayment(row rowScanner) (*models.Payment, error) {
	var (
		p      models.Payment
		status string
	)

	err := row.Scan(
		&p.ID,
		&p.RegistrationID,
		&p.SessionID,
		&p.PaymentIntentID,
		&p.AmountTotal,
		&p.Currency,
		&status,
		&p.RefundedAmount,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = models.PaymentStatus(status)

	return &p, nil
}

func (s *Storage) GetPaymentByRegistration(ctx context.Context, registrationID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE registration_id = $1`

	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, registrationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return p, nil
}

// ApplyRefund adds amount to the refunded accumulator and moves the status
// forward in a single statement, so concurrent refunds cannot push the
// accumulator past the payment total.
func (s *Storage) ApplyRefund(ctx context.Context, paymentID string, amount int64) (*models.Payment, error) {
	query := `
		UPDATE payments
		SET refunded_amount = refunded_amount + $2,
			status = CASE WHEN refunded_amount + $2 >= amount_total THEN $3 ELSE $4 END,
			updated_at = NOW()
		WHERE id = $1
		AND status IN ($5, $4)
		AND refunded_amount + $2 <= amount_total
		RETURNING ` + paymentColumns

	p, err := scanPayment(s.DB.QueryRowContext(ctx, query,
		paymentID, amount,
		models.PaymentRefunded, models.PaymentPartiallyRefunded, models.PaymentSucceeded,
	))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to apply refund: %w", err)
	}

	current, err := scanPayment(s.DB.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, paymentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if !current.Status.Refundable() {
		return nil, storage.ErrPaymentNotRefundable
	}

	return nil, storage.ErrRefundExceedsPayment
}
