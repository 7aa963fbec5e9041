package repository

import (
	"context"
	"fmt"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.PaymentTransaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.PaymentTransaction, error)
	FindBySessionID(ctx context.Context, sessionID uuid.UUID) (*entity.PaymentTransaction, error)
	FindByIntentID(ctx context.Context, intentID string) (*entity.PaymentTransaction, error)
	SetIntent(ctx context.Context, id uuid.UUID, intentID string) error
	// UpdateStatusExpect advances the payment only from the expected prior
	// status, so a late webhook cannot regress a state the saga already moved.
	UpdateStatusExpect(ctx context.Context, id uuid.UUID, from, to entity.PaymentStatus) (bool, error)
	AddRefund(ctx context.Context, id uuid.UUID, amountCents int64, status entity.PaymentStatus) error
}

type paymentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentRepository(db database.PgxIface, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `
	id, checkout_session_id, gateway_intent_id, amount_cents, refunded_cents,
	currency, status, idempotency_key, created_at, updated_at
`

func (r *paymentRepository) Create(ctx context.Context, payment *entity.PaymentTransaction) error {
	query := `
		INSERT INTO payment_transactions (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(ctx, query,
		payment.ID,
		payment.CheckoutSessionID,
		payment.GatewayIntentID,
		payment.AmountCents,
		payment.RefundedCents,
		payment.Currency,
		payment.Status,
		payment.IdempotencyKey,
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create payment transaction",
			zap.Error(err),
			zap.String("session_id", payment.CheckoutSessionID.String()),
		)
		return fmt.Errorf("create payment transaction %s: %w", payment.ID.String(), err)
	}

	return nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.PaymentTransaction, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_transactions WHERE id = $1`

	payment, err := r.scanPayment(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by ID",
			zap.Error(err),
			zap.String("payment_id", id.String()),
		)
		return nil, fmt.Errorf("find payment by ID %s: %w", id.String(), err)
	}

	return payment, nil
}

func (r *paymentRepository) FindBySessionID(ctx context.Context, sessionID uuid.UUID) (*entity.PaymentTransaction, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payment_transactions
		WHERE checkout_session_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	payment, err := r.scanPayment(r.db.QueryRow(ctx, query, sessionID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by session ID",
			zap.Error(err),
			zap.String("session_id", sessionID.String()),
		)
		return nil, fmt.Errorf("find payment for session %s: %w", sessionID.String(), err)
	}

	return payment, nil
}

func (r *paymentRepository) FindByIntentID(ctx context.Context, intentID string) (*entity.PaymentTransaction, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_transactions WHERE gateway_intent_id = $1`

	payment, err := r.scanPayment(r.db.QueryRow(ctx, query, intentID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by intent ID",
			zap.Error(err),
			zap.String("intent_id", intentID),
		)
		return nil, fmt.Errorf("find payment by intent %s: %w", intentID, err)
	}

	return payment, nil
}

func (r *paymentRepository) SetIntent(ctx context.Context, id uuid.UUID, intentID string) error {
	query := `UPDATE payment_transactions SET gateway_intent_id = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, intentID)
	if err != nil {
		r.log.Error("Failed to set payment intent",
			zap.Error(err),
			zap.String("payment_id", id.String()),
		)
		return fmt.Errorf("set payment %s intent: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("payment %s: %w", id.String(), entity.ErrNotFound)
	}

	return nil
}

func (r *paymentRepository) UpdateStatusExpect(ctx context.Context, id uuid.UUID, from, to entity.PaymentStatus) (bool, error) {
	query := `UPDATE payment_transactions SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`

	result, err := r.db.Exec(ctx, query, id, from, to)
	if err != nil {
		r.log.Error("Failed to update payment status",
			zap.Error(err),
			zap.String("payment_id", id.String()),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return false, fmt.Errorf("update payment %s status to %s: %w", id.String(), string(to), err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *paymentRepository) AddRefund(ctx context.Context, id uuid.UUID, amountCents int64, status entity.PaymentStatus) error {
	query := `
		UPDATE payment_transactions
		SET refunded_cents = refunded_cents + $2, status = $3, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, amountCents, status)
	if err != nil {
		r.log.Error("Failed to add refund to payment",
			zap.Error(err),
			zap.String("payment_id", id.String()),
			zap.Int64("amount_cents", amountCents),
		)
		return fmt.Errorf("add refund to payment %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("payment %s: %w", id.String(), entity.ErrNotFound)
	}

	return nil
}

func (r *paymentRepository) scanPayment(row pgx.Row) (*entity.PaymentTransaction, error) {
	var payment entity.PaymentTransaction

	err := row.Scan(
		&payment.ID,
		&payment.CheckoutSessionID,
		&payment.GatewayIntentID,
		&payment.AmountCents,
		&payment.RefundedCents,
		&payment.Currency,
		&payment.Status,
		&payment.IdempotencyKey,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &payment, nil
}
