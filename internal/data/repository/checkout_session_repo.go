package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type CheckoutSessionRepository interface {
	Create(ctx context.Context, session *entity.CheckoutSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.CheckoutSession, error)
	// FindActiveByCartID returns the cart's non-terminal session, if any.
	FindActiveByCartID(ctx context.Context, cartID uuid.UUID) (*entity.CheckoutSession, error)
	Update(ctx context.Context, session *entity.CheckoutSession) error
	// UpdateStatusExpect advances status only from the expected prior status.
	UpdateStatusExpect(ctx context.Context, id uuid.UUID, from, to entity.CheckoutStatus) (bool, error)
	FindExpiredActive(ctx context.Context, now time.Time) ([]*entity.CheckoutSession, error)
}

type checkoutSessionRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewCheckoutSessionRepository(db database.PgxIface, log *zap.Logger) CheckoutSessionRepository {
	return &checkoutSessionRepository{
		db:  db,
		log: log.With(zap.String("repository", "checkout_session")),
	}
}

const checkoutSessionColumns = `
	id, cart_id, user_id, status, price_snapshot, total_cents, currency,
	travelers, contact_email, contact_phone, price_change_acks, payment_id,
	expires_at, created_at, updated_at
`

func (r *checkoutSessionRepository) Create(ctx context.Context, session *entity.CheckoutSession) error {
	snapshotJSON, err := json.Marshal(session.PriceSnapshot)
	if err != nil {
		return fmt.Errorf("marshal price snapshot: %w", err)
	}
	travelersJSON, err := json.Marshal(session.Travelers)
	if err != nil {
		return fmt.Errorf("marshal travelers: %w", err)
	}

	query := `
		INSERT INTO checkout_sessions (` + checkoutSessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = r.db.Exec(ctx, query,
		session.ID,
		session.CartID,
		session.UserID,
		session.Status,
		snapshotJSON,
		session.TotalCents,
		session.Currency,
		travelersJSON,
		session.ContactEmail,
		session.ContactPhone,
		session.PriceChangeAcks,
		session.PaymentID,
		session.ExpiresAt,
		session.CreatedAt,
		session.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create checkout session",
			zap.Error(err),
			zap.String("cart_id", session.CartID.String()),
		)
		return fmt.Errorf("create checkout session %s: %w", session.ID.String(), err)
	}

	return nil
}

func (r *checkoutSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.CheckoutSession, error) {
	query := `SELECT ` + checkoutSessionColumns + ` FROM checkout_sessions WHERE id = $1`

	session, err := r.scanSession(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find checkout session by ID",
			zap.Error(err),
			zap.String("session_id", id.String()),
		)
		return nil, fmt.Errorf("find checkout session by ID %s: %w", id.String(), err)
	}

	return session, nil
}

func (r *checkoutSessionRepository) FindActiveByCartID(ctx context.Context, cartID uuid.UUID) (*entity.CheckoutSession, error) {
	query := `
		SELECT ` + checkoutSessionColumns + `
		FROM checkout_sessions
		WHERE cart_id = $1 AND status NOT IN ('completed', 'failed', 'expired')
		ORDER BY created_at DESC
		LIMIT 1
	`

	session, err := r.scanSession(r.db.QueryRow(ctx, query, cartID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find active checkout session",
			zap.Error(err),
			zap.String("cart_id", cartID.String()),
		)
		return nil, fmt.Errorf("find active checkout session for cart %s: %w", cartID.String(), err)
	}

	return session, nil
}

func (r *checkoutSessionRepository) Update(ctx context.Context, session *entity.CheckoutSession) error {
	snapshotJSON, err := json.Marshal(session.PriceSnapshot)
	if err != nil {
		return fmt.Errorf("marshal price snapshot: %w", err)
	}
	travelersJSON, err := json.Marshal(session.Travelers)
	if err != nil {
		return fmt.Errorf("marshal travelers: %w", err)
	}

	query := `
		UPDATE checkout_sessions
		SET status = $2, price_snapshot = $3, total_cents = $4, travelers = $5,
		    contact_email = $6, contact_phone = $7, price_change_acks = $8,
		    payment_id = $9, expires_at = $10, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query,
		session.ID,
		session.Status,
		snapshotJSON,
		session.TotalCents,
		travelersJSON,
		session.ContactEmail,
		session.ContactPhone,
		session.PriceChangeAcks,
		session.PaymentID,
		session.ExpiresAt,
	)

	if err != nil {
		r.log.Error("Failed to update checkout session",
			zap.Error(err),
			zap.String("session_id", session.ID.String()),
		)
		return fmt.Errorf("update checkout session %s: %w", session.ID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("checkout session %s: %w", session.ID.String(), entity.ErrNotFound)
	}

	return nil
}

func (r *checkoutSessionRepository) UpdateStatusExpect(ctx context.Context, id uuid.UUID, from, to entity.CheckoutStatus) (bool, error) {
	query := `UPDATE checkout_sessions SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`

	result, err := r.db.Exec(ctx, query, id, from, to)
	if err != nil {
		r.log.Error("Failed to update checkout session status",
			zap.Error(err),
			zap.String("session_id", id.String()),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return false, fmt.Errorf("update checkout session %s status to %s: %w", id.String(), string(to), err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *checkoutSessionRepository) FindExpiredActive(ctx context.Context, now time.Time) ([]*entity.CheckoutSession, error) {
	query := `
		SELECT ` + checkoutSessionColumns + `
		FROM checkout_sessions
		WHERE expires_at < $1
		  AND status NOT IN ('completed', 'failed', 'expired', 'authorizing', 'authorized', 'booking')
	`

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		r.log.Error("Failed to find expired checkout sessions", zap.Error(err))
		return nil, fmt.Errorf("find expired checkout sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*entity.CheckoutSession
	for rows.Next() {
		session, err := r.scanSession(rows)
		if err != nil {
			r.log.Error("Failed to scan checkout session row", zap.Error(err))
			return nil, fmt.Errorf("scan checkout session row: %w", err)
		}
		sessions = append(sessions, session)
	}

	return sessions, nil
}

func (r *checkoutSessionRepository) scanSession(row pgx.Row) (*entity.CheckoutSession, error) {
	var session entity.CheckoutSession
	var snapshotJSON, travelersJSON []byte

	err := row.Scan(
		&session.ID,
		&session.CartID,
		&session.UserID,
		&session.Status,
		&snapshotJSON,
		&session.TotalCents,
		&session.Currency,
		&travelersJSON,
		&session.ContactEmail,
		&session.ContactPhone,
		&session.PriceChangeAcks,
		&session.PaymentID,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(snapshotJSON, &session.PriceSnapshot); err != nil {
		return nil, fmt.Errorf("unmarshal price snapshot: %w", err)
	}
	if err := json.Unmarshal(travelersJSON, &session.Travelers); err != nil {
		return nil, fmt.Errorf("unmarshal travelers: %w", err)
	}

	return &session, nil
}
