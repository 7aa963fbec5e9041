package repository

import (
	"context"
	"fmt"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type CartRepository interface {
	Create(ctx context.Context, cart *entity.Cart) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Cart, error)
	FindOpenByUserID(ctx context.Context, userID uuid.UUID) (*entity.Cart, error)
	// UpdateStatusExpect advances status only when the row still holds the
	// expected prior status. Returns false when the guard did not match.
	UpdateStatusExpect(ctx context.Context, id uuid.UUID, from, to entity.CartStatus) (bool, error)
	FindAbandonable(ctx context.Context, olderThan time.Time) ([]*entity.Cart, error)
}

type cartRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewCartRepository(db database.PgxIface, log *zap.Logger) CartRepository {
	return &cartRepository{
		db:  db,
		log: log.With(zap.String("repository", "cart")),
	}
}

func (r *cartRepository) Create(ctx context.Context, cart *entity.Cart) error {
	query := `
		INSERT INTO carts (id, user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query,
		cart.ID,
		cart.UserID,
		cart.Status,
		cart.CreatedAt,
		cart.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create cart",
			zap.Error(err),
			zap.String("user_id", cart.UserID.String()),
		)
		return fmt.Errorf("create cart %s: %w", cart.ID.String(), err)
	}

	return nil
}

func (r *cartRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Cart, error) {
	query := `
		SELECT id, user_id, status, created_at, updated_at
		FROM carts
		WHERE id = $1
	`

	var cart entity.Cart
	err := r.db.QueryRow(ctx, query, id).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.Status,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find cart by ID",
			zap.Error(err),
			zap.String("cart_id", id.String()),
		)
		return nil, fmt.Errorf("find cart by ID %s: %w", id.String(), err)
	}

	return &cart, nil
}

func (r *cartRepository) FindOpenByUserID(ctx context.Context, userID uuid.UUID) (*entity.Cart, error) {
	query := `
		SELECT id, user_id, status, created_at, updated_at
		FROM carts
		WHERE user_id = $1 AND status = 'open'
		ORDER BY created_at DESC
		LIMIT 1
	`

	var cart entity.Cart
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.Status,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find open cart by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("find open cart for user %s: %w", userID.String(), err)
	}

	return &cart, nil
}

func (r *cartRepository) UpdateStatusExpect(ctx context.Context, id uuid.UUID, from, to entity.CartStatus) (bool, error) {
	query := `UPDATE carts SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`

	result, err := r.db.Exec(ctx, query, id, from, to)
	if err != nil {
		r.log.Error("Failed to update cart status",
			zap.Error(err),
			zap.String("cart_id", id.String()),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return false, fmt.Errorf("update cart %s status to %s: %w", id.String(), string(to), err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *cartRepository) FindAbandonable(ctx context.Context, olderThan time.Time) ([]*entity.Cart, error) {
	query := `
		SELECT id, user_id, status, created_at, updated_at
		FROM carts
		WHERE status = 'open' AND updated_at < $1
	`

	rows, err := r.db.Query(ctx, query, olderThan)
	if err != nil {
		r.log.Error("Failed to find abandonable carts", zap.Error(err))
		return nil, fmt.Errorf("find abandonable carts: %w", err)
	}
	defer rows.Close()

	var carts []*entity.Cart
	for rows.Next() {
		var cart entity.Cart
		err := rows.Scan(
			&cart.ID,
			&cart.UserID,
			&cart.Status,
			&cart.CreatedAt,
			&cart.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan cart row", zap.Error(err))
			return nil, fmt.Errorf("scan cart row: %w", err)
		}
		carts = append(carts, &cart)
	}

	return carts, nil
}
