package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type CartItemRepository interface {
	Create(ctx context.Context, item *entity.CartItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.CartItem, error)
	FindActiveByCartID(ctx context.Context, cartID uuid.UUID) ([]*entity.CartItem, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.CartItemStatus) error
	UpdatePrice(ctx context.Context, id uuid.UUID, priceCents int64) error
}

type cartItemRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewCartItemRepository(db database.PgxIface, log *zap.Logger) CartItemRepository {
	return &cartItemRepository{
		db:  db,
		log: log.With(zap.String("repository", "cart_item")),
	}
}

const cartItemColumns = `
	id, cart_id, offer_id, item_type, provider_id, name, price_cents, currency,
	quantity, occupancy, offer_expiry, departure_at, status, policy, schedule, created_at
`

func (r *cartItemRepository) Create(ctx context.Context, item *entity.CartItem) error {
	policyJSON, err := json.Marshal(item.Policy)
	if err != nil {
		return fmt.Errorf("marshal cart item policy: %w", err)
	}
	scheduleJSON, err := json.Marshal(item.Schedule)
	if err != nil {
		return fmt.Errorf("marshal cart item schedule: %w", err)
	}

	query := `
		INSERT INTO cart_items (` + cartItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err = r.db.Exec(ctx, query,
		item.ID,
		item.CartID,
		item.OfferID,
		item.ItemType,
		item.ProviderID,
		item.Name,
		item.PriceCents,
		item.Currency,
		item.Quantity,
		item.Occupancy,
		item.OfferExpiry,
		item.DepartureAt,
		item.Status,
		policyJSON,
		scheduleJSON,
		item.CreatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create cart item",
			zap.Error(err),
			zap.String("cart_id", item.CartID.String()),
			zap.String("offer_id", item.OfferID),
		)
		return fmt.Errorf("create cart item %s: %w", item.ID.String(), err)
	}

	return nil
}

func (r *cartItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.CartItem, error) {
	query := `SELECT ` + cartItemColumns + ` FROM cart_items WHERE id = $1`

	item, err := r.scanItem(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find cart item by ID",
			zap.Error(err),
			zap.String("cart_item_id", id.String()),
		)
		return nil, fmt.Errorf("find cart item by ID %s: %w", id.String(), err)
	}

	return item, nil
}

func (r *cartItemRepository) FindActiveByCartID(ctx context.Context, cartID uuid.UUID) ([]*entity.CartItem, error) {
	query := `
		SELECT ` + cartItemColumns + `
		FROM cart_items
		WHERE cart_id = $1 AND status IN ('active', 'price_changed')
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, cartID)
	if err != nil {
		r.log.Error("Failed to find cart items by cart ID",
			zap.Error(err),
			zap.String("cart_id", cartID.String()),
		)
		return nil, fmt.Errorf("find cart items for cart %s: %w", cartID.String(), err)
	}
	defer rows.Close()

	var items []*entity.CartItem
	for rows.Next() {
		item, err := r.scanItem(rows)
		if err != nil {
			r.log.Error("Failed to scan cart item row", zap.Error(err))
			return nil, fmt.Errorf("scan cart item row: %w", err)
		}
		items = append(items, item)
	}

	return items, nil
}

func (r *cartItemRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.CartItemStatus) error {
	query := `UPDATE cart_items SET status = $2 WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		r.log.Error("Failed to update cart item status",
			zap.Error(err),
			zap.String("cart_item_id", id.String()),
			zap.String("status", string(status)),
		)
		return fmt.Errorf("update cart item %s status to %s: %w", id.String(), string(status), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("cart item %s: %w", id.String(), entity.ErrNotFound)
	}

	return nil
}

func (r *cartItemRepository) UpdatePrice(ctx context.Context, id uuid.UUID, priceCents int64) error {
	query := `UPDATE cart_items SET price_cents = $2, status = 'active' WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, priceCents)
	if err != nil {
		r.log.Error("Failed to update cart item price",
			zap.Error(err),
			zap.String("cart_item_id", id.String()),
			zap.Int64("price_cents", priceCents),
		)
		return fmt.Errorf("update cart item %s price: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("cart item %s: %w", id.String(), entity.ErrNotFound)
	}

	return nil
}

func (r *cartItemRepository) scanItem(row pgx.Row) (*entity.CartItem, error) {
	var item entity.CartItem
	var policyJSON, scheduleJSON []byte

	err := row.Scan(
		&item.ID,
		&item.CartID,
		&item.OfferID,
		&item.ItemType,
		&item.ProviderID,
		&item.Name,
		&item.PriceCents,
		&item.Currency,
		&item.Quantity,
		&item.Occupancy,
		&item.OfferExpiry,
		&item.DepartureAt,
		&item.Status,
		&policyJSON,
		&scheduleJSON,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(policyJSON, &item.Policy); err != nil {
		return nil, fmt.Errorf("unmarshal cart item policy: %w", err)
	}
	if err := json.Unmarshal(scheduleJSON, &item.Schedule); err != nil {
		return nil, fmt.Errorf("unmarshal cart item schedule: %w", err)
	}

	return &item, nil
}
