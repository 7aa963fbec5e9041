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

type BookingItemRepository interface {
	Create(ctx context.Context, item *entity.BookingItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.BookingItem, error)
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.BookingItem, error)
	// UpdateStatusExpect advances status only from the expected prior status.
	UpdateStatusExpect(ctx context.Context, id uuid.UUID, from, to entity.BookingItemStatus) (bool, error)
	// SetConfirmation records the provider confirmation and schedule in the
	// same write that moves the item to confirmed.
	SetConfirmation(ctx context.Context, id uuid.UUID, confirmationRef string, schedule entity.ScheduleSnapshot, from entity.BookingItemStatus) (bool, error)
	UpdateSchedule(ctx context.Context, id uuid.UUID, schedule entity.ScheduleSnapshot) error
	FindPendingReconciliation(ctx context.Context) ([]*entity.BookingItem, error)
	// FindStalePending returns pending items untouched since olderThan, the
	// leftovers of a payment run that died before resolving them.
	FindStalePending(ctx context.Context, olderThan time.Time) ([]*entity.BookingItem, error)
	// FindConfirmed returns items eligible for schedule sync and completion.
	FindConfirmed(ctx context.Context) ([]*entity.BookingItem, error)
}

type bookingItemRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingItemRepository(db database.PgxIface, log *zap.Logger) BookingItemRepository {
	return &bookingItemRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking_item")),
	}
}

const bookingItemColumns = `
	id, booking_id, item_index, offer_id, item_type, provider_id,
	confirmation_ref, status, amount_cents, currency, travelers, schedule,
	policy, idempotency_key, created_at, updated_at
`

func (r *bookingItemRepository) Create(ctx context.Context, item *entity.BookingItem) error {
	travelersJSON, err := json.Marshal(item.Travelers)
	if err != nil {
		return fmt.Errorf("marshal booking item travelers: %w", err)
	}
	scheduleJSON, err := json.Marshal(item.Schedule)
	if err != nil {
		return fmt.Errorf("marshal booking item schedule: %w", err)
	}
	policyJSON, err := json.Marshal(item.Policy)
	if err != nil {
		return fmt.Errorf("marshal booking item policy: %w", err)
	}

	query := `
		INSERT INTO booking_items (` + bookingItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err = r.db.Exec(ctx, query,
		item.ID,
		item.BookingID,
		item.ItemIndex,
		item.OfferID,
		item.ItemType,
		item.ProviderID,
		item.ConfirmationRef,
		item.Status,
		item.AmountCents,
		item.Currency,
		travelersJSON,
		scheduleJSON,
		policyJSON,
		item.IdempotencyKey,
		item.CreatedAt,
		item.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create booking item",
			zap.Error(err),
			zap.String("booking_id", item.BookingID.String()),
			zap.Int("item_index", item.ItemIndex),
		)
		return fmt.Errorf("create booking item %s: %w", item.ID.String(), err)
	}

	return nil
}

func (r *bookingItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.BookingItem, error) {
	query := `SELECT ` + bookingItemColumns + ` FROM booking_items WHERE id = $1`

	item, err := r.scanItem(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking item by ID",
			zap.Error(err),
			zap.String("booking_item_id", id.String()),
		)
		return nil, fmt.Errorf("find booking item by ID %s: %w", id.String(), err)
	}

	return item, nil
}

func (r *bookingItemRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.BookingItem, error) {
	query := `
		SELECT ` + bookingItemColumns + `
		FROM booking_items
		WHERE booking_id = $1
		ORDER BY item_index
	`

	rows, err := r.db.Query(ctx, query, bookingID)
	if err != nil {
		r.log.Error("Failed to find booking items by booking ID",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find booking items for booking %s: %w", bookingID.String(), err)
	}
	defer rows.Close()

	var items []*entity.BookingItem
	for rows.Next() {
		item, err := r.scanItem(rows)
		if err != nil {
			r.log.Error("Failed to scan booking item row", zap.Error(err))
			return nil, fmt.Errorf("scan booking item row: %w", err)
		}
		items = append(items, item)
	}

	return items, nil
}

func (r *bookingItemRepository) UpdateStatusExpect(ctx context.Context, id uuid.UUID, from, to entity.BookingItemStatus) (bool, error) {
	query := `UPDATE booking_items SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`

	result, err := r.db.Exec(ctx, query, id, from, to)
	if err != nil {
		r.log.Error("Failed to update booking item status",
			zap.Error(err),
			zap.String("booking_item_id", id.String()),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return false, fmt.Errorf("update booking item %s status to %s: %w", id.String(), string(to), err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *bookingItemRepository) SetConfirmation(ctx context.Context, id uuid.UUID, confirmationRef string, schedule entity.ScheduleSnapshot, from entity.BookingItemStatus) (bool, error) {
	scheduleJSON, err := json.Marshal(schedule)
	if err != nil {
		return false, fmt.Errorf("marshal booking item schedule: %w", err)
	}

	query := `
		UPDATE booking_items
		SET confirmation_ref = $3, schedule = $4, status = 'confirmed', updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	result, err := r.db.Exec(ctx, query, id, from, confirmationRef, scheduleJSON)
	if err != nil {
		r.log.Error("Failed to confirm booking item",
			zap.Error(err),
			zap.String("booking_item_id", id.String()),
			zap.String("confirmation_ref", confirmationRef),
		)
		return false, fmt.Errorf("confirm booking item %s: %w", id.String(), err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *bookingItemRepository) UpdateSchedule(ctx context.Context, id uuid.UUID, schedule entity.ScheduleSnapshot) error {
	scheduleJSON, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("marshal booking item schedule: %w", err)
	}

	query := `UPDATE booking_items SET schedule = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, scheduleJSON)
	if err != nil {
		r.log.Error("Failed to update booking item schedule",
			zap.Error(err),
			zap.String("booking_item_id", id.String()),
		)
		return fmt.Errorf("update booking item %s schedule: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking item %s: %w", id.String(), entity.ErrNotFound)
	}

	return nil
}

func (r *bookingItemRepository) FindPendingReconciliation(ctx context.Context) ([]*entity.BookingItem, error) {
	return r.findByStatuses(ctx, `status = 'pending_reconciliation'`)
}

func (r *bookingItemRepository) FindStalePending(ctx context.Context, olderThan time.Time) ([]*entity.BookingItem, error) {
	query := `
		SELECT ` + bookingItemColumns + `
		FROM booking_items
		WHERE status = 'pending' AND updated_at < $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, olderThan)
	if err != nil {
		r.log.Error("Failed to find stale pending booking items", zap.Error(err))
		return nil, fmt.Errorf("find stale pending booking items: %w", err)
	}
	defer rows.Close()

	var items []*entity.BookingItem
	for rows.Next() {
		item, err := r.scanItem(rows)
		if err != nil {
			r.log.Error("Failed to scan booking item row", zap.Error(err))
			return nil, fmt.Errorf("scan booking item row: %w", err)
		}
		items = append(items, item)
	}

	return items, nil
}

func (r *bookingItemRepository) FindConfirmed(ctx context.Context) ([]*entity.BookingItem, error) {
	return r.findByStatuses(ctx, `status = 'confirmed'`)
}

func (r *bookingItemRepository) findByStatuses(ctx context.Context, where string) ([]*entity.BookingItem, error) {
	query := `
		SELECT ` + bookingItemColumns + `
		FROM booking_items
		WHERE ` + where + `
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.Error("Failed to find booking items by status", zap.Error(err))
		return nil, fmt.Errorf("find booking items by status: %w", err)
	}
	defer rows.Close()

	var items []*entity.BookingItem
	for rows.Next() {
		item, err := r.scanItem(rows)
		if err != nil {
			r.log.Error("Failed to scan booking item row", zap.Error(err))
			return nil, fmt.Errorf("scan booking item row: %w", err)
		}
		items = append(items, item)
	}

	return items, nil
}

func (r *bookingItemRepository) scanItem(row pgx.Row) (*entity.BookingItem, error) {
	var item entity.BookingItem
	var travelersJSON, scheduleJSON, policyJSON []byte

	err := row.Scan(
		&item.ID,
		&item.BookingID,
		&item.ItemIndex,
		&item.OfferID,
		&item.ItemType,
		&item.ProviderID,
		&item.ConfirmationRef,
		&item.Status,
		&item.AmountCents,
		&item.Currency,
		&travelersJSON,
		&scheduleJSON,
		&policyJSON,
		&item.IdempotencyKey,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(travelersJSON, &item.Travelers); err != nil {
		return nil, fmt.Errorf("unmarshal booking item travelers: %w", err)
	}
	if err := json.Unmarshal(scheduleJSON, &item.Schedule); err != nil {
		return nil, fmt.Errorf("unmarshal booking item schedule: %w", err)
	}
	if err := json.Unmarshal(policyJSON, &item.Policy); err != nil {
		return nil, fmt.Errorf("unmarshal booking item policy: %w", err)
	}

	return &item, nil
}
