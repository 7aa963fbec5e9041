package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ScheduleChangeRepository interface {
	Create(ctx context.Context, change *entity.ScheduleChange) error
	FindByBookingItemID(ctx context.Context, bookingItemID uuid.UUID) ([]*entity.ScheduleChange, error)
	MarkNotified(ctx context.Context, id uuid.UUID) error
}

type scheduleChangeRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewScheduleChangeRepository(db database.PgxIface, log *zap.Logger) ScheduleChangeRepository {
	return &scheduleChangeRepository{
		db:  db,
		log: log.With(zap.String("repository", "schedule_change")),
	}
}

func (r *scheduleChangeRepository) Create(ctx context.Context, change *entity.ScheduleChange) error {
	previousJSON, err := json.Marshal(change.Previous)
	if err != nil {
		return fmt.Errorf("marshal previous schedule: %w", err)
	}
	currentJSON, err := json.Marshal(change.Current)
	if err != nil {
		return fmt.Errorf("marshal current schedule: %w", err)
	}

	query := `
		INSERT INTO schedule_changes (id, booking_item_id, previous, current, notified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.Exec(ctx, query,
		change.ID,
		change.BookingItemID,
		previousJSON,
		currentJSON,
		change.Notified,
		change.CreatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create schedule change",
			zap.Error(err),
			zap.String("booking_item_id", change.BookingItemID.String()),
		)
		return fmt.Errorf("create schedule change %s: %w", change.ID.String(), err)
	}

	return nil
}

func (r *scheduleChangeRepository) FindByBookingItemID(ctx context.Context, bookingItemID uuid.UUID) ([]*entity.ScheduleChange, error) {
	query := `
		SELECT id, booking_item_id, previous, current, notified, created_at
		FROM schedule_changes
		WHERE booking_item_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, bookingItemID)
	if err != nil {
		r.log.Error("Failed to find schedule changes",
			zap.Error(err),
			zap.String("booking_item_id", bookingItemID.String()),
		)
		return nil, fmt.Errorf("find schedule changes for item %s: %w", bookingItemID.String(), err)
	}
	defer rows.Close()

	var changes []*entity.ScheduleChange
	for rows.Next() {
		var change entity.ScheduleChange
		var previousJSON, currentJSON []byte

		err := rows.Scan(
			&change.ID,
			&change.BookingItemID,
			&previousJSON,
			&currentJSON,
			&change.Notified,
			&change.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan schedule change row", zap.Error(err))
			return nil, fmt.Errorf("scan schedule change row: %w", err)
		}

		if err := json.Unmarshal(previousJSON, &change.Previous); err != nil {
			return nil, fmt.Errorf("unmarshal previous schedule: %w", err)
		}
		if err := json.Unmarshal(currentJSON, &change.Current); err != nil {
			return nil, fmt.Errorf("unmarshal current schedule: %w", err)
		}

		changes = append(changes, &change)
	}

	return changes, nil
}

func (r *scheduleChangeRepository) MarkNotified(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE schedule_changes SET notified = TRUE WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to mark schedule change notified",
			zap.Error(err),
			zap.String("schedule_change_id", id.String()),
		)
		return fmt.Errorf("mark schedule change %s notified: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("schedule change %s: %w", id.String(), entity.ErrNotFound)
	}

	return nil
}
