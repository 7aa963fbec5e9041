package repository

import (
	"context"
	"fmt"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type WebhookEventRepository interface {
	// InsertIfAbsent records a new event row or returns the existing row for
	// the external id. The bool reports whether a new row was inserted.
	InsertIfAbsent(ctx context.Context, event *entity.WebhookEvent) (*entity.WebhookEvent, bool, error)
	FindByExternalID(ctx context.Context, externalEventID string) (*entity.WebhookEvent, error)
	MarkProcessed(ctx context.Context, externalEventID string) error
	IncrementRetry(ctx context.Context, externalEventID string) error
}

type webhookEventRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewWebhookEventRepository(db database.PgxIface, log *zap.Logger) WebhookEventRepository {
	return &webhookEventRepository{
		db:  db,
		log: log.With(zap.String("repository", "webhook_event")),
	}
}

const webhookEventColumns = `
	id, external_event_id, event_type, payload, processed, processed_at,
	retry_count, created_at
`

func (r *webhookEventRepository) InsertIfAbsent(ctx context.Context, event *entity.WebhookEvent) (*entity.WebhookEvent, bool, error) {
	// ON CONFLICT DO NOTHING plus a follow-up read keeps this safe under
	// concurrent deliveries of the same external event.
	query := `
		INSERT INTO webhook_events (` + webhookEventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (external_event_id) DO NOTHING
	`

	result, err := r.db.Exec(ctx, query,
		event.ID,
		event.ExternalEventID,
		event.EventType,
		event.Payload,
		event.Processed,
		event.ProcessedAt,
		event.RetryCount,
		event.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to insert webhook event",
			zap.Error(err),
			zap.String("external_event_id", event.ExternalEventID),
		)
		return nil, false, fmt.Errorf("insert webhook event %s: %w", event.ExternalEventID, err)
	}

	if result.RowsAffected() > 0 {
		return event, true, nil
	}

	existing, err := r.FindByExternalID(ctx, event.ExternalEventID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("webhook event %s: %w", event.ExternalEventID, entity.ErrNotFound)
	}

	return existing, false, nil
}

func (r *webhookEventRepository) FindByExternalID(ctx context.Context, externalEventID string) (*entity.WebhookEvent, error) {
	query := `SELECT ` + webhookEventColumns + ` FROM webhook_events WHERE external_event_id = $1`

	var event entity.WebhookEvent
	err := r.db.QueryRow(ctx, query, externalEventID).Scan(
		&event.ID,
		&event.ExternalEventID,
		&event.EventType,
		&event.Payload,
		&event.Processed,
		&event.ProcessedAt,
		&event.RetryCount,
		&event.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find webhook event",
			zap.Error(err),
			zap.String("external_event_id", externalEventID),
		)
		return nil, fmt.Errorf("find webhook event %s: %w", externalEventID, err)
	}

	return &event, nil
}

func (r *webhookEventRepository) MarkProcessed(ctx context.Context, externalEventID string) error {
	query := `
		UPDATE webhook_events
		SET processed = TRUE, processed_at = NOW()
		WHERE external_event_id = $1 AND processed = FALSE
	`

	result, err := r.db.Exec(ctx, query, externalEventID)
	if err != nil {
		r.log.Error("Failed to mark webhook event processed",
			zap.Error(err),
			zap.String("external_event_id", externalEventID),
		)
		return fmt.Errorf("mark webhook event %s processed: %w", externalEventID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("webhook event %s: %w", externalEventID, entity.ErrNotFound)
	}

	return nil
}

func (r *webhookEventRepository) IncrementRetry(ctx context.Context, externalEventID string) error {
	query := `UPDATE webhook_events SET retry_count = retry_count + 1 WHERE external_event_id = $1`

	_, err := r.db.Exec(ctx, query, externalEventID)
	if err != nil {
		r.log.Error("Failed to increment webhook event retry count",
			zap.Error(err),
			zap.String("external_event_id", externalEventID),
		)
		return fmt.Errorf("increment webhook event %s retry count: %w", externalEventID, err)
	}

	return nil
}
