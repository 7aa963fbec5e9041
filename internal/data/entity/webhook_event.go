package entity

import (
	"time"
)

// WebhookEvent is the idempotency ledger row for one external gateway event.
// Append-only; the only mutation after insert is flipping Processed.
type WebhookEvent struct {
	BaseSimple
	ExternalEventID string     `db:"external_event_id"`
	EventType       string     `db:"event_type"`
	Payload         []byte     `db:"payload"`
	Processed       bool       `db:"processed"`
	ProcessedAt     *time.Time `db:"processed_at"`
	RetryCount      int        `db:"retry_count"`
}
