package entity

import (
	"github.com/google/uuid"
)

// ScheduleChange is the audit record of a provider-side schedule change
// detected against the stored snapshot.
type ScheduleChange struct {
	BaseSimple
	BookingItemID uuid.UUID        `db:"booking_item_id"`
	Previous      ScheduleSnapshot `db:"previous"`
	Current       ScheduleSnapshot `db:"current"`
	Notified      bool             `db:"notified"`
}
