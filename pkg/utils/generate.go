package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// ==================== UUID ====================

func GenerateUUID() uuid.UUID {
	return uuid.New()
}

func ParseUUID(uuidStr string) (uuid.UUID, error) {
	return uuid.Parse(uuidStr)
}

// ==================== BOOKING REFERENCE ====================

// GenerateBookingRef creates a human-facing booking reference.
// Format: TRV-YYYYMMDD-HHMMSS-RANDOM
func GenerateBookingRef() string {
	rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now()

	datePart := now.Format("20060102")
	timePart := now.Format("150405")
	randomPart := fmt.Sprintf("%04d", rand.Intn(10000))

	return fmt.Sprintf("TRV-%s-%s-%s", datePart, timePart, randomPart)
}

// ==================== IDEMPOTENCY KEYS ====================
//
// Keys must be deterministic strings derivable from (entity id, operation,
// attempt scope) so a retried network call carries the exact same key.

// PaymentIdempotencyKey covers both authorize and capture for one checkout
// session. Capture reuses the authorize key on purpose: a retried capture
// against an already-captured intent is a no-op at the gateway.
func PaymentIdempotencyKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("checkout:%s:payment", sessionID.String())
}

// ItemIdempotencyKey covers the provider booking call for one cart item
// position within a checkout session.
func ItemIdempotencyKey(sessionID uuid.UUID, itemIndex int) string {
	return fmt.Sprintf("checkout:%s:item:%d", sessionID.String(), itemIndex)
}

// RefundIdempotencyKey covers the gateway refund for one booking item.
func RefundIdempotencyKey(bookingID, itemID uuid.UUID) string {
	return fmt.Sprintf("refund:%s:%s", bookingID.String(), itemID.String())
}
