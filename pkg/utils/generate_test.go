package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBookingRef(t *testing.T) {
	pattern := regexp.MustCompile(`^TRV-\d{8}-\d{6}-\d{4}$`)
	ref := GenerateBookingRef()
	assert.Regexp(t, pattern, ref)
}

func TestIdempotencyKeysAreDeterministic(t *testing.T) {
	sessionID, err := ParseUUID("5f2d9c1a-8b3e-4f7a-9c0d-1e2f3a4b5c6d")
	require.NoError(t, err)
	itemID := GenerateUUID()
	bookingID := GenerateUUID()

	assert.Equal(t, "checkout:5f2d9c1a-8b3e-4f7a-9c0d-1e2f3a4b5c6d:payment", PaymentIdempotencyKey(sessionID))
	assert.Equal(t, "checkout:5f2d9c1a-8b3e-4f7a-9c0d-1e2f3a4b5c6d:item:2", ItemIdempotencyKey(sessionID, 2))

	// Same inputs, same key: retries must hit the provider with the key of
	// the original attempt.
	assert.Equal(t, RefundIdempotencyKey(bookingID, itemID), RefundIdempotencyKey(bookingID, itemID))
	assert.NotEqual(t, ItemIdempotencyKey(sessionID, 0), ItemIdempotencyKey(sessionID, 1))
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 42, ParseInt("42", 10))
	assert.Equal(t, 10, ParseInt("not-a-number", 10))
	assert.Equal(t, 10, ParseInt("", 10))
}
