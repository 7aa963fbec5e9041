package entity

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrCartEmpty             = errors.New("cart has no active items")
	ErrCartLocked            = errors.New("cart already has an active checkout session")
	ErrOfferExpired          = errors.New("item offer has expired")
	ErrPriceChangedTwice     = errors.New("price changed again after acknowledgement")
	ErrDuplicateEvent        = errors.New("event already processed")
	ErrPaymentDeclined       = errors.New("payment declined")
	ErrItemUnavailable       = errors.New("item no longer available")
	ErrPendingReconciliation = errors.New("booking outcome indeterminate, queued for reconciliation")
)

// InvalidTransitionError rejects a status change not present in an entity's
// adjacency table.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition %s -> %s", e.Entity, e.From, e.To)
}

// ValidationError carries field-level issues for traveler details and other
// user input. It causes no state mutation in the component that raises it.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d field(s)", len(e.Fields))
}
