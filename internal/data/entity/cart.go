package entity

import (
	"github.com/google/uuid"
)

type CartStatus string

const (
	CartStatusOpen      CartStatus = "open"
	CartStatusLocked    CartStatus = "locked"
	CartStatusConverted CartStatus = "converted"
	CartStatusAbandoned CartStatus = "abandoned"
)

// cartTransitions is the adjacency table for cart status changes. Locked
// returns to open when a checkout session fails or expires so the user can
// retry with the same cart.
var cartTransitions = map[CartStatus][]CartStatus{
	CartStatusOpen:   {CartStatusLocked, CartStatusAbandoned},
	CartStatusLocked: {CartStatusOpen, CartStatusConverted, CartStatusAbandoned},
}

func (s CartStatus) CanTransition(to CartStatus) bool {
	for _, next := range cartTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s CartStatus) IsTerminal() bool {
	return s == CartStatusConverted || s == CartStatusAbandoned
}

type Cart struct {
	Base
	UserID uuid.UUID  `db:"user_id"`
	Status CartStatus `db:"status"`
}

func (c *Cart) Transition(to CartStatus) error {
	if !c.Status.CanTransition(to) {
		return &InvalidTransitionError{Entity: "cart", From: string(c.Status), To: string(to)}
	}
	c.Status = to
	return nil
}
