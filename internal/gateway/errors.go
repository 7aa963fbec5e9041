package gateway

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an external call failure. The coordinator treats each
// kind differently: terminal failures roll back immediately, transient ones
// are retried with the same idempotency key, timeouts are never retried
// blindly because the remote outcome is unknown.
type ErrorKind int

const (
	KindTerminal ErrorKind = iota
	KindTransient
	KindTimeout
)

type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func NewTerminal(op, message string) *Error {
	return &Error{Kind: KindTerminal, Op: op, Message: message}
}

func NewTransient(op, message string) *Error {
	return &Error{Kind: KindTransient, Op: op, Message: message}
}

func NewTimeout(op string) *Error {
	return &Error{Kind: KindTimeout, Op: op, Message: "call timed out, outcome unknown"}
}

func IsTimeout(err error) bool {
	return kindOf(err) == KindTimeout
}

func IsTransient(err error) bool {
	return kindOf(err) == KindTransient
}

func IsTerminal(err error) bool {
	return kindOf(err) == KindTerminal
}

func kindOf(err error) ErrorKind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return KindTerminal
}

// ErrOfferNotAvailable is returned by the catalog when an offer can no longer
// be priced.
var ErrOfferNotAvailable = errors.New("offer not available")
