package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("error not found")
	ErrAlreadyExists    = errors.New("error already exists")
	ErrInvalidOwnerName = errors.New("error owner name must be alphabetic")
	ErrInvalidQuantity  = errors.New("error quantity must be positive")
	ErrQuoteUnavailable = errors.New("error quote unavailable")

	// ErrInvariantViolation means a lot's open units diverge from the sum
	// of its buy events' unconsumed units. It cannot happen under correct
	// allocation and is surfaced as an internal fault, never recovered.
	ErrInvariantViolation = errors.New("error lot units diverge from buy/sell history")
)

// InsufficientUnitsError rejects a sell request for more units than the
// lot still holds. The request leaves no partial effect behind.
type InsufficientUnitsError struct {
	LotID     int64
	Requested int
	Available int
}

func (e *InsufficientUnitsError) Error() string {
	return fmt.Sprintf("insufficient units in lot %d: requested=%d, available=%d", e.LotID, e.Requested, e.Available)
}
