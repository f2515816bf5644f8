package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BuyEvent is one discrete purchase of units against a lot. Immutable once
// created; the NISA flag is fixed at purchase time.
type BuyEvent struct {
	ID              int64
	StockLotID      int64
	Units           int
	Price           decimal.Decimal
	Fee             decimal.Decimal
	IsNisa          bool
	TransactionDate time.Time
}

// SellEvent closes units against exactly one BuyEvent. A single sell
// request may produce several SellEvents when it spans buy events.
type SellEvent struct {
	ID              int64
	BuyEventID      int64
	Units           int
	Price           decimal.Decimal
	Fee             decimal.Decimal
	TransactionDate time.Time
}

// BuyPosition is a buy event together with the units not yet consumed by
// sell events referencing it.
type BuyPosition struct {
	BuyEvent  BuyEvent
	Remaining int
}

type SellRequest struct {
	Units           int
	Price           decimal.Decimal
	Fee             decimal.Decimal
	TransactionDate time.Time
}

type BuyRequest struct {
	Units           int
	Price           decimal.Decimal
	Fee             decimal.Decimal
	IsNisa          bool
	TransactionDate time.Time
}
