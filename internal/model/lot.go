package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockLot is the per-owner, per-stock aggregate that purchases accumulate
// under and sales draw down from. OpenUnits counts trading units still
// held; a lot stays around at zero units as the anchor for its history.
type StockLot struct {
	ID        int64
	OwnerID   int64
	StockID   int64
	OpenUnits int
}

// Holding is the read view of an open lot: the lot joined with its owner
// and stock, plus the average acquisition price over all buy events
// ((sum of price*units + sum of fees) / total units, 2dp half-up) and the
// earliest purchase date.
type Holding struct {
	Lot          StockLot
	Owner        Owner
	Stock        Stock
	AveragePrice decimal.Decimal
	PurchaseDate *time.Time
	IsNisa       bool
}
