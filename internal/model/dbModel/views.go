package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

// LotDetail is a stock_lots row joined with its owner and stock.
type LotDetail struct {
	StockLotID   int64           `db:"stock_lot_id"`
	OpenUnits    int             `db:"open_units"`
	OwnerID      int64           `db:"owner_id"`
	OwnerName    string          `db:"owner_name"`
	StockID      int64           `db:"stock_id"`
	StockCode    string          `db:"stock_code"`
	StockName    string          `db:"stock_name"`
	CurrentPrice decimal.Decimal `db:"current_price"`
	Dividend     decimal.Decimal `db:"dividend"`
	MinimalUnit  int             `db:"minimal_unit"`
	EarningsDate *time.Time      `db:"earnings_date"`
	Sector       *string         `db:"sector"`
}

// SaleDetail is a sell_events row joined with the buy event it closed
// against and the lot's owner and stock, as needed by the closed-sale
// breakdown.
type SaleDetail struct {
	SellEventID     int64           `db:"sell_event_id"`
	BuyEventID      int64           `db:"buy_event_id"`
	Units           int             `db:"units"`
	Price           decimal.Decimal `db:"price"`
	Fee             decimal.Decimal `db:"fee"`
	TransactionDate time.Time       `db:"transaction_date"`
	BuyPrice        decimal.Decimal `db:"buy_price"`
	BuyFee          decimal.Decimal `db:"buy_fee"`
	IsNisa          bool            `db:"is_nisa"`
	StockLotID      int64           `db:"stock_lot_id"`
	OwnerID         int64           `db:"owner_id"`
	OwnerName       string          `db:"owner_name"`
	StockCode       string          `db:"stock_code"`
	StockName       string          `db:"stock_name"`
	MinimalUnit     int             `db:"minimal_unit"`
}
