package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Owner struct {
	OwnerID int64  `db:"owner_id"`
	Name    string `db:"name"`
}

type Stock struct {
	StockID      int64           `db:"stock_id"`
	Code         string          `db:"code"`
	Name         string          `db:"name"`
	CurrentPrice decimal.Decimal `db:"current_price"`
	Dividend     decimal.Decimal `db:"dividend"`
	MinimalUnit  int             `db:"minimal_unit"`
	EarningsDate *time.Time      `db:"earnings_date"`
	Sector       *string         `db:"sector"`
}

type StockLot struct {
	StockLotID int64 `db:"stock_lot_id"`
	OwnerID    int64 `db:"owner_id"`
	StockID    int64 `db:"stock_id"`
	OpenUnits  int   `db:"open_units"`
}

type BuyEvent struct {
	BuyEventID      int64           `db:"buy_event_id"`
	StockLotID      int64           `db:"stock_lot_id"`
	Units           int             `db:"units"`
	Price           decimal.Decimal `db:"price"`
	Fee             decimal.Decimal `db:"fee"`
	IsNisa          bool            `db:"is_nisa"`
	TransactionDate time.Time       `db:"transaction_date"`
}

// BuyPosition is a buy event row joined with the units already consumed by
// sell events referencing it.
type BuyPosition struct {
	BuyEvent
	SoldUnits int `db:"sold_units"`
}

type SellEvent struct {
	SellEventID     int64           `db:"sell_event_id"`
	BuyEventID      int64           `db:"buy_event_id"`
	Units           int             `db:"units"`
	Price           decimal.Decimal `db:"price"`
	Fee             decimal.Decimal `db:"fee"`
	TransactionDate time.Time       `db:"transaction_date"`
}

// IncomeRecord carries the two nullable owner columns as stored; the
// converter turns them into the exactly-one tagged variant and rejects
// rows violating the rule.
type IncomeRecord struct {
	IncomeID    int64           `db:"income_id"`
	StockLotID  *int64          `db:"stock_lot_id"`
	SellEventID *int64          `db:"sell_event_id"`
	Amount      decimal.Decimal `db:"amount"`
	PaymentDate time.Time       `db:"payment_date"`
}

type BenefitRecord struct {
	BenefitID   int64           `db:"benefit_id"`
	StockLotID  *int64          `db:"stock_lot_id"`
	SellEventID *int64          `db:"sell_event_id"`
	Value       decimal.Decimal `db:"value"`
	PaymentDate time.Time       `db:"payment_date"`
}
