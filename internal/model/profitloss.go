package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProfitLossSummary struct {
	Realized   decimal.Decimal
	Unrealized decimal.Decimal
	Income     decimal.Decimal
	Total      decimal.Decimal
}

// SaleDetail is a sell event joined with its buy event, lot, owner and
// stock; the raw material the calculator turns into a SaleRecord.
type SaleDetail struct {
	SellEvent   SellEvent
	BuyPrice    decimal.Decimal
	BuyFee      decimal.Decimal
	IsNisa      bool
	StockLotID  int64
	OwnerID     int64
	OwnerName   string
	StockCode   string
	StockName   string
	MinimalUnit int
}

// SaleRecord is the per-closed-sale breakdown: realized P/L for one sell
// event plus the income/benefit re-attributed to it.
type SaleRecord struct {
	SellEvent       SellEvent
	OwnerID         int64
	OwnerName       string
	StockCode       string
	StockName       string
	BuyPrice        decimal.Decimal
	IsNisa          bool
	RealizedPL      decimal.Decimal
	IncomeTotal     decimal.Decimal
	BenefitTotal    decimal.Decimal
	TransactionDate time.Time
}

// ProfitLossReport bundles everything the xlsx report renders.
type ProfitLossReport struct {
	Summary  ProfitLossSummary
	Holdings []LotProfitLoss
	Sales    []SaleRecord
}

// LotProfitLoss is the per-open-lot unrealized view.
type LotProfitLoss struct {
	LotID          int64
	OwnerID        int64
	OwnerName      string
	StockCode      string
	StockName      string
	OpenUnits      int
	CostBasis      decimal.Decimal
	CurrentPrice   decimal.Decimal
	IsNisa         bool
	UnrealizedPL   decimal.Decimal
	IncomeTotal    decimal.Decimal
	BenefitTotal   decimal.Decimal
	PriceFromQuote bool
}
