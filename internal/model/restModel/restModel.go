// Package restModel holds the JSON request and response shapes of the
// REST API. Dates travel as "2006-01-02" strings, money as decimal
// strings.
package restModel

import "github.com/shopspring/decimal"

type ErrResponse struct {
	Error string `json:"error"`
}

type CreateOwnerRequest struct {
	Name string `json:"name"`
}

type OwnerResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type RegisterStockRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name,omitempty"`
	MinimalUnit int     `json:"minimal_unit,omitempty"`
	Sector      *string `json:"sector,omitempty"`
}

type StockResponse struct {
	ID           int64           `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Dividend     decimal.Decimal `json:"dividend"`
	MinimalUnit  int             `json:"minimal_unit"`
	EarningsDate *string         `json:"earnings_date,omitempty"`
	Sector       *string         `json:"sector,omitempty"`
}

type BuyRequest struct {
	StockCode       string          `json:"stock_code"`
	Units           int             `json:"units"`
	Price           decimal.Decimal `json:"price"`
	Fee             decimal.Decimal `json:"fee"`
	IsNisa          bool            `json:"is_nisa"`
	TransactionDate string          `json:"transaction_date"`
}

type SellRequest struct {
	Units           int             `json:"units"`
	Price           decimal.Decimal `json:"price"`
	Fee             decimal.Decimal `json:"fee"`
	TransactionDate string          `json:"transaction_date"`
}

type LotResponse struct {
	ID        int64 `json:"id"`
	OwnerID   int64 `json:"owner_id"`
	StockID   int64 `json:"stock_id"`
	OpenUnits int   `json:"open_units"`
}

type SellEventResponse struct {
	ID              int64           `json:"id"`
	BuyEventID      int64           `json:"buy_event_id"`
	Units           int             `json:"units"`
	Price           decimal.Decimal `json:"price"`
	Fee             decimal.Decimal `json:"fee"`
	TransactionDate string          `json:"transaction_date"`
}

type HistoryRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date"`
}

type HistoryResponse struct {
	ID          int64           `json:"id"`
	LotID       int64           `json:"lot_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date"`
}

type HoldingResponse struct {
	LotID        int64           `json:"lot_id"`
	OwnerID      int64           `json:"owner_id"`
	OwnerName    string          `json:"owner_name"`
	StockCode    string          `json:"stock_code"`
	StockName    string          `json:"stock_name"`
	OpenUnits    int             `json:"open_units"`
	AveragePrice decimal.Decimal `json:"average_price"`
	PurchaseDate *string         `json:"purchase_date,omitempty"`
	IsNisa       bool            `json:"is_nisa"`
}

type ProfitLossSummaryResponse struct {
	Realized   decimal.Decimal `json:"realized"`
	Unrealized decimal.Decimal `json:"unrealized"`
	Income     decimal.Decimal `json:"income"`
	Total      decimal.Decimal `json:"total"`
}

type SaleRecordResponse struct {
	SellEventID     int64           `json:"sell_event_id"`
	OwnerID         int64           `json:"owner_id"`
	OwnerName       string          `json:"owner_name"`
	StockCode       string          `json:"stock_code"`
	StockName       string          `json:"stock_name"`
	Units           int             `json:"units"`
	BuyPrice        decimal.Decimal `json:"buy_price"`
	SellPrice       decimal.Decimal `json:"sell_price"`
	IsNisa          bool            `json:"is_nisa"`
	RealizedPL      decimal.Decimal `json:"realized_pl"`
	IncomeTotal     decimal.Decimal `json:"income_total"`
	BenefitTotal    decimal.Decimal `json:"benefit_total"`
	TransactionDate string          `json:"transaction_date"`
}
