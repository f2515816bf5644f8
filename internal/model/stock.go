package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stock is reference data for one listed security. CurrentPrice, Dividend
// and EarningsDate are refreshed by the quote provider job; MinimalUnit is
// the number of shares in one trading unit (e.g. 100).
type Stock struct {
	ID           int64
	Code         string
	Name         string
	CurrentPrice decimal.Decimal
	Dividend     decimal.Decimal
	MinimalUnit  int
	EarningsDate *time.Time
	Sector       *string
}
