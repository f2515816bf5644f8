package quoteModel

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockQuote is what the quote provider could read off the quote page.
// Every field is optional: a nil field means the page did not carry the
// value, which is distinct from zero.
type StockQuote struct {
	Price         *decimal.Decimal `json:"price,omitempty"`
	PreviousClose *decimal.Decimal `json:"previousClose,omitempty"`
	Dividend      *decimal.Decimal `json:"dividend,omitempty"`
	EarningsDate  *time.Time       `json:"earningsDate,omitempty"`
}
