package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type RecordOwnerKind int

const (
	OwnedByLot RecordOwnerKind = iota + 1
	OwnedBySale
)

// RecordOwner says whether an income/benefit record belongs to a live
// StockLot or to a closed SellEvent. Exactly one of the two; construct via
// LotOwner or SaleOwner so an invalid reference cannot exist.
type RecordOwner struct {
	kind RecordOwnerKind
	id   int64
}

func LotOwner(lotID int64) RecordOwner {
	return RecordOwner{kind: OwnedByLot, id: lotID}
}

func SaleOwner(sellEventID int64) RecordOwner {
	return RecordOwner{kind: OwnedBySale, id: sellEventID}
}

func (o RecordOwner) Kind() RecordOwnerKind { return o.kind }

func (o RecordOwner) LotID() (int64, bool) {
	if o.kind != OwnedByLot {
		return 0, false
	}
	return o.id, true
}

func (o RecordOwner) SellEventID() (int64, bool) {
	if o.kind != OwnedBySale {
		return 0, false
	}
	return o.id, true
}

func (o RecordOwner) IsZero() bool { return o.kind == 0 }

// IncomeRecord is one dividend payment. Records are never mutated; when a
// buy event closes out, copies re-parented to the sell event are created
// and the original stays on the lot.
type IncomeRecord struct {
	ID          int64
	Owner       RecordOwner
	Amount      decimal.Decimal
	PaymentDate time.Time
}

// BenefitRecord is one shareholder perk, valued in currency.
type BenefitRecord struct {
	ID          int64
	Owner       RecordOwner
	Value       decimal.Decimal
	PaymentDate time.Time
}
