package stockManagerService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ijikeman/stockmanager/data/repository"
	"github.com/ijikeman/stockmanager/internal/model"
	"github.com/ijikeman/stockmanager/internal/model/quoteModel"
	"github.com/ijikeman/stockmanager/internal/service"
	"github.com/ijikeman/stockmanager/utils"
	"github.com/shopspring/decimal"
)

// Japanese capital gains tax: 15.315% income tax + 5% resident tax.
var netOfTaxFactor = decimal.NewFromInt(1).Sub(decimal.RequireFromString("0.20315"))

// netOfTax applies the 20.315% withholding unless the position is NISA
// exempt.
func netOfTax(amount decimal.Decimal, isNisa bool) decimal.Decimal {
	if isNisa {
		return amount
	}
	return amount.Mul(netOfTaxFactor)
}

// realizedPL computes the after-tax result of one closed sale:
// (sell price - buy price) * units * minimal unit, minus both fees, taxed
// unless the consumed buy event was NISA.
func realizedPL(sale model.SaleDetail) decimal.Decimal {
	units := decimal.NewFromInt(int64(sale.SellEvent.Units * sale.MinimalUnit))
	gross := sale.SellEvent.Price.Sub(sale.BuyPrice).Mul(units).Sub(sale.BuyFee).Sub(sale.SellEvent.Fee)
	return netOfTax(gross, sale.IsNisa)
}

// usablePrice reports whether a quote carries a price the calculator may
// mark against. A missing or zero price means the page had no real
// figure, never a free stock.
func usablePrice(quote quoteModel.StockQuote) bool {
	return quote.Price != nil && !quote.Price.IsZero()
}

// resolveCurrentPrice returns the live quote for a stock, falling back to
// the last stored price when the provider and cache both fail or report a
// zero price.
func (s *StockManagerService) resolveCurrentPrice(ctx context.Context, stock model.Stock) (price decimal.Decimal, fromQuote bool) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockManagerService.resolveCurrentPrice"

	quote, err := s.cache.GetQuote(ctx, stock.Code)
	if err == nil && usablePrice(quote) {
		return *quote.Price, true
	}

	quote, err = s.financeApi.GetQuote(ctx, stock.Code)
	if err == nil && usablePrice(quote) {
		if cacheErr := s.cache.SetQuote(ctx, stock.Code, quote); cacheErr != nil {
			slog.Warn("failed to cache quote", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", stock.Code), slog.String("err", cacheErr.Error()))
		}
		return *quote.Price, true
	}
	if err != nil {
		slog.Warn("quote unavailable, using stored price", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", stock.Code), slog.String("err", err.Error()))
	} else {
		slog.Warn("quote has no usable price, using stored price", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", stock.Code))
	}

	return stock.CurrentPrice, false
}

// lotProfitLosses builds the per-lot view: unrealized P/L for open units
// plus the taxed income and benefit attached to the lot. Closed lots still
// appear (with zero unrealized) because their original income records stay
// attached to them.
func (s *StockManagerService) lotProfitLosses(ctx context.Context, ownerID *int64) ([]model.LotProfitLoss, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockManagerService.lotProfitLosses"

	holdings, err := s.repo.ListLotDetails(ctx, ownerID, false)
	if err != nil {
		slog.Error("got error from repo.ListLotDetails", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	lots := make([]model.LotProfitLoss, 0, len(holdings))
	for _, h := range holdings {
		lot := model.LotProfitLoss{
			LotID:     h.Lot.ID,
			OwnerID:   h.Owner.ID,
			OwnerName: h.Owner.Name,
			StockCode: h.Stock.Code,
			StockName: h.Stock.Name,
			OpenUnits: h.Lot.OpenUnits,
		}

		buys, err := s.repo.FindBuyEventsByLot(ctx, h.Lot.ID)
		if err != nil {
			slog.Error("got error from repo.FindBuyEventsByLot", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return nil, err
		}
		if len(buys) == 0 {
			slog.Warn("lot has no buy events", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("lotID", h.Lot.ID))
			lots = append(lots, lot)
			continue
		}

		lot.IsNisa = allNisa(buys)
		lot.CostBasis = buys[0].Price

		if h.Lot.OpenUnits > 0 {
			price, fromQuote := s.resolveCurrentPrice(ctx, h.Stock)
			lot.CurrentPrice = price
			lot.PriceFromQuote = fromQuote
			units := decimal.NewFromInt(int64(h.Lot.OpenUnits * h.Stock.MinimalUnit))
			lot.UnrealizedPL = netOfTax(price.Sub(lot.CostBasis).Mul(units), lot.IsNisa)
		}

		incomes, err := s.repo.FindIncomeByLot(ctx, h.Lot.ID)
		if err != nil {
			return nil, err
		}
		for _, income := range incomes {
			lot.IncomeTotal = lot.IncomeTotal.Add(netOfTax(income.Amount, lot.IsNisa))
		}

		benefits, err := s.repo.FindBenefitByLot(ctx, h.Lot.ID)
		if err != nil {
			return nil, err
		}
		for _, benefit := range benefits {
			lot.BenefitTotal = lot.BenefitTotal.Add(netOfTax(benefit.Value, lot.IsNisa))
		}

		lots = append(lots, lot)
	}

	return lots, nil
}

// ComputeProfitLoss aggregates the after-tax realized, unrealized and
// income components across all lots, optionally filtered by owner. Income
// counts the records attached to lots only; the copies attached to sell
// events exist for the per-sale breakdown and would double count here.
func (s *StockManagerService) ComputeProfitLoss(ctx context.Context, ownerID *int64) (model.ProfitLossSummary, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockManagerService.ComputeProfitLoss"

	slog.Debug("ComputeProfitLoss start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ComputeProfitLoss finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	sales, err := s.repo.ListSaleDetails(ctx, ownerID)
	if err != nil {
		slog.Error("got error from repo.ListSaleDetails", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.ProfitLossSummary{}, err
	}

	summary := model.ProfitLossSummary{}
	for _, sale := range sales {
		summary.Realized = summary.Realized.Add(realizedPL(sale))
	}

	lots, err := s.lotProfitLosses(ctx, ownerID)
	if err != nil {
		return model.ProfitLossSummary{}, err
	}
	for _, lot := range lots {
		summary.Unrealized = summary.Unrealized.Add(lot.UnrealizedPL)
		summary.Income = summary.Income.Add(lot.IncomeTotal).Add(lot.BenefitTotal)
	}

	summary.Total = summary.Realized.Add(summary.Unrealized).Add(summary.Income)
	return summary, nil
}

// ClosedSaleBreakdown returns one record per sell event with its realized
// P/L and the income/benefit copies attributed to that sale.
func (s *StockManagerService) ClosedSaleBreakdown(ctx context.Context, ownerID *int64) ([]model.SaleRecord, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockManagerService.ClosedSaleBreakdown"

	slog.Debug("ClosedSaleBreakdown start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ClosedSaleBreakdown finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	sales, err := s.repo.ListSaleDetails(ctx, ownerID)
	if err != nil {
		slog.Error("got error from repo.ListSaleDetails", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	records := make([]model.SaleRecord, 0, len(sales))
	for _, sale := range sales {
		record := model.SaleRecord{
			SellEvent:       sale.SellEvent,
			OwnerID:         sale.OwnerID,
			OwnerName:       sale.OwnerName,
			StockCode:       sale.StockCode,
			StockName:       sale.StockName,
			BuyPrice:        sale.BuyPrice,
			IsNisa:          sale.IsNisa,
			RealizedPL:      realizedPL(sale),
			TransactionDate: sale.SellEvent.TransactionDate,
		}

		incomes, err := s.repo.FindIncomeBySale(ctx, sale.SellEvent.ID)
		if err != nil {
			return nil, err
		}
		for _, income := range incomes {
			record.IncomeTotal = record.IncomeTotal.Add(netOfTax(income.Amount, sale.IsNisa))
		}

		benefits, err := s.repo.FindBenefitBySale(ctx, sale.SellEvent.ID)
		if err != nil {
			return nil, err
		}
		for _, benefit := range benefits {
			record.BenefitTotal = record.BenefitTotal.Add(netOfTax(benefit.Value, sale.IsNisa))
		}

		records = append(records, record)
	}

	return records, nil
}

// VerifyLotIntegrity checks that a lot's open units equal the unconsumed
// units across its buy events. Consumption is recomputed from the raw
// sell events, independently of the aggregated query the allocation
// engine relies on.
func (s *StockManagerService) VerifyLotIntegrity(ctx context.Context, lotID int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockManagerService.VerifyLotIntegrity"

	lot, err := s.repo.GetLot(ctx, lotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.GetLot", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	buys, err := s.repo.FindBuyEventsByLot(ctx, lotID)
	if err != nil {
		slog.Error("got error from repo.FindBuyEventsByLot", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	remaining := 0
	for _, buy := range buys {
		sells, err := s.repo.FindSellEventsByBuyEvent(ctx, buy.ID)
		if err != nil {
			slog.Error("got error from repo.FindSellEventsByBuyEvent", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return err
		}
		sold := 0
		for _, sell := range sells {
			sold += sell.Units
		}
		if sold > buy.Units {
			return fmt.Errorf("%w: buy event %d has %d units but %d sold", service.ErrInvariantViolation, buy.ID, buy.Units, sold)
		}
		remaining += buy.Units - sold
	}
	if remaining != lot.OpenUnits {
		slog.Error("lot units diverge from buy/sell history",
			slog.String("rqID", rqID), slog.String("op", op),
			slog.Int64("lotID", lotID), slog.Int("openUnits", lot.OpenUnits), slog.Int("historyUnits", remaining))
		return fmt.Errorf("%w: lot %d has open_units=%d but history says %d", service.ErrInvariantViolation, lotID, lot.OpenUnits, remaining)
	}

	return nil
}

// VerifyIntegrity runs VerifyLotIntegrity over every lot and collects the
// failures.
func (s *StockManagerService) VerifyIntegrity(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockManagerService.VerifyIntegrity"

	slog.Debug("VerifyIntegrity start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("VerifyIntegrity finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	holdings, err := s.repo.ListLotDetails(ctx, nil, false)
	if err != nil {
		slog.Error("got error from repo.ListLotDetails", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	var failures []error
	for _, h := range holdings {
		if err := s.VerifyLotIntegrity(ctx, h.Lot.ID); err != nil {
			failures = append(failures, err)
		}
	}
	return errors.Join(failures...)
}
