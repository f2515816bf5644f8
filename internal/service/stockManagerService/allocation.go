package stockManagerService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ijikeman/stockmanager/data/repository"
	"github.com/ijikeman/stockmanager/internal/model"
	"github.com/ijikeman/stockmanager/internal/service"
	"github.com/ijikeman/stockmanager/utils"
	"github.com/shopspring/decimal"
)

// allocation is one buy event's share of a sell request.
type allocation struct {
	buyEvent model.BuyEvent
	units    int
	fee      decimal.Decimal
}

// SellLot sells units from a lot, consuming buy events oldest first. A
// request spanning several buy events produces one sell event per consumed
// buy event; the selling fee is split across them in proportion to units.
// Every persisted income and benefit record of the lot is copied onto each
// produced sell event. Everything commits atomically: an oversell or any
// mid-flight failure leaves the lot untouched.
func (s *StockManagerService) SellLot(ctx context.Context, lotID int64, req model.SellRequest) (events []model.SellEvent, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockManagerService.SellLot"

	slog.Debug("SellLot start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("lotID", lotID), slog.Int("units", req.Units))
	defer func() {
		slog.Debug("SellLot finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("lotID", lotID))
	}()

	if req.Units <= 0 {
		return nil, service.ErrInvalidQuantity
	}
	if req.Price.IsNegative() || req.Fee.IsNegative() {
		return nil, service.ErrInvalidQuantity
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		lot, err := s.repo.GetLotForUpdate(ctx, lotID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return service.ErrNotFound
			}
			return err
		}

		positions, err := s.repo.FindBuyPositionsByLot(ctx, lotID)
		if err != nil {
			return err
		}

		available := 0
		for _, p := range positions {
			available += p.Remaining
		}
		if available != lot.OpenUnits {
			slog.Error("lot units diverge from buy/sell history",
				slog.String("rqID", rqID), slog.String("op", op),
				slog.Int64("lotID", lotID), slog.Int("openUnits", lot.OpenUnits), slog.Int("historyUnits", available))
			return fmt.Errorf("%w: lot %d has open_units=%d but history says %d", service.ErrInvariantViolation, lotID, lot.OpenUnits, available)
		}

		allocations, err := allocateSale(lotID, positions, req)
		if err != nil {
			return err
		}

		incomes, err := s.repo.FindIncomeByLot(ctx, lotID)
		if err != nil {
			return err
		}
		benefits, err := s.repo.FindBenefitByLot(ctx, lotID)
		if err != nil {
			return err
		}

		for _, a := range allocations {
			event := model.SellEvent{
				BuyEventID:      a.buyEvent.ID,
				Units:           a.units,
				Price:           req.Price,
				Fee:             a.fee,
				TransactionDate: req.TransactionDate,
			}
			event.ID, err = s.repo.CreateSellEvent(ctx, event)
			if err != nil {
				return err
			}
			if err = s.copyLotHistoryToSale(ctx, event.ID, incomes, benefits); err != nil {
				return err
			}
			events = append(events, event)
		}

		return s.repo.UpdateLotUnits(ctx, lotID, lot.OpenUnits-req.Units)
	})
	if err != nil {
		var insufficientErr *service.InsufficientUnitsError
		if !errors.Is(err, service.ErrNotFound) && !errors.As(err, &insufficientErr) {
			slog.Error("sell transaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("lotID", lotID), slog.String("err", err.Error()))
		}
		return nil, err
	}

	return events, nil
}

// allocateSale walks buy positions in order (oldest first, as loaded) and
// consumes their remaining units until the request is covered. Positions
// with nothing left are skipped. The result carries each consumed buy
// event and its share of the selling fee.
func allocateSale(lotID int64, positions []model.BuyPosition, req model.SellRequest) ([]allocation, error) {
	available := 0
	for _, p := range positions {
		available += p.Remaining
	}
	if req.Units > available {
		return nil, &service.InsufficientUnitsError{LotID: lotID, Requested: req.Units, Available: available}
	}

	allocations := make([]allocation, 0, len(positions))
	left := req.Units
	for _, p := range positions {
		if left == 0 {
			break
		}
		if p.Remaining <= 0 {
			continue
		}
		take := p.Remaining
		if take > left {
			take = left
		}
		allocations = append(allocations, allocation{buyEvent: p.BuyEvent, units: take})
		left -= take
	}

	splitSellFee(allocations, req.Fee, req.Units)
	return allocations, nil
}

// splitSellFee distributes the fee across allocations in proportion to
// units, each share rounded to 2 decimal places. The last allocation takes
// whatever remains so the shares always sum to the original fee exactly.
func splitSellFee(allocations []allocation, fee decimal.Decimal, totalUnits int) {
	if len(allocations) == 0 {
		return
	}
	total := decimal.NewFromInt(int64(totalUnits))
	distributed := decimal.Zero
	for i := range allocations {
		if i == len(allocations)-1 {
			allocations[i].fee = fee.Sub(distributed)
			break
		}
		share := fee.Mul(decimal.NewFromInt(int64(allocations[i].units))).DivRound(total, 2)
		allocations[i].fee = share
		distributed = distributed.Add(share)
	}
}

// copyLotHistoryToSale duplicates the lot's income and benefit records
// onto a sell event. The originals stay attached to the lot; the copies
// carry the sale's own attribution.
func (s *StockManagerService) copyLotHistoryToSale(ctx context.Context, sellEventID int64, incomes []model.IncomeRecord, benefits []model.BenefitRecord) error {
	for _, income := range incomes {
		_, err := s.repo.CreateIncomeRecord(ctx, model.IncomeRecord{
			Owner:       model.SaleOwner(sellEventID),
			Amount:      income.Amount,
			PaymentDate: income.PaymentDate,
		})
		if err != nil {
			return err
		}
	}
	for _, benefit := range benefits {
		_, err := s.repo.CreateBenefitRecord(ctx, model.BenefitRecord{
			Owner:       model.SaleOwner(sellEventID),
			Value:       benefit.Value,
			PaymentDate: benefit.PaymentDate,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
