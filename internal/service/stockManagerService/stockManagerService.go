package stockManagerService

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"time"

	"github.com/ijikeman/stockmanager/data/repository"
	"github.com/ijikeman/stockmanager/internal/externalApi"
	"github.com/ijikeman/stockmanager/internal/model"
	"github.com/ijikeman/stockmanager/internal/model/quoteModel"
	"github.com/ijikeman/stockmanager/internal/service"
	"github.com/ijikeman/stockmanager/utils"
	"github.com/shopspring/decimal"
)

type FinanceApi interface {
	GetQuote(ctx context.Context, code string) (quoteModel.StockQuote, error)
	GetStockName(ctx context.Context, code string) (string, error)
}

type Cache interface {
	GetQuote(ctx context.Context, code string) (quoteModel.StockQuote, error)
	SetQuote(ctx context.Context, code string, quote quoteModel.StockQuote) error
}

type ReportGenerator interface {
	GenerateProfitLossReport(ctx context.Context, report model.ProfitLossReport) (fileBytes []byte, fileName string, err error)
}

type Repository interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	CreateOwner(ctx context.Context, name string) (ownerID int64, err error)
	GetOwner(ctx context.Context, ownerID int64) (model.Owner, error)
	ListOwners(ctx context.Context) ([]model.Owner, error)

	CreateStock(ctx context.Context, stock model.Stock) (stockID int64, err error)
	GetStock(ctx context.Context, stockID int64) (model.Stock, error)
	GetStockByCode(ctx context.Context, code string) (model.Stock, error)
	ListStocks(ctx context.Context) ([]model.Stock, error)
	UpdateStockQuote(ctx context.Context, stockID int64, price decimal.Decimal, dividend *decimal.Decimal, earningsDate *time.Time) error

	CreateLot(ctx context.Context, ownerID, stockID int64, openUnits int) (lotID int64, err error)
	GetLot(ctx context.Context, lotID int64) (model.StockLot, error)
	GetLotForUpdate(ctx context.Context, lotID int64) (model.StockLot, error)
	FindLotByOwnerAndStock(ctx context.Context, ownerID, stockID int64) (model.StockLot, error)
	UpdateLotUnits(ctx context.Context, lotID int64, openUnits int) error
	ListLotDetails(ctx context.Context, ownerID *int64, openOnly bool) ([]model.Holding, error)

	CreateBuyEvent(ctx context.Context, event model.BuyEvent) (buyEventID int64, err error)
	FindBuyPositionsByLot(ctx context.Context, lotID int64) ([]model.BuyPosition, error)
	FindBuyEventsByLot(ctx context.Context, lotID int64) ([]model.BuyEvent, error)

	CreateSellEvent(ctx context.Context, event model.SellEvent) (sellEventID int64, err error)
	FindSellEventsByBuyEvent(ctx context.Context, buyEventID int64) ([]model.SellEvent, error)
	ListSaleDetails(ctx context.Context, ownerID *int64) ([]model.SaleDetail, error)

	CreateIncomeRecord(ctx context.Context, record model.IncomeRecord) (incomeID int64, err error)
	CreateBenefitRecord(ctx context.Context, record model.BenefitRecord) (benefitID int64, err error)
	FindIncomeByLot(ctx context.Context, lotID int64) ([]model.IncomeRecord, error)
	FindIncomeBySale(ctx context.Context, sellEventID int64) ([]model.IncomeRecord, error)
	FindBenefitByLot(ctx context.Context, lotID int64) ([]model.BenefitRecord, error)
	FindBenefitBySale(ctx context.Context, sellEventID int64) ([]model.BenefitRecord, error)
}

type StockManagerService struct {
	repo       Repository
	cache      Cache
	financeApi FinanceApi
	reportGen  ReportGenerator
}

func New(repo Repository, cache Cache, financeApi FinanceApi, reportGen ReportGenerator) *StockManagerService {
	return &StockManagerService{
		repo:       repo,
		cache:      cache,
		financeApi: financeApi,
		reportGen:  reportGen,
	}
}

var ownerNameRe = regexp.MustCompile(`^[A-Za-z]+$`)

func (s *StockManagerService) CreateOwner(ctx context.Context, name string) (model.Owner, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockManagerService.CreateOwner"

	slog.Debug("CreateOwner start", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", name))
	defer func() {
		slog.Debug("CreateOwner finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", name))
	}()

	if !ownerNameRe.MatchString(name) {
		return model.Owner{}, service.ErrInvalidOwnerName
	}

	ownerID, err := s.repo.CreateOwner(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return model.Owner{}, service.ErrAlreadyExists
		}
		slog.Error("got error from repo.CreateOwner", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Owner{}, err
	}

	return model.Owner{ID: ownerID, Name: name}, nil
}

func (s *StockManagerService) GetOwner(ctx context.Context, ownerID int64) (model.Owner, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockManagerService.GetOwner"

	owner, err := s.repo.GetOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Owner{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetOwner", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Owner{}, err
	}
	return owner, nil
}

func (s *StockManagerService) ListOwners(ctx context.Context) ([]model.Owner, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockManagerService.ListOwners"

	owners, err := s.repo.ListOwners(ctx)
	if err != nil {
		slog.Error("got error from repo.ListOwners", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}
	return owners, nil
}

// RegisterStock creates a stock record. When name is empty it is resolved
// through the finance provider; the initial quote is fetched on a best
// effort basis and stored so price fallback works before the first refresh.
func (s *StockManagerService) RegisterStock(ctx context.Context, stock model.Stock) (model.Stock, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockManagerService.RegisterStock"

	slog.Debug("RegisterStock start", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", stock.Code))
	defer func() {
		slog.Debug("RegisterStock finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", stock.Code))
	}()

	if stock.MinimalUnit <= 0 {
		stock.MinimalUnit = 100
	}

	if stock.Name == "" {
		name, err := s.financeApi.GetStockName(ctx, stock.Code)
		if err != nil {
			if errors.Is(err, externalApi.ErrNotFound) {
				slog.Warn("stock code unknown to finance provider", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", stock.Code))
				return model.Stock{}, service.ErrNotFound
			}
			slog.Error("got error from financeApi.GetStockName", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return model.Stock{}, err
		}
		stock.Name = name
	}

	quote, err := s.financeApi.GetQuote(ctx, stock.Code)
	if err == nil {
		if quote.Price != nil {
			stock.CurrentPrice = *quote.Price
		}
		if quote.Dividend != nil {
			stock.Dividend = *quote.Dividend
		}
		stock.EarningsDate = quote.EarningsDate
	} else {
		slog.Warn("initial quote unavailable, registering without price", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", stock.Code), slog.String("err", err.Error()))
	}

	stockID, err := s.repo.CreateStock(ctx, stock)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return model.Stock{}, service.ErrAlreadyExists
		}
		slog.Error("got error from repo.CreateStock", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Stock{}, err
	}
	stock.ID = stockID

	if quote.Price != nil {
		if cacheErr := s.cache.SetQuote(ctx, stock.Code, quote); cacheErr != nil {
			slog.Warn("failed to cache initial quote", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", cacheErr.Error()))
		}
	}

	return stock, nil
}

func (s *StockManagerService) GetStock(ctx context.Context, stockID int64) (model.Stock, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockManagerService.GetStock"

	stock, err := s.repo.GetStock(ctx, stockID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Stock{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetStock", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Stock{}, err
	}
	return stock, nil
}

func (s *StockManagerService) ListStocks(ctx context.Context) ([]model.Stock, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockManagerService.ListStocks"

	stocks, err := s.repo.ListStocks(ctx)
	if err != nil {
		slog.Error("got error from repo.ListStocks", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}
	return stocks, nil
}

// BuyStock appends a buy event to the owner's lot for the stock, creating
// the lot on first purchase. Lot units and the new event commit together.
func (s *StockManagerService) BuyStock(ctx context.Context, ownerID int64, stockCode string, req model.BuyRequest) (lot model.StockLot, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockManagerService.BuyStock"

	slog.Debug("BuyStock start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("ownerID", ownerID), slog.String("stockCode", stockCode), slog.Int("units", req.Units))
	defer func() {
		slog.Debug("BuyStock finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("ownerID", ownerID), slog.String("stockCode", stockCode))
	}()

	if req.Units <= 0 {
		return model.StockLot{}, service.ErrInvalidQuantity
	}
	if req.Price.IsNegative() || req.Fee.IsNegative() {
		return model.StockLot{}, service.ErrInvalidQuantity
	}

	if _, err = s.repo.GetOwner(ctx, ownerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.StockLot{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetOwner", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.StockLot{}, err
	}

	stock, err := s.repo.GetStockByCode(ctx, stockCode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.StockLot{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetStockByCode", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.StockLot{}, err
	}

	buyTx := func(ctx context.Context) error {
		lot, err = s.repo.FindLotByOwnerAndStock(ctx, ownerID, stock.ID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			lotID, createErr := s.repo.CreateLot(ctx, ownerID, stock.ID, 0)
			if createErr != nil {
				return createErr
			}
			lot = model.StockLot{ID: lotID, OwnerID: ownerID, StockID: stock.ID}
		} else {
			lot, err = s.repo.GetLotForUpdate(ctx, lot.ID)
			if err != nil {
				return err
			}
		}

		_, err = s.repo.CreateBuyEvent(ctx, model.BuyEvent{
			StockLotID:      lot.ID,
			Units:           req.Units,
			Price:           req.Price,
			Fee:             req.Fee,
			IsNisa:          req.IsNisa,
			TransactionDate: req.TransactionDate,
		})
		if err != nil {
			return err
		}

		lot.OpenUnits += req.Units
		return s.repo.UpdateLotUnits(ctx, lot.ID, lot.OpenUnits)
	}

	err = s.repo.WithinTransaction(ctx, buyTx)
	if errors.Is(err, repository.ErrAlreadyExists) {
		// Lost a create race with a concurrent first purchase. The unique
		// violation aborted the transaction, so rerun it; the lookup now
		// finds the winner's committed lot.
		slog.Warn("lot create race lost, retrying buy", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("ownerID", ownerID), slog.String("stockCode", stockCode))
		err = s.repo.WithinTransaction(ctx, buyTx)
	}
	if err != nil {
		slog.Error("buy transaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.StockLot{}, err
	}

	return lot, nil
}

// RegisterIncome attaches a dividend payment to an open lot.
func (s *StockManagerService) RegisterIncome(ctx context.Context, lotID int64, amount decimal.Decimal, paymentDate time.Time) (model.IncomeRecord, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockManagerService.RegisterIncome"

	slog.Debug("RegisterIncome start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("lotID", lotID))
	defer func() {
		slog.Debug("RegisterIncome finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("lotID", lotID))
	}()

	if _, err := s.repo.GetLot(ctx, lotID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.IncomeRecord{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetLot", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.IncomeRecord{}, err
	}

	record := model.IncomeRecord{
		Owner:       model.LotOwner(lotID),
		Amount:      amount,
		PaymentDate: paymentDate,
	}
	incomeID, err := s.repo.CreateIncomeRecord(ctx, record)
	if err != nil {
		slog.Error("got error from repo.CreateIncomeRecord", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.IncomeRecord{}, err
	}
	record.ID = incomeID
	return record, nil
}

// RegisterBenefit attaches a shareholder benefit valuation to an open lot.
func (s *StockManagerService) RegisterBenefit(ctx context.Context, lotID int64, value decimal.Decimal, paymentDate time.Time) (model.BenefitRecord, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockManagerService.RegisterBenefit"

	slog.Debug("RegisterBenefit start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("lotID", lotID))
	defer func() {
		slog.Debug("RegisterBenefit finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("lotID", lotID))
	}()

	if _, err := s.repo.GetLot(ctx, lotID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.BenefitRecord{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetLot", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.BenefitRecord{}, err
	}

	record := model.BenefitRecord{
		Owner:       model.LotOwner(lotID),
		Value:       value,
		PaymentDate: paymentDate,
	}
	benefitID, err := s.repo.CreateBenefitRecord(ctx, record)
	if err != nil {
		slog.Error("got error from repo.CreateBenefitRecord", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.BenefitRecord{}, err
	}
	record.ID = benefitID
	return record, nil
}

// ListHoldings returns the open lots (optionally for one owner) enriched
// with average acquisition price, first purchase date and NISA status.
func (s *StockManagerService) ListHoldings(ctx context.Context, ownerID *int64) ([]model.Holding, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockManagerService.ListHoldings"

	slog.Debug("ListHoldings start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ListHoldings finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	holdings, err := s.repo.ListLotDetails(ctx, ownerID, true)
	if err != nil {
		slog.Error("got error from repo.ListLotDetails", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	for i := range holdings {
		buys, err := s.repo.FindBuyEventsByLot(ctx, holdings[i].Lot.ID)
		if err != nil {
			slog.Error("got error from repo.FindBuyEventsByLot", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return nil, err
		}
		if len(buys) == 0 {
			slog.Warn("lot has no buy events", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("lotID", holdings[i].Lot.ID))
			continue
		}
		holdings[i].AveragePrice = averageBuyPrice(buys)
		firstDate := buys[0].TransactionDate
		holdings[i].PurchaseDate = &firstDate
		holdings[i].IsNisa = allNisa(buys)
	}

	return holdings, nil
}

// averageBuyPrice is the fee-inclusive per-unit acquisition price across
// all buy events, rounded to 2 decimal places.
func averageBuyPrice(buys []model.BuyEvent) decimal.Decimal {
	totalCost := decimal.Zero
	totalUnits := decimal.Zero
	for _, b := range buys {
		units := decimal.NewFromInt(int64(b.Units))
		totalCost = totalCost.Add(b.Price.Mul(units)).Add(b.Fee)
		totalUnits = totalUnits.Add(units)
	}
	if totalUnits.IsZero() {
		return decimal.Zero
	}
	return totalCost.DivRound(totalUnits, 2)
}

// allNisa reports whether every buy event is tax exempt. A lot acquired
// through a mix of NISA and taxable purchases is treated as taxable.
func allNisa(buys []model.BuyEvent) bool {
	if len(buys) == 0 {
		return false
	}
	for _, b := range buys {
		if !b.IsNisa {
			return false
		}
	}
	return true
}
